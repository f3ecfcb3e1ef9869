package redis

const (
	// KeyPrefixRevoked is the prefix for revoked session token IDs.
	KeyPrefixRevoked = "smartmark:revoked:"
	// KeyFeedChannel is the pub/sub channel carrying bookmark change events
	// between instances.
	KeyFeedChannel = "smartmark:feed"
)

// RevokedKey returns the Redis key for a revoked session token ID.
func RevokedKey(jti string) string {
	return KeyPrefixRevoked + jti
}

// FeedChannel returns the pub/sub channel for the bookmark change feed.
func FeedChannel() string {
	return KeyFeedChannel
}
