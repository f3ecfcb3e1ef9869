package domain

import "time"

// User is an authenticated account. The ID is the identity provider's
// stable subject identifier, so re-logins map to the same row.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
