package seedfile

// SeedConfig represents the top-level structure of the seed YAML file.
type SeedConfig struct {
	Bookmarks []SeedBookmark `yaml:"bookmarks"`
}

// SeedBookmark is one entry in the seed file.
type SeedBookmark struct {
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
}
