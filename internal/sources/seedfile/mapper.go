package seedfile

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/smartmark/smartmark/internal/domain"
)

// Mapper converts seed file entries to bookmark inputs
type Mapper struct{}

// NewMapper creates a new mapper instance
func NewMapper() *Mapper {
	return &Mapper{}
}

// MapBookmarks converts a SeedConfig to validated bookmark inputs.
// Entries with a missing title, missing URL, or an unparseable URL are
// skipped rather than failing the whole import.
func (m *Mapper) MapBookmarks(config SeedConfig) ([]domain.BookmarkInput, error) {
	var inputs []domain.BookmarkInput

	for _, entry := range config.Bookmarks {
		title := strings.TrimSpace(entry.Title)
		rawURL := strings.TrimSpace(entry.URL)

		if title == "" || rawURL == "" {
			continue
		}

		parsed, err := url.Parse(rawURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			continue
		}

		inputs = append(inputs, domain.BookmarkInput{
			Title: title,
			URL:   rawURL,
		})
	}

	if len(inputs) == 0 {
		return nil, fmt.Errorf("no valid bookmarks found in seed file")
	}

	return inputs, nil
}
