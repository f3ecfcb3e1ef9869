package seedfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoaderLoad(t *testing.T) {
	tmpDir := t.TempDir()
	yamlPath := filepath.Join(tmpDir, "seed.yaml")

	yamlContent := `---
bookmarks:
  - title: Go Blog
    url: https://go.dev/blog
  - title: Hacker News
    url: https://news.ycombinator.com
`

	err := os.WriteFile(yamlPath, []byte(yamlContent), 0o644)
	if err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}

	loader := NewLoader(yamlPath)
	config, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(config.Bookmarks) != 2 {
		t.Fatalf("Load() returned %d bookmarks, want 2", len(config.Bookmarks))
	}
	if config.Bookmarks[0].Title != "Go Blog" {
		t.Errorf("Load() first title = %q, want %q", config.Bookmarks[0].Title, "Go Blog")
	}
	if config.Bookmarks[1].URL != "https://news.ycombinator.com" {
		t.Errorf("Load() second url = %q, want %q", config.Bookmarks[1].URL, "https://news.ycombinator.com")
	}
}

func TestLoaderLoadFileNotFound(t *testing.T) {
	loader := NewLoader("/nonexistent/path/seed.yaml")
	_, err := loader.Load()
	if err == nil {
		t.Error("Load() with non-existent file should return error")
	}
}

func TestLoaderLoadInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	yamlPath := filepath.Join(tmpDir, "seed.yaml")

	err := os.WriteFile(yamlPath, []byte("bookmarks: [not: valid: yaml"), 0o644)
	if err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}

	loader := NewLoader(yamlPath)
	if _, err := loader.Load(); err == nil {
		t.Error("Load() with invalid yaml should return error")
	}
}
