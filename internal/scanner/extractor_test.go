package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsAudioFile(t *testing.T) {
	extractor := NewExtractor([]string{".mp3", ".flac", ".wav", ".m4a"})

	cases := []struct {
		path string
		want bool
	}{
		{"/music/song.mp3", true},
		{"/music/song.MP3", true}, // extension match is case-insensitive
		{"/music/song.flac", true},
		{"/music/song.ogg", false},
		{"/music/cover.jpg", false},
		{"/music/noextension", false},
	}

	for _, tc := range cases {
		if got := extractor.IsAudioFile(tc.path); got != tc.want {
			t.Errorf("IsAudioFile(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestExtractFromFile(t *testing.T) {
	extractor := NewExtractor([]string{".mp3"})

	t.Run("MissingFileIsFatal", func(t *testing.T) {
		if _, err := extractor.ExtractFromFile("/does/not/exist.mp3"); err == nil {
			t.Error("Expected error for missing file")
		}
	})

	t.Run("UnreadableTagsFallBackToFilename", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "Mystery Track.mp3")
		if err := os.WriteFile(path, []byte("definitely not an mp3 stream"), 0644); err != nil {
			t.Fatalf("Failed to write test file: %v", err)
		}

		record, err := extractor.ExtractFromFile(path)
		if err != nil {
			t.Fatalf("Extraction should degrade, not fail: %v", err)
		}
		if record.Title != "Mystery Track" {
			t.Errorf("Expected filename fallback title, got %q", record.Title)
		}
		if record.ArtistNameString != "" {
			t.Errorf("Expected empty artist string, got %q", record.ArtistNameString)
		}
		if record.Path != path {
			t.Errorf("Expected path %q, got %q", path, record.Path)
		}
	})
}

func TestAlbumArtCache(t *testing.T) {
	extractor := NewExtractor([]string{".mp3"})

	if _, ok := extractor.AlbumArt("nonexistent"); ok {
		t.Error("Expected cache miss for unknown art id")
	}
}
