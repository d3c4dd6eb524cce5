package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newSearchServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/search" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("q") == "" {
			http.Error(w, "missing query", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"data": [
				{
					"id": 3135556,
					"title": "Harder, Better, Faster, Stronger",
					"duration": 224,
					"preview": "https://example.com/preview.mp3",
					"artist": {"name": "Daft Punk"},
					"album": {"cover": "https://example.com/cover.jpg"}
				}
			]
		}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSearch(t *testing.T) {
	var hits atomic.Int64
	server := newSearchServer(t, &hits)
	client := NewClient(server.URL, 5*time.Second)

	t.Run("ParsesResults", func(t *testing.T) {
		tracks, err := client.Search(context.Background(), "daft punk")
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(tracks) != 1 {
			t.Fatalf("Expected 1 track, got %d", len(tracks))
		}

		track := tracks[0]
		if track.Title != "Harder, Better, Faster, Stronger" {
			t.Errorf("Unexpected title %q", track.Title)
		}
		if track.Artist.Name != "Daft Punk" {
			t.Errorf("Unexpected artist %q", track.Artist.Name)
		}
		if track.Duration != 224 {
			t.Errorf("Unexpected duration %d", track.Duration)
		}
	})

	t.Run("RepeatQueryServedFromCache", func(t *testing.T) {
		before := hits.Load()
		if _, err := client.Search(context.Background(), "daft punk"); err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if hits.Load() != before {
			t.Error("Expected repeat query to skip the network")
		}
	})

	t.Run("EmptyQuerySkipsNetwork", func(t *testing.T) {
		before := hits.Load()
		tracks, err := client.Search(context.Background(), "")
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(tracks) != 0 {
			t.Errorf("Expected no tracks for empty query, got %d", len(tracks))
		}
		if hits.Load() != before {
			t.Error("Expected empty query to skip the network")
		}
	})
}

func TestSearchErrors(t *testing.T) {
	t.Run("NonOKStatus", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
		}))
		defer server.Close()

		client := NewClient(server.URL, 5*time.Second)
		if _, err := client.Search(context.Background(), "anything"); err == nil {
			t.Error("Expected error for non-OK status")
		}
	})

	t.Run("MalformedBody", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer server.Close()

		client := NewClient(server.URL, 5*time.Second)
		if _, err := client.Search(context.Background(), "anything"); err == nil {
			t.Error("Expected error for malformed body")
		}
	})

	t.Run("CanceledContext", func(t *testing.T) {
		server := newSearchServer(t, new(atomic.Int64))
		client := NewClient(server.URL, 5*time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := client.Search(ctx, "anything"); err == nil {
			t.Error("Expected error for canceled context")
		}
	})
}
