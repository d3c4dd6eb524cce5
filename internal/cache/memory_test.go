package cache

import (
	"testing"
	"time"

	"cadenza/pkg/models"
)

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute)

	t.Run("SetAndGet", func(t *testing.T) {
		c.Set("key", "value")
		value, ok := c.Get("key")
		if !ok || value != "value" {
			t.Errorf("Expected cached value, got %v ok=%v", value, ok)
		}
	})

	t.Run("MissingKey", func(t *testing.T) {
		if _, ok := c.Get("absent"); ok {
			t.Error("Expected cache miss")
		}
	})

	t.Run("Expiration", func(t *testing.T) {
		short := NewMemoryCache(time.Millisecond)
		short.Set("ephemeral", 1)
		time.Sleep(5 * time.Millisecond)
		if _, ok := short.Get("ephemeral"); ok {
			t.Error("Expected expired entry to miss")
		}
	})

	t.Run("DeleteAndClear", func(t *testing.T) {
		c.Set("a", 1)
		c.Set("b", 2)
		c.Delete("a")
		if _, ok := c.Get("a"); ok {
			t.Error("Expected deleted key to miss")
		}
		c.Clear()
		if c.Size() != 0 {
			t.Errorf("Expected empty cache, got size %d", c.Size())
		}
	})
}

func TestSearchCache(t *testing.T) {
	sc := NewSearchCache()

	tracks := []models.RemoteTrack{
		{ID: 1, Title: "One"},
		{ID: 2, Title: "Two"},
	}
	sc.SetResults("query", tracks)

	got, ok := sc.GetResults("query")
	if !ok {
		t.Fatal("Expected cached results")
	}
	if len(got) != 2 || got[0].Title != "One" {
		t.Errorf("Unexpected cached tracks: %v", got)
	}

	if _, ok := sc.GetResults("other"); ok {
		t.Error("Expected miss for unknown query")
	}
}
