package player

import (
	"errors"
	"testing"

	"cadenza/pkg/models"
)

// recordingSaver captures SavePlayback calls so tests can assert on
// persistence without a database.
type recordingSaver struct {
	songIDs []int
	err     error
}

func (r *recordingSaver) SavePlayback(songID, playlistID, position int) error {
	r.songIDs = append(r.songIDs, songID)
	return r.err
}

func testSongs(n int) []models.Song {
	songs := make([]models.Song, n)
	for i := range songs {
		songs[i] = models.Song{ID: i + 1, Title: "Song"}
	}
	return songs
}

func TestPlaySong(t *testing.T) {
	saver := &recordingSaver{}
	q := NewQueue(saver)

	t.Run("EmptyQueueHasNoCurrent", func(t *testing.T) {
		state := q.State()
		if state.Index != -1 || state.Status != StatusEmpty {
			t.Errorf("Expected empty state, got index=%d status=%d", state.Index, state.Status)
		}
		if _, ok := q.Current(); ok {
			t.Error("Expected no current song on empty queue")
		}
	})

	context := testSongs(3)

	t.Run("PlaysFromContext", func(t *testing.T) {
		q.PlaySong(context[1], context)

		state := q.State()
		if state.Index != 1 {
			t.Errorf("Expected index 1, got %d", state.Index)
		}
		if state.Status != StatusPlaying {
			t.Errorf("Expected playing status, got %d", state.Status)
		}
		if state.Shuffled {
			t.Error("Expected shuffled flag cleared")
		}
		if current, ok := q.Current(); !ok || current.ID != 2 {
			t.Errorf("Expected current song 2, got %v ok=%v", current, ok)
		}
	})

	t.Run("SongNotInContextFailsSafeToZero", func(t *testing.T) {
		q.PlaySong(models.Song{ID: 99}, context)
		if state := q.State(); state.Index != 0 {
			t.Errorf("Expected index 0 for unknown song, got %d", state.Index)
		}
	})

	t.Run("EmptyContextQueuesJustTheSong", func(t *testing.T) {
		q.PlaySong(models.Song{ID: 7}, nil)
		state := q.State()
		if len(state.Queue) != 1 || state.Queue[0].ID != 7 {
			t.Errorf("Expected single-song queue, got %v", state.Queue)
		}
	})

	t.Run("PersistsCurrentSong", func(t *testing.T) {
		if len(saver.songIDs) == 0 {
			t.Fatal("Expected SavePlayback calls")
		}
		if last := saver.songIDs[len(saver.songIDs)-1]; last != 7 {
			t.Errorf("Expected last persisted song 7, got %d", last)
		}
	})
}

func TestAdvanceAndPrevious(t *testing.T) {
	q := NewQueue(nil)
	context := testSongs(3)
	q.PlaySong(context[0], context)

	t.Run("AdvanceWalksForward", func(t *testing.T) {
		if !q.Advance() {
			t.Fatal("Expected advance to succeed")
		}
		if state := q.State(); state.Index != 1 {
			t.Errorf("Expected index 1, got %d", state.Index)
		}
	})

	t.Run("AdvanceStopsAtEnd", func(t *testing.T) {
		if !q.Advance() {
			t.Fatal("Expected advance to succeed")
		}
		if q.Advance() {
			t.Error("Expected advance past the end to fail")
		}
		if state := q.State(); state.Index != 2 {
			t.Errorf("Expected index unchanged at 2, got %d", state.Index)
		}
	})

	t.Run("PreviousWalksBack", func(t *testing.T) {
		if !q.Previous() {
			t.Fatal("Expected previous to succeed")
		}
		if !q.Previous() {
			t.Fatal("Expected previous to succeed")
		}
		if q.Previous() {
			t.Error("Expected previous at the start to fail")
		}
		if state := q.State(); state.Index != 0 {
			t.Errorf("Expected index 0, got %d", state.Index)
		}
	})

	t.Run("AdvanceOnEmptyQueueFails", func(t *testing.T) {
		empty := NewQueue(nil)
		if empty.Advance() {
			t.Error("Expected advance on empty queue to fail")
		}
	})
}

func TestPlaySongFromQueue(t *testing.T) {
	q := NewQueue(nil)
	q.PlaySong(testSongs(3)[0], testSongs(3))

	t.Run("ValidIndex", func(t *testing.T) {
		if !q.PlaySongFromQueue(2) {
			t.Fatal("Expected jump to succeed")
		}
		if state := q.State(); state.Index != 2 {
			t.Errorf("Expected index 2, got %d", state.Index)
		}
	})

	t.Run("OutOfRangeLeavesStateUnchanged", func(t *testing.T) {
		before := q.State()
		if q.PlaySongFromQueue(99) {
			t.Error("Expected out-of-range jump to fail")
		}
		if q.PlaySongFromQueue(-1) {
			t.Error("Expected negative jump to fail")
		}
		after := q.State()
		if after.Index != before.Index || after.Status != before.Status {
			t.Errorf("State changed by failed jump: before=%v after=%v", before, after)
		}
	})
}

func TestPauseResume(t *testing.T) {
	q := NewQueue(nil)
	q.PlaySong(testSongs(1)[0], testSongs(1))

	q.Pause()
	if state := q.State(); state.Status != StatusPaused {
		t.Errorf("Expected paused, got %d", state.Status)
	}

	// Pause on a paused queue is a no-op
	q.Pause()
	if state := q.State(); state.Status != StatusPaused {
		t.Errorf("Expected still paused, got %d", state.Status)
	}

	q.Resume()
	if state := q.State(); state.Status != StatusPlaying {
		t.Errorf("Expected playing, got %d", state.Status)
	}

	// Resume on an empty queue is a no-op
	empty := NewQueue(nil)
	empty.Resume()
	if state := empty.State(); state.Status != StatusEmpty {
		t.Errorf("Expected empty status, got %d", state.Status)
	}
}

func TestClearQueue(t *testing.T) {
	saver := &recordingSaver{}
	q := NewQueue(saver)
	q.PlaySong(testSongs(2)[0], testSongs(2))

	q.ClearQueue()

	state := q.State()
	if len(state.Queue) != 0 || state.Index != -1 || state.Status != StatusEmpty {
		t.Errorf("Expected reset state, got %+v", state)
	}
	if last := saver.songIDs[len(saver.songIDs)-1]; last != 0 {
		t.Errorf("Expected cleared persistence (song 0), got %d", last)
	}
}

func TestPlayShuffled(t *testing.T) {
	q := NewQueue(nil)

	t.Run("EmptyContextIsNoOp", func(t *testing.T) {
		q.PlayShuffled(nil)
		if state := q.State(); state.Status != StatusEmpty {
			t.Errorf("Expected empty status, got %d", state.Status)
		}
	})

	t.Run("SetsShuffledState", func(t *testing.T) {
		q.PlayShuffled(testSongs(4))
		state := q.State()
		if !state.Shuffled {
			t.Error("Expected shuffled flag set")
		}
		if state.Index != 0 || state.Status != StatusPlaying {
			t.Errorf("Expected playing from the top, got index=%d status=%d", state.Index, state.Status)
		}
		if len(state.Queue) != 4 {
			t.Errorf("Expected 4 songs, got %d", len(state.Queue))
		}
	})

	t.Run("PreservesAllSongs", func(t *testing.T) {
		q.PlayShuffled(testSongs(10))
		seen := make(map[int]bool)
		for _, song := range q.State().Queue {
			seen[song.ID] = true
		}
		if len(seen) != 10 {
			t.Errorf("Expected a permutation of 10 distinct songs, got %d", len(seen))
		}
	})

	// Every permutation of a 4-song context should appear with roughly equal
	// frequency. 24 permutations over 10000 trials gives ~417 each; the wide
	// [300, 550] band keeps the test stable while still catching biased
	// shuffles (a naive swap-with-anyone shuffle skews counts far outside it).
	t.Run("UniformDistribution", func(t *testing.T) {
		const trials = 10000
		counts := make(map[[4]int]int)
		context := testSongs(4)

		for i := 0; i < trials; i++ {
			q.PlayShuffled(context)
			state := q.State()
			var perm [4]int
			for j, song := range state.Queue {
				perm[j] = song.ID
			}
			counts[perm]++
		}

		if len(counts) != 24 {
			t.Fatalf("Expected all 24 permutations, saw %d", len(counts))
		}
		for perm, count := range counts {
			if count < 300 || count > 550 {
				t.Errorf("Permutation %v appeared %d times, outside [300, 550]", perm, count)
			}
		}
	})
}

func TestPersistenceFailureIsNonFatal(t *testing.T) {
	saver := &recordingSaver{err: errors.New("disk full")}
	q := NewQueue(saver)

	q.PlaySong(testSongs(1)[0], testSongs(1))

	// Playback continues despite the failing saver
	if state := q.State(); state.Status != StatusPlaying {
		t.Errorf("Expected playing despite saver failure, got %d", state.Status)
	}
}

func TestSubscribe(t *testing.T) {
	q := NewQueue(nil)
	ch := q.Subscribe()

	q.PlaySong(testSongs(2)[0], testSongs(2))

	select {
	case state := <-ch:
		if state.Index != 0 || len(state.Queue) != 2 {
			t.Errorf("Unexpected notified state: %+v", state)
		}
	default:
		t.Fatal("Expected a state notification")
	}

	q.Unsubscribe(ch)
	q.Advance()

	// Channel is closed after unsubscribe
	if _, open := <-ch; open {
		t.Error("Expected channel closed after unsubscribe")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	q := NewQueue(nil)
	q.PlaySong(testSongs(2)[0], testSongs(2))

	state := q.State()
	state.Queue[0].Title = "mutated"

	if fresh := q.State(); fresh.Queue[0].Title == "mutated" {
		t.Error("Snapshot mutation leaked into internal state")
	}
}
