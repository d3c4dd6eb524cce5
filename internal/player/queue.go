package player

import (
	"math/rand"
	"sync"
	"time"

	"cadenza/pkg/models"

	"github.com/sirupsen/logrus"
)

// Status enumerates the playback states.
type Status int

const (
	StatusEmpty Status = iota
	StatusPlaying
	StatusPaused
)

// State is a snapshot of the playback queue. Index is -1 when the queue is
// empty and always within [0, len(Queue)) otherwise.
type State struct {
	Queue     []models.Song `json:"queue"`
	Index     int           `json:"index"`
	Status    Status        `json:"status"`
	Shuffled  bool          `json:"shuffled"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Current returns the song at the current index, or false when the queue is
// empty.
func (s State) Current() (models.Song, bool) {
	if s.Index < 0 || s.Index >= len(s.Queue) {
		return models.Song{}, false
	}
	return s.Queue[s.Index], true
}

// PlaybackSaver persists the current song and playback position so they
// survive a restart. Implemented by library.Library.
type PlaybackSaver interface {
	SavePlayback(songID, playlistID, position int) error
}

// Queue is the playback state machine: the ordered list of scheduled songs,
// the current index and the shuffle flag. All transitions are linearized
// under one mutex (last writer wins), and every transition that changes the
// current song persists it best-effort through the saver. Listeners receive
// state snapshots on every change.
type Queue struct {
	mu        sync.RWMutex
	state     State
	rng       *rand.Rand
	saver     PlaybackSaver
	logger    *logrus.Logger
	listeners []chan State
}

// NewQueue creates an empty playback queue. saver may be nil; persistence is
// then skipped entirely.
func NewQueue(saver PlaybackSaver) *Queue {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Queue{
		state: State{
			Index:     -1,
			Status:    StatusEmpty,
			UpdatedAt: time.Now(),
		},
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		saver:     saver,
		logger:    logger,
		listeners: make([]chan State, 0),
	}
}

// State returns a snapshot of the current playback state (thread-safe).
func (q *Queue) State() State {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.snapshot()
}

// Current returns the currently scheduled song, if any.
func (q *Queue) Current() (models.Song, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.state.Current()
}

// PlaySong replaces the queue with the context list the user was browsing
// and starts playing the given song. If the song is not present in the
// context the queue fails safe to index 0.
func (q *Queue) PlaySong(song models.Song, context []models.Song) {
	q.mu.Lock()
	defer q.mu.Unlock()

	queue := make([]models.Song, len(context))
	copy(queue, context)

	index := 0
	for i, s := range queue {
		if s.ID == song.ID {
			index = i
			break
		}
	}

	if len(queue) == 0 {
		queue = []models.Song{song}
	}

	q.state.Queue = queue
	q.state.Index = index
	q.state.Status = StatusPlaying
	q.state.Shuffled = false
	q.touchAndPersist()
}

// PlayShuffled replaces the queue with a uniform random permutation of the
// context list (Fisher-Yates, every permutation equally likely) and starts
// playing from the top.
func (q *Queue) PlayShuffled(context []models.Song) {
	if len(context) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	queue := make([]models.Song, len(context))
	copy(queue, context)
	for i := len(queue) - 1; i > 0; i-- {
		j := q.rng.Intn(i + 1)
		queue[i], queue[j] = queue[j], queue[i]
	}

	q.state.Queue = queue
	q.state.Index = 0
	q.state.Status = StatusPlaying
	q.state.Shuffled = true
	q.touchAndPersist()
}

// PlaySongFromQueue jumps to the given position in the current queue.
// An out-of-range index is a no-op returning false; state is unchanged.
func (q *Queue) PlaySongFromQueue(index int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.state.Queue) {
		q.logger.WithFields(logrus.Fields{
			"index":        index,
			"queue_length": len(q.state.Queue),
		}).Warn("Queue jump out of range")
		return false
	}

	q.state.Index = index
	q.state.Status = StatusPlaying
	q.touchAndPersist()
	return true
}

// Advance moves to the next song. At the end of the queue it stops rather
// than wrapping around, returning false with state unchanged.
func (q *Queue) Advance() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state.Index < 0 || q.state.Index+1 >= len(q.state.Queue) {
		return false
	}

	q.state.Index++
	q.state.Status = StatusPlaying
	q.touchAndPersist()
	return true
}

// Previous moves to the preceding song, stopping at the start of the queue.
func (q *Queue) Previous() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state.Index <= 0 {
		return false
	}

	q.state.Index--
	q.state.Status = StatusPlaying
	q.touchAndPersist()
	return true
}

// Pause marks playback paused; the queue and index are untouched.
func (q *Queue) Pause() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state.Status != StatusPlaying {
		return
	}
	q.state.Status = StatusPaused
	q.state.UpdatedAt = time.Now()
	q.notifyListeners()
}

// Resume continues paused playback.
func (q *Queue) Resume() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state.Status != StatusPaused {
		return
	}
	q.state.Status = StatusPlaying
	q.state.UpdatedAt = time.Now()
	q.notifyListeners()
}

// ClearQueue empties the queue and resets the index to -1.
func (q *Queue) ClearQueue() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.state.Queue = nil
	q.state.Index = -1
	q.state.Status = StatusEmpty
	q.state.Shuffled = false
	q.touchAndPersist()
}

// Subscribe adds a listener for state changes. The channel is buffered; a
// listener that stops draining is dropped.
func (q *Queue) Subscribe() <-chan State {
	q.mu.Lock()
	defer q.mu.Unlock()

	ch := make(chan State, 10)
	q.listeners = append(q.listeners, ch)
	return ch
}

// Unsubscribe removes a listener registered with Subscribe.
func (q *Queue) Unsubscribe(ch <-chan State) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, listener := range q.listeners {
		if listener == ch {
			close(listener)
			q.listeners = append(q.listeners[:i], q.listeners[i+1:]...)
			break
		}
	}
}

// touchAndPersist stamps the state, persists the current song best-effort
// and notifies listeners. Must be called with the lock held.
func (q *Queue) touchAndPersist() {
	q.state.UpdatedAt = time.Now()
	q.persistCurrent()
	q.notifyListeners()
}

// persistCurrent saves the current song id to settings. Persistence failures
// are logged, never fatal: playback continues regardless.
func (q *Queue) persistCurrent() {
	if q.saver == nil {
		return
	}

	songID := 0
	if song, ok := q.state.Current(); ok {
		songID = song.ID
	}

	if err := q.saver.SavePlayback(songID, 0, 0); err != nil {
		q.logger.WithError(err).WithField("song_id", songID).Warn("Failed to persist playback state")
	}
}

// notifyListeners sends a snapshot to all subscribers; full or closed
// channels are removed. Must be called with the lock held.
func (q *Queue) notifyListeners() {
	snapshot := q.snapshot()
	alive := q.listeners[:0]
	for _, listener := range q.listeners {
		select {
		case listener <- snapshot:
			alive = append(alive, listener)
		default:
			close(listener)
		}
	}
	q.listeners = alive
}

// snapshot copies the state, including the queue slice, so callers can never
// mutate internal state. Must be called with at least a read lock held.
func (q *Queue) snapshot() State {
	snapshot := q.state
	snapshot.Queue = make([]models.Song, len(q.state.Queue))
	copy(snapshot.Queue, q.state.Queue)
	return snapshot
}
