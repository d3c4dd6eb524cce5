package library

import (
	"database/sql"

	"cadenza/internal/store"
	"cadenza/pkg/models"

	"github.com/sirupsen/logrus"
)

// Library is the relational core of the application: it owns the link tables
// between songs, artists, genres and playlists, keeps the derived display
// strings on songs consistent with those links, and serves the read-side
// projections the UI renders. Mutations leave the database consistent before
// returning; callers re-query to observe changes.
type Library struct {
	store  *store.Store
	logger *logrus.Logger
}

// New creates a Library on top of an already-opened store.
func New(st *store.Store) *Library {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Library{
		store:  st,
		logger: logger,
	}
}

// GetSettings returns the singleton settings row.
func (l *Library) GetSettings() (models.Settings, error) {
	var settings models.Settings
	var songID, playlistID sql.NullInt64

	err := l.store.QueryRow(`
		SELECT theme, layout, current_song_id, current_playlist_id, last_playback_time, updated_at
		FROM settings WHERE id = 1`).Scan(
		&settings.Theme, &settings.Layout, &songID, &playlistID,
		&settings.LastPlaybackTime, &settings.UpdatedAt)
	if err != nil {
		return models.Settings{}, &store.QueryError{Stmt: "SELECT settings", Err: err}
	}

	if songID.Valid {
		settings.CurrentSongID = int(songID.Int64)
	}
	if playlistID.Valid {
		settings.CurrentPlaylistID = int(playlistID.Int64)
	}
	return settings, nil
}

// SetTheme updates the stored theme preference.
func (l *Library) SetTheme(theme string) error {
	_, err := l.store.Execute(
		"UPDATE settings SET theme = ?, updated_at = CURRENT_TIMESTAMP WHERE id = 1", theme)
	return err
}

// SetLayout updates the stored layout preference.
func (l *Library) SetLayout(layout string) error {
	_, err := l.store.Execute(
		"UPDATE settings SET layout = ?, updated_at = CURRENT_TIMESTAMP WHERE id = 1", layout)
	return err
}

// SavePlayback persists the current playback position so it survives a
// restart. A songID or playlistID of 0 clears the respective column.
func (l *Library) SavePlayback(songID, playlistID, position int) error {
	_, err := l.store.Execute(`
		UPDATE settings
		SET current_song_id = ?, current_playlist_id = ?, last_playback_time = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = 1`,
		nullableID(songID), nullableID(playlistID), position)
	return err
}

// nullableID maps the 0 = "none" convention onto a NULL column value.
func nullableID(id int) sql.NullInt64 {
	if id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(id), Valid: true}
}

// rowExists reports whether a row with the given id exists in the table.
// Runs inside the caller's transaction so link operations and their
// existence checks observe a single snapshot.
func rowExists(tx *sql.Tx, table string, id int) (bool, error) {
	var count int
	err := tx.QueryRow("SELECT COUNT(*) FROM "+table+" WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
