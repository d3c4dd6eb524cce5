package library

import (
	"database/sql"

	"cadenza/internal/store"
	"cadenza/pkg/models"

	"github.com/sirupsen/logrus"
)

// CreatePlaylist inserts a new playlist and returns its id. Duplicate names
// fail with store.ErrConstraint.
func (l *Library) CreatePlaylist(name, description, coverImage string) (int, error) {
	result, err := l.store.Execute(
		"INSERT INTO playlists (name, description, cover_image) VALUES (?, ?, ?)",
		name, description, nullableString(coverImage))
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	return int(id), err
}

// GetAllPlaylists returns all playlists with derived song counts, newest
// first.
func (l *Library) GetAllPlaylists() ([]models.Playlist, error) {
	rows, err := l.store.Query(`
		SELECT p.id, p.name, p.description, p.cover_image, p.created_at,
			   COALESCE(COUNT(ps.song_id), 0) AS song_count
		FROM playlists p
		LEFT JOIN playlist_songs ps ON p.id = ps.playlist_id
		GROUP BY p.id, p.name, p.description, p.cover_image, p.created_at
		ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		var playlist models.Playlist
		var description, coverImage sql.NullString
		if err := rows.Scan(&playlist.ID, &playlist.Name, &description,
			&coverImage, &playlist.CreatedAt, &playlist.SongCount); err != nil {
			return nil, err
		}
		playlist.Description = description.String
		playlist.CoverImage = coverImage.String
		playlists = append(playlists, playlist)
	}
	return playlists, rows.Err()
}

// GetPlaylistSongs returns the songs of a playlist ordered by add time,
// most recently added first. A deleted or unknown playlist id yields an
// empty result, not an error.
func (l *Library) GetPlaylistSongs(playlistID int) ([]models.Song, error) {
	rows, err := l.store.Query(`
		SELECT s.id, s.title, s.artist_name_string, s.genre_string, s.duration, s.file_path, s.album_art, s.created_at
		FROM songs s
		JOIN playlist_songs ps ON s.id = ps.song_id
		WHERE ps.playlist_id = ?
		ORDER BY ps.added_at DESC, ps.id DESC`, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSongRows(rows)
}

// AddSongToPlaylist adds a song to a playlist. Adding a song that is already
// in the playlist is a benign no-op reported as success; exactly one junction
// row exists either way. Returns false when the playlist or song does not
// exist.
func (l *Library) AddSongToPlaylist(playlistID, songID int) (bool, error) {
	tx, err := l.store.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	playlistOK, err := rowExists(tx, "playlists", playlistID)
	if err != nil {
		return false, &store.QueryError{Stmt: "SELECT playlist exists", Err: err}
	}
	songOK, err := rowExists(tx, "songs", songID)
	if err != nil {
		return false, &store.QueryError{Stmt: "SELECT song exists", Err: err}
	}
	if !playlistOK || !songOK {
		l.logger.WithFields(logrus.Fields{
			"playlist_id": playlistID,
			"song_id":     songID,
		}).Warn("Playlist add refers to a missing row")
		return false, nil
	}

	_, err = tx.Exec(`
		INSERT INTO playlist_songs (playlist_id, song_id)
		VALUES (?, ?)
		ON CONFLICT(playlist_id, song_id) DO NOTHING`,
		playlistID, songID)
	if err != nil {
		return false, &store.QueryError{Stmt: "INSERT playlist_songs", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return false, &store.QueryError{Stmt: "COMMIT playlist add", Err: err}
	}
	return true, nil
}

// RemoveSongFromPlaylist removes a song from a playlist. Removing an absent
// pair is a no-op.
func (l *Library) RemoveSongFromPlaylist(playlistID, songID int) error {
	_, err := l.store.Execute(
		"DELETE FROM playlist_songs WHERE playlist_id = ? AND song_id = ?",
		playlistID, songID)
	return err
}

// UpdatePlaylist updates playlist metadata. Renaming onto an existing name
// fails with store.ErrConstraint.
func (l *Library) UpdatePlaylist(playlistID int, name, description, coverImage string) error {
	_, err := l.store.Execute(`
		UPDATE playlists
		SET name = ?, description = ?, cover_image = ?
		WHERE id = ?`,
		name, description, nullableString(coverImage), playlistID)
	return err
}

// DeletePlaylist deletes a playlist; its junction rows cascade away with it.
// Returns false when the id does not exist.
func (l *Library) DeletePlaylist(playlistID int) (bool, error) {
	result, err := l.store.Execute("DELETE FROM playlists WHERE id = ?", playlistID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
