package library

import (
	"database/sql"
	"errors"

	"cadenza/internal/store"
	"cadenza/pkg/models"

	"github.com/sirupsen/logrus"
)

// CreateSong inserts a new song and returns its id. The denormalized artist
// display string defaults to "Unknown Artist" when none is supplied; that
// default exists only at creation time — the first link/unlink recompute
// replaces it with the derived value. An empty FilePath is stored as NULL so
// the UNIQUE constraint does not collide across remote-only songs.
func (l *Library) CreateSong(song models.Song) (int, error) {
	artistString := song.ArtistNameString
	if artistString == "" {
		artistString = "Unknown Artist"
	}

	result, err := l.store.Execute(`
		INSERT INTO songs (title, artist_name_string, genre_string, duration, file_path, album_art)
		VALUES (?, ?, ?, ?, ?, ?)`,
		song.Title, artistString, song.GenreString, song.Duration,
		nullableString(song.FilePath), nullableString(song.AlbumArt))
	if err != nil {
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

// ImportScan batch-inserts records produced by the file scanner in a single
// transaction. Records already present (matched by file path) are updated in
// place; their artist/genre display strings are only refreshed when the song
// has no explicit links, since linked songs own their derived strings.
func (l *Library) ImportScan(records []models.ScanRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := l.store.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	inserted := 0
	for _, record := range records {
		var existingID int
		err := tx.QueryRow("SELECT id FROM songs WHERE file_path = ?", record.Path).Scan(&existingID)
		switch {
		case err == sql.ErrNoRows:
			artistString := record.ArtistNameString
			if artistString == "" {
				artistString = "Unknown Artist"
			}
			_, err = tx.Exec(`
				INSERT INTO songs (title, artist_name_string, genre_string, duration, file_path, album_art)
				VALUES (?, ?, ?, ?, ?, ?)`,
				record.Title, artistString, record.GenreString, record.Duration,
				record.Path, nullableString(record.AlbumArt))
			if err != nil {
				return 0, &store.QueryError{Stmt: "INSERT song (scan)", Err: err}
			}
			inserted++
		case err != nil:
			return 0, &store.QueryError{Stmt: "SELECT song by path", Err: err}
		default:
			var linkCount int
			if err := tx.QueryRow("SELECT COUNT(*) FROM song_artists WHERE song_id = ?", existingID).Scan(&linkCount); err != nil {
				return 0, &store.QueryError{Stmt: "SELECT song_artists count", Err: err}
			}
			if linkCount > 0 {
				_, err = tx.Exec(`
					UPDATE songs SET title = ?, duration = ?, album_art = ? WHERE id = ?`,
					record.Title, record.Duration, nullableString(record.AlbumArt), existingID)
			} else {
				_, err = tx.Exec(`
					UPDATE songs SET title = ?, artist_name_string = ?, genre_string = ?, duration = ?, album_art = ?
					WHERE id = ?`,
					record.Title, record.ArtistNameString, record.GenreString,
					record.Duration, nullableString(record.AlbumArt), existingID)
			}
			if err != nil {
				return 0, &store.QueryError{Stmt: "UPDATE song (scan)", Err: err}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &store.QueryError{Stmt: "COMMIT scan import", Err: err}
	}

	l.logger.WithFields(logrus.Fields{
		"records":  len(records),
		"inserted": inserted,
	}).Info("Imported scan batch")
	return inserted, nil
}

// GetSong returns a single song by id, or store.ErrNotFound.
func (l *Library) GetSong(id int) (models.Song, error) {
	var song models.Song
	var filePath, albumArt sql.NullString

	err := l.store.QueryRow(`
		SELECT id, title, artist_name_string, genre_string, duration, file_path, album_art, created_at
		FROM songs WHERE id = ?`, id).Scan(
		&song.ID, &song.Title, &song.ArtistNameString, &song.GenreString,
		&song.Duration, &filePath, &albumArt, &song.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Song{}, store.ErrNotFound
	}
	if err != nil {
		return models.Song{}, &store.QueryError{Stmt: "SELECT song by id", Err: err}
	}

	song.FilePath = filePath.String
	song.AlbumArt = albumArt.String
	return song, nil
}

// SongIDByPath resolves a song id from its file path, or store.ErrNotFound.
func (l *Library) SongIDByPath(filePath string) (int, error) {
	var id int
	err := l.store.QueryRow("SELECT id FROM songs WHERE file_path = ?", filePath).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, &store.QueryError{Stmt: "SELECT song by path", Err: err}
	}
	return id, nil
}

// DeleteSong removes a song. Foreign keys cascade the deletion through every
// junction table, so the song disappears from all playlists and artist/genre
// links in the same statement. Returns false when the id does not exist.
func (l *Library) DeleteSong(id int) (bool, error) {
	result, err := l.store.Execute("DELETE FROM songs WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// DeleteSongByPath removes a song identified by its file path, used by the
// watcher when an audio file disappears from disk.
func (l *Library) DeleteSongByPath(filePath string) (bool, error) {
	id, err := l.SongIDByPath(filePath)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return l.DeleteSong(id)
}

// GetAllSongs returns every song ordered by title ascending. SQLite's
// default BINARY collation gives the case-sensitive ordinal ordering.
func (l *Library) GetAllSongs() ([]models.Song, error) {
	rows, err := l.store.Query(`
		SELECT id, title, artist_name_string, genre_string, duration, file_path, album_art, created_at
		FROM songs
		ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSongRows(rows)
}

// SearchSongs performs a case-insensitive substring match against the title
// or the artist display string, ordered like GetAllSongs. No matches yields
// an empty result, never an error.
func (l *Library) SearchSongs(query string) ([]models.Song, error) {
	pattern := "%" + query + "%"
	rows, err := l.store.Query(`
		SELECT id, title, artist_name_string, genre_string, duration, file_path, album_art, created_at
		FROM songs
		WHERE title LIKE ? OR artist_name_string LIKE ?
		ORDER BY title`, pattern, pattern)
	if err != nil {
		l.logger.WithError(err).WithField("query", query).Error("Failed to search songs")
		return nil, err
	}
	defer rows.Close()
	return scanSongRows(rows)
}

// GetSongsByArtist returns the songs linked to an artist in link-insertion
// order.
func (l *Library) GetSongsByArtist(artistID int) ([]models.Song, error) {
	rows, err := l.store.Query(`
		SELECT s.id, s.title, s.artist_name_string, s.genre_string, s.duration, s.file_path, s.album_art, s.created_at
		FROM songs s
		JOIN song_artists sa ON s.id = sa.song_id
		WHERE sa.artist_id = ?
		ORDER BY sa.id`, artistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSongRows(rows)
}

// GetSongsByGenre returns the songs linked to a genre in link-insertion
// order.
func (l *Library) GetSongsByGenre(genreID int) ([]models.Song, error) {
	rows, err := l.store.Query(`
		SELECT s.id, s.title, s.artist_name_string, s.genre_string, s.duration, s.file_path, s.album_art, s.created_at
		FROM songs s
		JOIN song_genres sg ON s.id = sg.song_id
		WHERE sg.genre_id = ?
		ORDER BY sg.id`, genreID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSongRows(rows)
}

// nullableString maps empty strings onto NULL column values.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// scanSongRows scans standard song result sets into a slice. It centralizes
// row iteration to reduce duplication across query helpers. Callers must have
// already deferred rows.Close().
func scanSongRows(rows *sql.Rows) ([]models.Song, error) {
	var songs []models.Song
	for rows.Next() {
		var song models.Song
		var filePath, albumArt sql.NullString

		if err := rows.Scan(&song.ID, &song.Title, &song.ArtistNameString, &song.GenreString,
			&song.Duration, &filePath, &albumArt, &song.CreatedAt); err != nil {
			return nil, err
		}

		song.FilePath = filePath.String
		song.AlbumArt = albumArt.String
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return songs, nil
}
