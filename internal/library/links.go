package library

import (
	"database/sql"
	"strings"

	"cadenza/internal/store"
	"cadenza/pkg/models"

	"github.com/sirupsen/logrus"
)

// Separators used when deriving the denormalized display strings on songs.
const (
	artistSeparator = " & "
	genreSeparator  = ", "
)

// CreateArtist inserts a new artist. Names are unique (case-sensitive);
// inserting a duplicate fails with store.ErrConstraint rather than silently
// overwriting.
func (l *Library) CreateArtist(name, coverImagePath string) (int, error) {
	result, err := l.store.Execute(
		"INSERT INTO artists (name, cover_image_path) VALUES (?, ?)",
		name, nullableString(coverImagePath))
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	return int(id), err
}

// CreateGenre inserts a new genre; duplicate names fail with
// store.ErrConstraint.
func (l *Library) CreateGenre(name, icon, color string) (int, error) {
	result, err := l.store.Execute(
		"INSERT INTO genres (name, icon, color) VALUES (?, ?, ?)",
		name, nullableString(icon), nullableString(color))
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	return int(id), err
}

// GetAllArtists returns every artist ordered by name.
func (l *Library) GetAllArtists() ([]models.Artist, error) {
	rows, err := l.store.Query("SELECT id, name, cover_image_path FROM artists ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artists []models.Artist
	for rows.Next() {
		var artist models.Artist
		var coverPath sql.NullString
		if err := rows.Scan(&artist.ID, &artist.Name, &coverPath); err != nil {
			return nil, err
		}
		artist.CoverImagePath = coverPath.String
		artists = append(artists, artist)
	}
	return artists, rows.Err()
}

// GetAllGenres returns every genre ordered by name.
func (l *Library) GetAllGenres() ([]models.Genre, error) {
	rows, err := l.store.Query("SELECT id, name, icon, color FROM genres ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var genres []models.Genre
	for rows.Next() {
		var genre models.Genre
		var icon, color sql.NullString
		if err := rows.Scan(&genre.ID, &genre.Name, &icon, &color); err != nil {
			return nil, err
		}
		genre.Icon = icon.String
		genre.Color = color.String
		genres = append(genres, genre)
	}
	return genres, rows.Err()
}

// GetArtistsBySong returns the artists linked to a song in link-insertion
// order. This order is exactly what the display-string derivation consumes.
func (l *Library) GetArtistsBySong(songID int) ([]models.Artist, error) {
	rows, err := l.store.Query(`
		SELECT a.id, a.name, a.cover_image_path
		FROM artists a
		JOIN song_artists sa ON a.id = sa.artist_id
		WHERE sa.song_id = ?
		ORDER BY sa.id`, songID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artists []models.Artist
	for rows.Next() {
		var artist models.Artist
		var coverPath sql.NullString
		if err := rows.Scan(&artist.ID, &artist.Name, &coverPath); err != nil {
			return nil, err
		}
		artist.CoverImagePath = coverPath.String
		artists = append(artists, artist)
	}
	return artists, rows.Err()
}

// GetGenresBySong returns the genres linked to a song in link-insertion
// order.
func (l *Library) GetGenresBySong(songID int) ([]models.Genre, error) {
	rows, err := l.store.Query(`
		SELECT g.id, g.name, g.icon, g.color
		FROM genres g
		JOIN song_genres sg ON g.id = sg.genre_id
		WHERE sg.song_id = ?
		ORDER BY sg.id`, songID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var genres []models.Genre
	for rows.Next() {
		var genre models.Genre
		var icon, color sql.NullString
		if err := rows.Scan(&genre.ID, &genre.Name, &icon, &color); err != nil {
			return nil, err
		}
		genre.Icon = icon.String
		genre.Color = color.String
		genres = append(genres, genre)
	}
	return genres, rows.Err()
}

// LinkSongArtist links a song to an artist and recomputes the song's artist
// display string before returning. Duplicate links are ignored. Returns
// false (with a nil error) when the song or artist does not exist, so
// callers can show a non-fatal message. The link and the recompute run in
// one transaction; a crash between steps cannot leave the string stale.
func (l *Library) LinkSongArtist(songID, artistID int) (bool, error) {
	return l.mutateSongArtist(songID, artistID,
		"INSERT OR IGNORE INTO song_artists (song_id, artist_id) VALUES (?, ?)")
}

// UnlinkSongArtist removes the link between a song and an artist (a no-op if
// absent) and recomputes the song's artist display string. Same return
// contract as LinkSongArtist.
func (l *Library) UnlinkSongArtist(songID, artistID int) (bool, error) {
	return l.mutateSongArtist(songID, artistID,
		"DELETE FROM song_artists WHERE song_id = ? AND artist_id = ?")
}

func (l *Library) mutateSongArtist(songID, artistID int, stmt string) (bool, error) {
	tx, err := l.store.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	songOK, err := rowExists(tx, "songs", songID)
	if err != nil {
		return false, &store.QueryError{Stmt: "SELECT song exists", Err: err}
	}
	artistOK, err := rowExists(tx, "artists", artistID)
	if err != nil {
		return false, &store.QueryError{Stmt: "SELECT artist exists", Err: err}
	}
	if !songOK || !artistOK {
		l.logger.WithFields(logrus.Fields{
			"song_id":   songID,
			"artist_id": artistID,
		}).Warn("Song/artist link change refers to a missing row")
		return false, nil
	}

	if _, err := tx.Exec(stmt, songID, artistID); err != nil {
		return false, &store.QueryError{Stmt: "song_artists mutation", Err: err}
	}

	if err := recomputeArtistString(tx, songID); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, &store.QueryError{Stmt: "COMMIT link change", Err: err}
	}
	return true, nil
}

// LinkSongGenre links a song to a genre and recomputes the song's genre
// display string. Same contract as LinkSongArtist.
func (l *Library) LinkSongGenre(songID, genreID int) (bool, error) {
	return l.mutateSongGenre(songID, genreID,
		"INSERT OR IGNORE INTO song_genres (song_id, genre_id) VALUES (?, ?)")
}

// UnlinkSongGenre removes a song/genre link (no-op if absent) and recomputes
// the genre display string.
func (l *Library) UnlinkSongGenre(songID, genreID int) (bool, error) {
	return l.mutateSongGenre(songID, genreID,
		"DELETE FROM song_genres WHERE song_id = ? AND genre_id = ?")
}

func (l *Library) mutateSongGenre(songID, genreID int, stmt string) (bool, error) {
	tx, err := l.store.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	songOK, err := rowExists(tx, "songs", songID)
	if err != nil {
		return false, &store.QueryError{Stmt: "SELECT song exists", Err: err}
	}
	genreOK, err := rowExists(tx, "genres", genreID)
	if err != nil {
		return false, &store.QueryError{Stmt: "SELECT genre exists", Err: err}
	}
	if !songOK || !genreOK {
		l.logger.WithFields(logrus.Fields{
			"song_id":  songID,
			"genre_id": genreID,
		}).Warn("Song/genre link change refers to a missing row")
		return false, nil
	}

	if _, err := tx.Exec(stmt, songID, genreID); err != nil {
		return false, &store.QueryError{Stmt: "song_genres mutation", Err: err}
	}

	if err := recomputeGenreString(tx, songID); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, &store.QueryError{Stmt: "COMMIT link change", Err: err}
	}
	return true, nil
}

// DeleteArtist removes an artist. The junction rows cascade away, and every
// song that was linked to the artist gets its display string recomputed in
// the same transaction. Returns false when the id does not exist.
func (l *Library) DeleteArtist(id int) (bool, error) {
	tx, err := l.store.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	affected, err := linkedSongIDs(tx, "song_artists", "artist_id", id)
	if err != nil {
		return false, err
	}

	result, err := tx.Exec("DELETE FROM artists WHERE id = ?", id)
	if err != nil {
		return false, &store.QueryError{Stmt: "DELETE artist", Err: err}
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}

	for _, songID := range affected {
		if err := recomputeArtistString(tx, songID); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, &store.QueryError{Stmt: "COMMIT artist delete", Err: err}
	}
	return true, nil
}

// DeleteGenre removes a genre and recomputes the genre display string of
// every song it was linked to. Returns false when the id does not exist.
func (l *Library) DeleteGenre(id int) (bool, error) {
	tx, err := l.store.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	affected, err := linkedSongIDs(tx, "song_genres", "genre_id", id)
	if err != nil {
		return false, err
	}

	result, err := tx.Exec("DELETE FROM genres WHERE id = ?", id)
	if err != nil {
		return false, &store.QueryError{Stmt: "DELETE genre", Err: err}
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}

	for _, songID := range affected {
		if err := recomputeGenreString(tx, songID); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, &store.QueryError{Stmt: "COMMIT genre delete", Err: err}
	}
	return true, nil
}

// linkedSongIDs collects the song ids referencing the given endpoint before
// it is deleted, so the derived strings can be recomputed afterwards.
func linkedSongIDs(tx *sql.Tx, table, column string, id int) ([]int, error) {
	rows, err := tx.Query("SELECT song_id FROM "+table+" WHERE "+column+" = ?", id)
	if err != nil {
		return nil, &store.QueryError{Stmt: "SELECT linked songs", Err: err}
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var songID int
		if err := rows.Scan(&songID); err != nil {
			return nil, err
		}
		ids = append(ids, songID)
	}
	return ids, rows.Err()
}

// recomputeArtistString re-derives a song's artist display string from its
// current links: names in link-insertion order joined with " & ". An empty
// link set yields an empty string — never "Unknown Artist", which is only a
// creation-time default.
func recomputeArtistString(tx *sql.Tx, songID int) error {
	names, err := linkedNames(tx, `
		SELECT a.name
		FROM artists a
		JOIN song_artists sa ON a.id = sa.artist_id
		WHERE sa.song_id = ?
		ORDER BY sa.id`, songID)
	if err != nil {
		return err
	}

	_, err = tx.Exec("UPDATE songs SET artist_name_string = ? WHERE id = ?",
		strings.Join(names, artistSeparator), songID)
	if err != nil {
		return &store.QueryError{Stmt: "UPDATE artist_name_string", Err: err}
	}
	return nil
}

// recomputeGenreString is the genre analogue of recomputeArtistString.
func recomputeGenreString(tx *sql.Tx, songID int) error {
	names, err := linkedNames(tx, `
		SELECT g.name
		FROM genres g
		JOIN song_genres sg ON g.id = sg.genre_id
		WHERE sg.song_id = ?
		ORDER BY sg.id`, songID)
	if err != nil {
		return err
	}

	_, err = tx.Exec("UPDATE songs SET genre_string = ? WHERE id = ?",
		strings.Join(names, genreSeparator), songID)
	if err != nil {
		return &store.QueryError{Stmt: "UPDATE genre_string", Err: err}
	}
	return nil
}

func linkedNames(tx *sql.Tx, query string, songID int) ([]string, error) {
	rows, err := tx.Query(query, songID)
	if err != nil {
		return nil, &store.QueryError{Stmt: "SELECT linked names", Err: err}
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
