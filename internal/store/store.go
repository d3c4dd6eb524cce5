package store

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Store wraps a *sql.DB and owns the persistent schema: tables, referential
// integrity rules and the singleton settings row. It is opened once at
// process start and never reopened implicitly. The underlying *sql.DB is
// concurrency-safe; multi-statement operations that must not interleave are
// run inside transactions by the callers in internal/library.
type Store struct {
	conn   *sql.DB
	logger *logrus.Logger
}

// Open opens (or creates) the SQLite database at the provided path, applies
// the pragmas the schema relies on (WAL, foreign_keys=ON) and ensures all
// tables exist. All failures are returned as an *InitError; callers treat
// them as fatal. Caller should Close() the store when finished.
func Open(dbPath string) (*Store, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	conn, err := sql.Open("sqlite3", dbPath+"?cache=shared&mode=rwc")
	if err != nil {
		return nil, &InitError{Err: err}
	}

	// SQLite works better with few connections
	conn.SetMaxOpenConns(5)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(15 * time.Minute)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=2000;",
		"PRAGMA temp_store=memory;",
		"PRAGMA foreign_keys=ON;", // junction cascade deletes depend on this
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	s := &Store{
		conn:   conn,
		logger: logger,
	}

	if err := s.createTables(); err != nil {
		conn.Close()
		return nil, &InitError{Err: err}
	}

	if err := s.seedSettings(); err != nil {
		conn.Close()
		return nil, &InitError{Err: err}
	}

	logger.WithField("db_path", dbPath).Info("Store initialized successfully")
	return s, nil
}

// createTables creates tables and indices if they do not already exist. It is
// idempotent and safe to call on every startup.
func (s *Store) createTables() error {
	songsTable := `
	CREATE TABLE IF NOT EXISTS songs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		artist_name_string TEXT NOT NULL DEFAULT '',
		genre_string TEXT NOT NULL DEFAULT '',
		duration INTEGER DEFAULT 0,
		file_path TEXT UNIQUE,
		album_art TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	artistsTable := `
	CREATE TABLE IF NOT EXISTS artists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		cover_image_path TEXT
	);`

	genresTable := `
	CREATE TABLE IF NOT EXISTS genres (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		icon TEXT,
		color TEXT
	);`

	playlistsTable := `
	CREATE TABLE IF NOT EXISTS playlists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		description TEXT,
		cover_image TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	// The junction tables keep an AUTOINCREMENT id so link-insertion order
	// survives row deletion; artist display strings are derived in that order.
	playlistSongsTable := `
	CREATE TABLE IF NOT EXISTS playlist_songs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		playlist_id INTEGER NOT NULL,
		song_id INTEGER NOT NULL,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (playlist_id) REFERENCES playlists(id) ON DELETE CASCADE,
		FOREIGN KEY (song_id) REFERENCES songs(id) ON DELETE CASCADE,
		UNIQUE(playlist_id, song_id)
	);`

	songArtistsTable := `
	CREATE TABLE IF NOT EXISTS song_artists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		song_id INTEGER NOT NULL,
		artist_id INTEGER NOT NULL,
		FOREIGN KEY (song_id) REFERENCES songs(id) ON DELETE CASCADE,
		FOREIGN KEY (artist_id) REFERENCES artists(id) ON DELETE CASCADE,
		UNIQUE(song_id, artist_id)
	);`

	songGenresTable := `
	CREATE TABLE IF NOT EXISTS song_genres (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		song_id INTEGER NOT NULL,
		genre_id INTEGER NOT NULL,
		FOREIGN KEY (song_id) REFERENCES songs(id) ON DELETE CASCADE,
		FOREIGN KEY (genre_id) REFERENCES genres(id) ON DELETE CASCADE,
		UNIQUE(song_id, genre_id)
	);`

	settingsTable := `
	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		theme TEXT DEFAULT 'dark',
		layout TEXT DEFAULT 'list',
		current_song_id INTEGER,
		current_playlist_id INTEGER,
		last_playback_time INTEGER DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	indices := []string{
		"CREATE INDEX IF NOT EXISTS idx_songs_title ON songs(title);",
		"CREATE INDEX IF NOT EXISTS idx_songs_file_path ON songs(file_path);",
		"CREATE INDEX IF NOT EXISTS idx_playlist_songs_playlist ON playlist_songs(playlist_id);",
		"CREATE INDEX IF NOT EXISTS idx_song_artists_song ON song_artists(song_id);",
		"CREATE INDEX IF NOT EXISTS idx_song_artists_artist ON song_artists(artist_id);",
		"CREATE INDEX IF NOT EXISTS idx_song_genres_song ON song_genres(song_id);",
		"CREATE INDEX IF NOT EXISTS idx_song_genres_genre ON song_genres(genre_id);",
	}

	tables := []string{
		songsTable, artistsTable, genresTable, playlistsTable,
		playlistSongsTable, songArtistsTable, songGenresTable, settingsTable,
	}
	for _, table := range tables {
		if _, err := s.conn.Exec(table); err != nil {
			return err
		}
	}

	for _, index := range indices {
		if _, err := s.conn.Exec(index); err != nil {
			return err
		}
	}

	return nil
}

// seedSettings inserts the singleton settings row with defaults if it does
// not exist yet. Exactly one row (id=1) ever exists.
func (s *Store) seedSettings() error {
	var count int
	if err := s.conn.QueryRow("SELECT COUNT(*) FROM settings WHERE id = 1").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	_, err := s.conn.Exec(
		"INSERT INTO settings (id, theme, layout) VALUES (1, ?, ?)",
		"dark", "list")
	if err != nil {
		return err
	}

	s.logger.Info("Default settings initialized")
	return nil
}

// Execute runs a single parameterized mutation. Errors are never swallowed at
// this layer: unique violations come back as ErrConstraint, everything else
// as a *QueryError carrying the original cause.
func (s *Store) Execute(stmt string, args ...interface{}) (sql.Result, error) {
	result, err := s.conn.Exec(stmt, args...)
	if err != nil {
		return nil, wrapExec(stmtLabel(stmt), err)
	}
	return result, nil
}

// Query runs a parameterized read returning multiple rows.
func (s *Store) Query(stmt string, args ...interface{}) (*sql.Rows, error) {
	rows, err := s.conn.Query(stmt, args...)
	if err != nil {
		return nil, &QueryError{Stmt: stmtLabel(stmt), Err: err}
	}
	return rows, nil
}

// QueryRow runs a parameterized read expected to return at most one row.
// Errors surface at Scan time, per database/sql convention.
func (s *Store) QueryRow(stmt string, args ...interface{}) *sql.Row {
	return s.conn.QueryRow(stmt, args...)
}

// Begin starts a transaction. Multi-step operations (link then recompute
// derived field) run inside one so a crash between steps cannot leave a
// derived column stale.
func (s *Store) Begin() (*sql.Tx, error) {
	tx, err := s.conn.Begin()
	if err != nil {
		return nil, &QueryError{Stmt: "BEGIN", Err: err}
	}
	return tx, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// stmtLabel reduces a SQL statement to a short single-line label for error
// messages and logs.
func stmtLabel(stmt string) string {
	label := strings.Join(strings.Fields(stmt), " ")
	if len(label) > 60 {
		label = label[:60] + "..."
	}
	return label
}
