package models

import "time"

// Song represents a single catalogued track, local or remote-only.
// ArtistNameString and GenreString are denormalized display fields derived
// from the link tables; they are recomputed whenever links change.
type Song struct {
	ID               int       `json:"id"`
	Title            string    `json:"title"`
	ArtistNameString string    `json:"artistNameString"`
	GenreString      string    `json:"genreString,omitempty"`
	Duration         int       `json:"duration"` // in seconds, 0 = unknown
	FilePath         string    `json:"-"`        // empty for remote-only songs
	AlbumArt         string    `json:"albumArt,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Artist is created explicitly by the user and linked to zero or more songs.
type Artist struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	CoverImagePath string `json:"coverImagePath,omitempty"`
}

// Genre is created explicitly by the user and linked to zero or more songs.
type Genre struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`
}

// Playlist represents a user-created playlist. SongCount is derived from the
// junction table on read.
type Playlist struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CoverImage  string    `json:"coverImage,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	SongCount   int       `json:"songCount"`
}

// Settings is the singleton application settings row (id is always 1).
// CurrentSongID/CurrentPlaylistID of 0 mean "none".
type Settings struct {
	Theme             string    `json:"theme"`
	Layout            string    `json:"layout"`
	CurrentSongID     int       `json:"currentSongId"`
	CurrentPlaylistID int       `json:"currentPlaylistId"`
	LastPlaybackTime  int       `json:"lastPlaybackTime"` // in seconds
	UpdatedAt         time.Time `json:"updatedAt"`
}

// ScanRecord is what the file scanner extracts for one audio file. The
// artist/genre strings land in the denormalized song columns only; they do
// not create artist or genre rows.
type ScanRecord struct {
	Title            string `json:"title"`
	Path             string `json:"path"`
	Duration         int    `json:"duration"`
	ArtistNameString string `json:"artistNameString"`
	GenreString      string `json:"genreString"`
	AlbumArt         string `json:"albumArt,omitempty"`
}

// RemoteTrack is a track returned by the remote search API. It is consumed
// read-only and never persisted.
type RemoteTrack struct {
	ID       int64        `json:"id"`
	Title    string       `json:"title"`
	Artist   RemoteArtist `json:"artist"`
	Album    RemoteAlbum  `json:"album"`
	Duration int          `json:"duration"`
	Preview  string       `json:"preview"`
}

// RemoteArtist is the artist object embedded in remote search results.
type RemoteArtist struct {
	Name string `json:"name"`
}

// RemoteAlbum is the album object embedded in remote search results.
type RemoteAlbum struct {
	Cover string `json:"cover"`
}
