package db

import "time"

// CentroidRow is one mood's centroid within a table identified by fingerprint.
type CentroidRow struct {
	Fingerprint string
	Mood        string
	Model       string
	Dimensions  int
	Vector      []float32
	BuiltAt     time.Time
}

// ArtistGenre is one cached genre for an artist.
type ArtistGenre struct {
	ArtistID  string
	Genre     string
	Position  int
	Source    string // "spotify" or "lastfm"
	FetchedAt time.Time
}

// Session is an authenticated web session and the Spotify token it acts with.
type Session struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`
	UserName     string    `db:"user_name"`
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	TokenExpiry  time.Time `db:"token_expiry"`
	CreatedAt    time.Time `db:"created_at"`
	ExpiresAt    time.Time `db:"expires_at"`
}
