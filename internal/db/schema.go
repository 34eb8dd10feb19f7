package db

var schema = []string{
	`CREATE TABLE IF NOT EXISTS mood_centroids (
		fingerprint TEXT        NOT NULL,
		mood        TEXT        NOT NULL,
		model       TEXT        NOT NULL,
		dimensions  INTEGER     NOT NULL,
		vector      REAL[]      NOT NULL,
		built_at    TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (fingerprint, mood)
	)`,
	`CREATE TABLE IF NOT EXISTS artist_genres (
		artist_id  TEXT        NOT NULL,
		genre      TEXT        NOT NULL,
		position   INTEGER     NOT NULL,
		source     TEXT        NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (artist_id, genre)
	)`,
	`CREATE TABLE IF NOT EXISTS artist_genre_lookups (
		artist_id  TEXT        PRIMARY KEY,
		fetched_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS artist_genres_fetched_at_idx ON artist_genres (fetched_at)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id            TEXT        PRIMARY KEY,
		user_id       TEXT        NOT NULL,
		user_name     TEXT        NOT NULL DEFAULT '',
		access_token  TEXT        NOT NULL,
		refresh_token TEXT        NOT NULL DEFAULT '',
		token_expiry  TIMESTAMPTZ NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL,
		expires_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS sessions_expires_at_idx ON sessions (expires_at)`,
}
