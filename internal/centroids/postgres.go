package centroids

import (
	"context"
	"errors"
	"fmt"

	"github.com/justestif/spotify-mood-it/internal/db"
	"github.com/justestif/spotify-mood-it/internal/mood"
)

// CentroidRepository is the subset of db.CentroidRepository the store needs.
type CentroidRepository interface {
	Replace(ctx context.Context, fingerprint string, rows []db.CentroidRow) error
	Get(ctx context.Context, fingerprint string) ([]db.CentroidRow, error)
	DeleteExcept(ctx context.Context, fingerprint string) (int64, error)
}

// PostgresStore keeps tables in the mood_centroids table, one row per mood.
type PostgresStore struct {
	repo CentroidRepository
}

// NewPostgresStore creates a PostgresStore over repo.
func NewPostgresStore(repo CentroidRepository) *PostgresStore {
	return &PostgresStore{repo: repo}
}

// Load implements Store.
func (s *PostgresStore) Load(ctx context.Context, fingerprint string) (*mood.CentroidTable, error) {
	rows, err := s.repo.Get(ctx, fingerprint)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	table := &mood.CentroidTable{
		Fingerprint: fingerprint,
		Model:       rows[0].Model,
		Dimensions:  rows[0].Dimensions,
		BuiltAt:     rows[0].BuiltAt,
		Vectors:     make(map[string][]float32, len(rows)),
	}
	for _, row := range rows {
		if row.Dimensions != table.Dimensions || row.Model != table.Model {
			return nil, fmt.Errorf("centroid rows for %s disagree on model or dimensions", fingerprint)
		}
		table.Vectors[row.Mood] = row.Vector
	}
	return table, nil
}

// Save implements Store. Tables built for other fingerprints are removed
// once the new one is written.
func (s *PostgresStore) Save(ctx context.Context, table *mood.CentroidTable) error {
	rows := make([]db.CentroidRow, 0, len(table.Vectors))
	for _, m := range table.Moods() {
		rows = append(rows, db.CentroidRow{
			Fingerprint: table.Fingerprint,
			Mood:        m,
			Model:       table.Model,
			Dimensions:  table.Dimensions,
			Vector:      table.Vectors[m],
			BuiltAt:     table.BuiltAt,
		})
	}
	if err := s.repo.Replace(ctx, table.Fingerprint, rows); err != nil {
		return err
	}
	if _, err := s.repo.DeleteExcept(ctx, table.Fingerprint); err != nil {
		return err
	}
	return nil
}
