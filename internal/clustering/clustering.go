// Package clustering groups tracks by embedding similarity using k-means and
// labels every group with the mood whose centroid is nearest to it.
package clustering

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/justestif/spotify-mood-it/internal/embedding"
	"github.com/justestif/spotify-mood-it/internal/lexicon"
)

// Track is a song with its embedded feature text.
type Track struct {
	ID      string
	URI     string
	Name    string
	Artist  string
	AddedAt time.Time
	Vector  []float32 // nil if the track could not be embedded
}

// Labeler names the mood nearest to a vector.
type Labeler interface {
	Nearest(v []float32) (string, float64, error)
}

// Config holds clustering parameters.
type Config struct {
	NumClusters    int // Number of clusters to create (default: 3)
	MinClusterSize int // Minimum tracks per group (smaller clusters become outliers)
}

// DefaultConfig returns the recommended default configuration.
func DefaultConfig() Config {
	return Config{
		NumClusters:    3,
		MinClusterSize: 3,
	}
}

// Group is a cluster of tracks labelled with its nearest mood.
type Group struct {
	ID         uuid.UUID
	Mood       string    // Nearest mood to the cluster center
	Similarity float64   // Cosine similarity between the center and the mood centroid
	Name       string    // Descriptive name: "Happy: Jan 15 - Feb 3, 2024"
	Tracks     []Track   // Sorted by add date
	StartDate  time.Time // Earliest track add date
	EndDate    time.Time // Latest track add date
}

// trackObservation wraps a Track to implement clusters.Observation interface.
type trackObservation struct {
	track  *Track
	coords clusters.Coordinates
}

func (o trackObservation) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o trackObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

// DetectMoodGroups partitions tracks into cfg.NumClusters groups by the
// euclidean distance of their unit-length vectors, which orders pairs the same
// way cosine similarity does.
//
// Tracks without a usable vector, tracks in clusters smaller than
// cfg.MinClusterSize and tracks in clusters that cannot be labelled are
// returned as outliers. Groups are ordered most recent first.
func DetectMoodGroups(tracks []Track, labeler Labeler, cfg Config) ([]Group, []Track, error) {
	if len(tracks) == 0 {
		return nil, nil, nil
	}

	if cfg.NumClusters <= 0 {
		cfg.NumClusters = DefaultConfig().NumClusters
	}

	var validTracks []*Track
	var outliers []Track

	for i := range tracks {
		t := &tracks[i]
		if len(t.Vector) > 0 && embedding.Magnitude(t.Vector) > 0 {
			validTracks = append(validTracks, t)
		} else {
			outliers = append(outliers, *t)
		}
	}

	// If fewer valid tracks than clusters, everything is an outlier
	if len(validTracks) < cfg.NumClusters {
		for _, t := range validTracks {
			outliers = append(outliers, *t)
		}
		return nil, outliers, nil
	}

	var obs clusters.Observations
	for _, t := range validTracks {
		obs = append(obs, trackObservation{track: t, coords: unitCoordinates(t.Vector)})
	}

	result, err := kmeans.New().Partition(obs, cfg.NumClusters)
	if err != nil {
		return nil, nil, fmt.Errorf("k-means partition: %w", err)
	}

	var groups []Group
	for _, cluster := range result {
		var clusterTracks []Track
		for _, o := range cluster.Observations {
			if to, ok := o.(trackObservation); ok {
				clusterTracks = append(clusterTracks, *to.track)
			}
		}

		if len(clusterTracks) == 0 {
			continue
		}
		if len(clusterTracks) < cfg.MinClusterSize {
			outliers = append(outliers, clusterTracks...)
			continue
		}

		moodName, similarity, err := labeler.Nearest(toFloat32(cluster.Center))
		if err != nil {
			outliers = append(outliers, clusterTracks...)
			continue
		}

		slices.SortFunc(clusterTracks, func(a, b Track) int {
			return a.AddedAt.Compare(b.AddedAt)
		})

		startDate := clusterTracks[0].AddedAt
		endDate := clusterTracks[len(clusterTracks)-1].AddedAt

		groups = append(groups, Group{
			ID:         uuid.New(),
			Mood:       moodName,
			Similarity: similarity,
			Name:       formatGroupName(lexicon.DisplayName(moodName), startDate, endDate),
			Tracks:     clusterTracks,
			StartDate:  startDate,
			EndDate:    endDate,
		})
	}

	slices.SortFunc(groups, func(a, b Group) int {
		return b.StartDate.Compare(a.StartDate) // Descending
	})

	return groups, outliers, nil
}

// unitCoordinates converts v to a unit-length coordinate vector.
func unitCoordinates(v []float32) clusters.Coordinates {
	n := embedding.Magnitude(v)
	coords := make(clusters.Coordinates, len(v))
	for i, x := range v {
		coords[i] = float64(x) / n
	}
	return coords
}

func toFloat32(c clusters.Coordinates) []float32 {
	v := make([]float32, len(c))
	for i, x := range c {
		v[i] = float32(x)
	}
	return v
}

// formatGroupName combines a mood name with date range.
func formatGroupName(moodName string, start, end time.Time) string {
	const dateFormat = "Jan 2, 2006"
	startStr := start.Format(dateFormat)
	endStr := end.Format(dateFormat)

	if startStr == endStr {
		return fmt.Sprintf("%s: %s", moodName, startStr)
	}
	return fmt.Sprintf("%s: %s - %s", moodName, startStr, endStr)
}
