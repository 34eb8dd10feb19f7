package mood

import (
	"fmt"
	"strings"
)

// FeatureSource tells which metadata produced a track's feature text.
type FeatureSource string

// Feature sources.
const (
	SourceGenres       FeatureSource = "genres"
	SourceFallbackText FeatureSource = "fallback_text"
)

// Track is the per-request feature record for one liked track.
type Track struct {
	ID       string
	URI      string
	Name     string
	Artist   string
	ArtistID string
	Genres   []string
}

// ExtractFeatureText derives the text to embed for t.
//
// With genres it is every genre joined by a single space; without, it is
// "<name> by <artist>". Both are lower-cased.
func ExtractFeatureText(t Track) (string, FeatureSource) {
	if len(t.Genres) > 0 {
		return strings.ToLower(strings.Join(t.Genres, " ")), SourceGenres
	}
	return strings.ToLower(fmt.Sprintf("%s by %s", t.Name, t.Artist)), SourceFallbackText
}
