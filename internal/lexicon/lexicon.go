// Package lexicon loads the mood to genre-term mapping used to build mood centroids.
package lexicon

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Sentinel errors.
var (
	// ErrInvalidLexicon is returned when the lexicon source is missing, malformed or empty.
	ErrInvalidLexicon = errors.New("invalid mood lexicon")

	// ErrUnknownMood is returned when a mood is not present in the lexicon.
	ErrUnknownMood = errors.New("unknown mood")
)

//go:embed default.json
var defaultLexicon []byte

// Lexicon maps mood identifiers to ordered genre terms. It is immutable after load.
type Lexicon struct {
	moods []string
	terms map[string][]string
}

// New builds a Lexicon from a mood to terms mapping.
// Mood names are trimmed and lower-cased; two keys that normalize to the same
// mood are rejected. Moods with no terms are accepted here and rejected at
// centroid build time.
func New(entries map[string][]string) (*Lexicon, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no moods defined", ErrInvalidLexicon)
	}

	l := &Lexicon{
		moods: make([]string, 0, len(entries)),
		terms: make(map[string][]string, len(entries)),
	}

	for name, terms := range entries {
		mood := Normalize(name)
		if mood == "" {
			return nil, fmt.Errorf("%w: empty mood name", ErrInvalidLexicon)
		}
		if _, dup := l.terms[mood]; dup {
			return nil, fmt.Errorf("%w: duplicate mood %q", ErrInvalidLexicon, mood)
		}

		cleaned := make([]string, 0, len(terms))
		for _, term := range terms {
			term = strings.TrimSpace(term)
			if term == "" {
				continue
			}
			cleaned = append(cleaned, term)
		}

		l.terms[mood] = cleaned
		l.moods = append(l.moods, mood)
	}

	slices.Sort(l.moods)
	return l, nil
}

// Default returns the lexicon bundled with the binary.
func Default() (*Lexicon, error) {
	return Parse(defaultLexicon, FormatJSON)
}

// Format identifies a lexicon encoding.
type Format string

// Supported lexicon formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Load reads a lexicon file. The format is chosen from the file extension
// (.json, .yaml, .yml).
func Load(path string) (*Lexicon, error) {
	var format Format
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		format = FormatJSON
	case ".yaml", ".yml":
		format = FormatYAML
	default:
		return nil, fmt.Errorf("%w: unsupported file extension for %s", ErrInvalidLexicon, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalidLexicon, path, err)
	}

	return Parse(data, format)
}

// Parse decodes a lexicon of the form {mood: [term, ...]}.
func Parse(data []byte, format Format) (*Lexicon, error) {
	var entries map[string][]string

	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("%w: parsing json: %v", ErrInvalidLexicon, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("%w: parsing yaml: %v", ErrInvalidLexicon, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidLexicon, format)
	}

	return New(entries)
}

// Normalize returns the canonical form of a mood identifier.
func Normalize(mood string) string {
	return strings.ToLower(strings.TrimSpace(mood))
}

// DisplayName returns mood with its first letter upper-cased, for playlist
// and group names.
func DisplayName(mood string) string {
	mood = Normalize(mood)
	r, size := utf8.DecodeRuneInString(mood)
	if r == utf8.RuneError {
		return mood
	}
	return string(unicode.ToUpper(r)) + mood[size:]
}

// Moods returns the mood identifiers in sorted order.
func (l *Lexicon) Moods() []string {
	return slices.Clone(l.moods)
}

// Len returns the number of moods.
func (l *Lexicon) Len() int {
	return len(l.moods)
}

// Terms returns the genre terms for a mood, or ErrUnknownMood.
func (l *Lexicon) Terms(mood string) ([]string, error) {
	terms, ok := l.terms[Normalize(mood)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMood, mood)
	}
	return slices.Clone(terms), nil
}

// Digest returns a stable SHA-256 over moods (sorted) and their terms (in order).
// Two lexicons with the same digest produce the same centroids for a given embedder.
func (l *Lexicon) Digest() string {
	h := sha256.New()
	for _, mood := range l.moods {
		h.Write([]byte(mood))
		h.Write([]byte{0})
		for _, term := range l.terms[mood] {
			h.Write([]byte(term))
			h.Write([]byte{0x1f})
		}
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}
