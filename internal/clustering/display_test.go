package clustering

import (
	"strings"
	"testing"
	"time"
)

func TestFormatGroupSummary(t *testing.T) {
	makeTrack := func(name, artist string, daysAgo int) Track {
		return Track{
			ID:      name,
			Name:    name,
			Artist:  artist,
			AddedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -daysAgo),
		}
	}

	makeGroup := func(mood string, tracks []Track) Group {
		if len(tracks) == 0 {
			return Group{Mood: mood}
		}
		return Group{
			Mood:       mood,
			Similarity: 0.8123,
			Tracks:     tracks,
			StartDate:  tracks[0].AddedAt,
			EndDate:    tracks[len(tracks)-1].AddedAt,
		}
	}

	tests := []struct {
		name           string
		groups         []Group
		outliers       []Track
		wantContains   []string
		wantNotContain []string
	}{
		{
			name: "no groups no outliers",
			wantContains: []string{
				"No mood groups found from 0 tracks",
			},
			wantNotContain: []string{
				"outliers",
			},
		},
		{
			name:     "no groups with outliers",
			outliers: []Track{makeTrack("Song1", "Artist1", 10)},
			wantContains: []string{
				"No mood groups found from 1 tracks",
				"(1 outliers skipped)",
			},
		},
		{
			name: "single group with 3 tracks",
			groups: []Group{
				makeGroup("happy", []Track{
					makeTrack("Song1", "Artist1", 10),
					makeTrack("Song2", "Artist2", 9),
					makeTrack("Song3", "Artist3", 8),
				}),
			},
			wantContains: []string{
				"Found 1 mood group from 3 tracks",
				"Group 1: happy (similarity 0.812)",
				"2024-05-22 to 2024-05-24",
				"(3 tracks)",
				`"Song1" - Artist1`,
				`"Song3" - Artist3`,
			},
			wantNotContain: []string{
				"more",
				"outliers",
			},
		},
		{
			name: "five tracks shows and N more",
			groups: []Group{
				makeGroup("chill", []Track{
					makeTrack("Song1", "Artist1", 10),
					makeTrack("Song2", "Artist2", 9),
					makeTrack("Song3", "Artist3", 8),
					makeTrack("Song4", "Artist4", 7),
					makeTrack("Song5", "Artist5", 6),
				}),
			},
			wantContains: []string{
				"Found 1 mood group from 5 tracks",
				"... and 2 more",
			},
			wantNotContain: []string{
				`"Song4"`,
				`"Song5"`,
			},
		},
		{
			name: "multiple groups with outliers",
			groups: []Group{
				makeGroup("energetic", []Track{
					makeTrack("G1Song1", "Artist1", 30),
					makeTrack("G1Song2", "Artist2", 29),
				}),
				makeGroup("sad", []Track{
					makeTrack("G2Song1", "ArtistA", 10),
				}),
			},
			outliers: []Track{
				makeTrack("Outlier1", "OutlierArtist", 50),
				makeTrack("Outlier2", "OutlierArtist", 51),
			},
			wantContains: []string{
				"Found 2 mood groups from 5 tracks",
				"(2 outliers skipped)",
				"Group 1: energetic",
				"Group 2: sad",
				"(1 track)",
			},
			wantNotContain: []string{
				"Outlier1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatGroupSummary(tt.groups, tt.outliers)

			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("FormatGroupSummary() missing expected content %q\nGot:\n%s", want, got)
				}
			}

			for _, notWant := range tt.wantNotContain {
				if strings.Contains(got, notWant) {
					t.Errorf("FormatGroupSummary() contains unexpected content %q\nGot:\n%s", notWant, got)
				}
			}
		})
	}
}
