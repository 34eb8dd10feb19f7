package clustering

import (
	"fmt"
	"strings"
)

const (
	sampleTrackCount = 3
	dateFormat       = "2006-01-02"
)

// FormatGroupSummary returns a human-readable summary of mood groups.
// Shows mood, date range, track count, and first 3 sample tracks for each group.
// Outliers are summarized by count only.
func FormatGroupSummary(groups []Group, outliers []Track) string {
	var sb strings.Builder

	totalTracks := len(outliers)
	for _, g := range groups {
		totalTracks += len(g.Tracks)
	}

	if len(groups) == 0 {
		fmt.Fprintf(&sb, "No mood groups found from %d tracks", totalTracks)
		if len(outliers) > 0 {
			fmt.Fprintf(&sb, " (%d outliers skipped)", len(outliers))
		}
		sb.WriteString("\n")
		return sb.String()
	}

	groupWord := "mood group"
	if len(groups) > 1 {
		groupWord = "mood groups"
	}

	fmt.Fprintf(&sb, "Found %d %s from %d tracks", len(groups), groupWord, totalTracks)
	if len(outliers) > 0 {
		fmt.Fprintf(&sb, " (%d outliers skipped)", len(outliers))
	}
	sb.WriteString("\n")

	for i, g := range groups {
		sb.WriteString("\n")
		sb.WriteString(formatGroup(i+1, g))
	}

	return sb.String()
}

// formatGroup formats a single group with its sample tracks.
func formatGroup(num int, g Group) string {
	var sb strings.Builder

	trackWord := "track"
	if len(g.Tracks) > 1 {
		trackWord = "tracks"
	}

	fmt.Fprintf(&sb, "Group %d: %s (similarity %.3f) %s to %s (%d %s)\n",
		num, g.Mood, g.Similarity,
		g.StartDate.Format(dateFormat), g.EndDate.Format(dateFormat),
		len(g.Tracks), trackWord)

	sampleCount := min(sampleTrackCount, len(g.Tracks))
	for _, track := range g.Tracks[:sampleCount] {
		fmt.Fprintf(&sb, "  • %q - %s\n", track.Name, track.Artist)
	}

	if remaining := len(g.Tracks) - sampleTrackCount; remaining > 0 {
		fmt.Fprintf(&sb, "  ... and %d more\n", remaining)
	}

	return sb.String()
}
