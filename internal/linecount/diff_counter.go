package linecount

import "strings"

const (
	diffFileHeaderPrefixConstant = "diff --git "
	hunkHeaderPrefixConstant     = "@@"
	additionMarkerConstant       = '+'
	removalMarkerConstant        = '-'
	diffLineSeparatorConstant    = "\n"
)

// DiffCounts holds the added and removed content lines of a unified diff.
type DiffCounts struct {
	Added   int
	Removed int
}

// Total returns the number of changed lines.
func (counts DiffCounts) Total() int {
	return counts.Added + counts.Removed
}

// CountDiff counts content lines starting with a single addition or removal marker.
// Lines between a "diff --git" header and the first hunk header are file metadata
// and never count, so "---" and "+++" file headers are excluded while a removed
// "-- comment" line inside a hunk is counted.
func CountDiff(diffText string) DiffCounts {
	var counts DiffCounts
	insideHunk := false

	for _, line := range strings.Split(diffText, diffLineSeparatorConstant) {
		switch {
		case strings.HasPrefix(line, diffFileHeaderPrefixConstant):
			insideHunk = false
			continue
		case strings.HasPrefix(line, hunkHeaderPrefixConstant):
			insideHunk = true
			continue
		case !insideHunk || len(line) == 0:
			continue
		}

		switch line[0] {
		case additionMarkerConstant:
			counts.Added++
		case removalMarkerConstant:
			counts.Removed++
		}
	}
	return counts
}
