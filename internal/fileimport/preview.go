package fileimport

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPolicy is returned for a preview or merge policy name that is
// not recognised.
var ErrUnknownPolicy = errors.New("unknown policy")

// DefaultPreviewLines is the number of logical lines shown in a preview.
const DefaultPreviewLines = 100

// TruncationMarker terminates a preview that did not fit.
const TruncationMarker = "......................................................\n"

// PreviewPolicy decides what a preview contains once the file has more
// lines than the preview limit.
type PreviewPolicy string

const (
	// PreviewCap shows the first maxLines lines followed by the marker.
	PreviewCap PreviewPolicy = "cap"

	// PreviewLegacy shows every line followed by the marker. This is how the
	// desktop wizard always behaved.
	PreviewLegacy PreviewPolicy = "legacy"
)

// ParsePreviewPolicy converts a configuration value to a PreviewPolicy.
// An empty value selects PreviewCap.
func ParsePreviewPolicy(s string) (PreviewPolicy, error) {
	switch PreviewPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PreviewCap:
		return PreviewCap, nil
	case PreviewLegacy:
		return PreviewLegacy, nil
	default:
		return "", fmt.Errorf("%w: preview policy %q (want %q or %q)", ErrUnknownPolicy, s, PreviewCap, PreviewLegacy)
	}
}

// BuildPreview renders lines for display with PreviewCap.
func BuildPreview(lines []string, maxLines int) string {
	return BuildPreviewWith(lines, maxLines, PreviewCap)
}

// BuildPreviewWith renders lines for display, each terminated by "\n".
// When there are more than maxLines lines the result ends with
// TruncationMarker. maxLines <= 0 selects DefaultPreviewLines.
func BuildPreviewWith(lines []string, maxLines int, policy PreviewPolicy) string {
	if maxLines <= 0 {
		maxLines = DefaultPreviewLines
	}

	truncated := len(lines) > maxLines
	shown := lines
	if truncated && policy != PreviewLegacy {
		shown = lines[:maxLines]
	}

	var b strings.Builder
	for _, line := range shown {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if truncated {
		b.WriteString(TruncationMarker)
	}
	return b.String()
}
