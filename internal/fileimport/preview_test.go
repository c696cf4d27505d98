package fileimport

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numberedLines(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i+1)
	}
	return lines
}

func TestBuildPreview_WithinLimit(t *testing.T) {
	lines := numberedLines(100)

	got := BuildPreview(lines, 100)

	assert.Equal(t, strings.Join(lines, "\n")+"\n", got)
	assert.NotContains(t, got, TruncationMarker)
}

func TestBuildPreview_CapTruncates(t *testing.T) {
	lines := numberedLines(101)

	got := BuildPreview(lines, 100)

	want := strings.Join(lines[:100], "\n") + "\n" + TruncationMarker
	assert.Equal(t, want, got)
	assert.NotContains(t, got, "line 101")
}

func TestBuildPreviewWith_LegacyKeepsEveryLine(t *testing.T) {
	lines := numberedLines(150)

	got := BuildPreviewWith(lines, 100, PreviewLegacy)

	require.True(t, strings.HasSuffix(got, "line 150\n"+TruncationMarker))
	assert.Equal(t, 151, strings.Count(got, "\n"))
}

func TestBuildPreview_Empty(t *testing.T) {
	assert.Equal(t, "", BuildPreview(nil, 100))
	assert.Equal(t, "", BuildPreviewWith([]string{}, 10, PreviewLegacy))
}

func TestBuildPreview_DefaultLimit(t *testing.T) {
	lines := numberedLines(DefaultPreviewLines + 1)

	got := BuildPreview(lines, 0)

	assert.True(t, strings.HasSuffix(got, TruncationMarker))
	assert.Equal(t, DefaultPreviewLines+1, strings.Count(got, "\n"))
}

func TestBuildPreview_MultilineEntries(t *testing.T) {
	got := BuildPreview([]string{"a,\"b\nc\",d", "e,f"}, 100)

	assert.Equal(t, "a,\"b\nc\",d\ne,f\n", got)
}

func TestParsePreviewPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    PreviewPolicy
		wantErr bool
	}{
		{in: "", want: PreviewCap},
		{in: "cap", want: PreviewCap},
		{in: " Legacy ", want: PreviewLegacy},
		{in: "all", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePreviewPolicy(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownPolicy)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
