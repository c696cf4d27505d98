package core

import (
	"context"
	"errors"

	"github.com/JonMunkholm/fileimport/internal/fileimport"
	"github.com/JonMunkholm/fileimport/internal/flatrate"
)

var (
	// ErrNoDatabase is returned by database-backed operations when the
	// service was built without a connection pool.
	ErrNoDatabase = errors.New("no database configured")

	// ErrFileTooLarge is returned when an input exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")
)

// Database is the part of *pgxpool.Pool the service depends on.
type Database interface {
	flatrate.DBTX
	flatrate.Beginner
	flatrate.Copier
	Ping(ctx context.Context) error
}

// ReadOptions controls how a file is turned into logical lines.
type ReadOptions struct {
	Charset        string
	Quote          rune
	Multiline      bool
	ReplaceInvalid bool
	MergePolicy    fileimport.MergePolicy
}

func (o ReadOptions) reader() fileimport.Reader {
	return fileimport.Reader{
		Charset:        o.Charset,
		Quote:          o.Quote,
		Multiline:      o.Multiline,
		ReplaceInvalid: o.ReplaceInvalid,
		MergePolicy:    o.MergePolicy,
	}
}

// PreviewOptions controls PreviewFile.
type PreviewOptions struct {
	ReadOptions
	MaxLines int
	Policy   fileimport.PreviewPolicy
}

// PreviewResult is the outcome of PreviewFile.
type PreviewResult struct {
	FileName     string   `json:"fileName"`
	Charset      string   `json:"charset"`
	Bytes        int64    `json:"bytes"`
	LogicalLines int      `json:"logicalLines"`
	Lines        []string `json:"lines"`
	Preview      string   `json:"preview"`
	Truncated    bool     `json:"truncated"`
	DurationMs   int64    `json:"durationMs"`
}

// StageOptions controls StageFlatrate.
type StageOptions struct {
	ReadOptions
	ClientID  int64
	Delimiter rune
}

// ImportStatus reports running imports and the last finished run.
type ImportStatus struct {
	Limiter ImportLimiterStatus `json:"limiter"`
	LastRun *flatrate.Result    `json:"lastRun,omitempty"`
}
