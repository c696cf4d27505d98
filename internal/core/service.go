package core

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/JonMunkholm/fileimport/internal/config"
	"github.com/JonMunkholm/fileimport/internal/fileimport"
	"github.com/JonMunkholm/fileimport/internal/flatrate"
	"github.com/JonMunkholm/fileimport/internal/logging"
)

// Service provides file previews and flat-rate imports.
type Service struct {
	db      Database
	cfg     config.ImportConfig
	limiter *ImportLimiter

	mu      sync.RWMutex
	lastRun *flatrate.Result
}

// NewService creates a Service. db may be nil for file-only use; pass a
// literal nil rather than a nil *pgxpool.Pool.
func NewService(db Database, cfg config.ImportConfig) *Service {
	return &Service{
		db:      db,
		cfg:     cfg,
		limiter: NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
	}
}

// DefaultReadOptions returns the configured read settings.
func (s *Service) DefaultReadOptions() ReadOptions {
	merge, err := fileimport.ParseMergePolicy(s.cfg.MergePolicy)
	if err != nil {
		merge = fileimport.MergeStartLine
	}
	return ReadOptions{
		Charset:        s.cfg.Charset,
		Quote:          s.cfg.QuoteRune(),
		Multiline:      s.cfg.Multiline,
		ReplaceInvalid: s.cfg.ReplaceInvalid,
		MergePolicy:    merge,
	}
}

// DefaultPreviewOptions returns the configured preview settings.
func (s *Service) DefaultPreviewOptions() PreviewOptions {
	policy, err := fileimport.ParsePreviewPolicy(s.cfg.PreviewPolicy)
	if err != nil {
		policy = fileimport.PreviewCap
	}
	return PreviewOptions{
		ReadOptions: s.DefaultReadOptions(),
		MaxLines:    s.cfg.PreviewMaxLines,
		Policy:      policy,
	}
}

// DefaultStageOptions returns the configured staging settings.
func (s *Service) DefaultStageOptions() StageOptions {
	return StageOptions{
		ReadOptions: s.DefaultReadOptions(),
		ClientID:    s.cfg.ClientID,
		Delimiter:   s.cfg.DelimiterRune(),
	}
}

// HasDatabase reports whether the service was built with a database.
func (s *Service) HasDatabase() bool {
	return s.db != nil
}

// Ping checks the database connection.
func (s *Service) Ping(ctx context.Context) error {
	if s.db == nil {
		return ErrNoDatabase
	}
	return s.db.Ping(ctx)
}

// EnsureSchema creates the import tables when they do not exist.
func (s *Service) EnsureSchema(ctx context.Context) error {
	if s.db == nil {
		return ErrNoDatabase
	}
	return flatrate.EnsureSchema(ctx, s.db)
}

// ReadLines reads r into logical lines. Input larger than the configured
// maximum file size fails with ErrFileTooLarge.
func (s *Service) ReadLines(ctx context.Context, r io.Reader, opts ReadOptions) ([]string, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	limit := s.cfg.MaxFileSize
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	counter := fileimport.NewCountingReader(r, limit)

	lines, err := opts.reader().Read(counter)
	if limit > 0 && counter.BytesRead > limit {
		return nil, counter.BytesRead, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, limit)
	}
	if err != nil {
		return nil, counter.BytesRead, err
	}
	return lines, counter.BytesRead, nil
}

// PreviewFile reads r and renders the preview shown before an import.
func (s *Service) PreviewFile(ctx context.Context, fileName string, r io.Reader, opts PreviewOptions) (*PreviewResult, error) {
	start := time.Now()
	logger := logging.WithFields(ctx, "file", fileName, "charset", opts.Charset)

	lines, n, err := s.ReadLines(ctx, r, opts.ReadOptions)
	if err != nil {
		logger.Warn("preview failed", "error", err)
		return nil, fmt.Errorf("read %s: %w", fileName, err)
	}

	maxLines := opts.MaxLines
	if maxLines <= 0 {
		maxLines = fileimport.DefaultPreviewLines
	}
	shown := lines
	if len(shown) > maxLines && opts.Policy != fileimport.PreviewLegacy {
		shown = shown[:maxLines]
	}

	result := &PreviewResult{
		FileName:     fileName,
		Charset:      opts.Charset,
		Bytes:        n,
		LogicalLines: len(lines),
		Lines:        shown,
		Preview:      fileimport.BuildPreviewWith(lines, maxLines, opts.Policy),
		Truncated:    len(lines) > maxLines,
		DurationMs:   time.Since(start).Milliseconds(),
	}

	logger.Debug("preview built",
		"bytes", n,
		"logical_lines", result.LogicalLines,
		"truncated", result.Truncated,
	)
	return result, nil
}

// StageFlatrate reads r and loads its lines into the staging table.
func (s *Service) StageFlatrate(ctx context.Context, fileName string, r io.Reader, opts StageOptions) (*flatrate.StageResult, error) {
	if s.db == nil {
		return nil, ErrNoDatabase
	}
	logger := logging.WithFields(ctx, "file", fileName, "client_id", opts.ClientID)

	lines, _, err := s.ReadLines(ctx, r, opts.ReadOptions)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fileName, err)
	}

	result, err := flatrate.Stage(ctx, s.db, lines, flatrate.StageParams{
		ClientID:  opts.ClientID,
		Delimiter: opts.Delimiter,
	})
	if err != nil {
		logger.Error("staging failed", "error", err)
		return nil, fmt.Errorf("stage %s: %w", fileName, err)
	}

	logger.Info("file staged",
		"run_id", result.RunID,
		"rows", result.TotalRows,
		"staged", result.Staged,
		"failed", len(result.FailedRows),
	)
	return &result, nil
}

// RunFlatrateImport promotes staged rows to contracts. At most the
// configured number of runs execute at once; others wait for a slot and
// fail with ErrTooManyImports when none frees up in time.
func (s *Service) RunFlatrateImport(ctx context.Context, params flatrate.Params) (*flatrate.Result, error) {
	if s.db == nil {
		return nil, ErrNoDatabase
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	logger := logging.WithFields(ctx, requestAttrs(ctx)...)
	logger.Info("flatrate import started",
		"client_id", params.ClientID,
		"delete_old_imported", params.DeleteOldImported,
	)

	result, err := flatrate.NewProcess(s.db, logger).Run(ctx, params)
	if err != nil {
		logger.Error("flatrate import failed", "client_id", params.ClientID, "error", err)
		return nil, err
	}

	s.mu.Lock()
	s.lastRun = result
	s.mu.Unlock()

	return result, nil
}

// ImportStatus returns the limiter state and the last finished run.
func (s *Service) ImportStatus() ImportStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ImportStatus{
		Limiter: s.limiter.Status(),
		LastRun: s.lastRun,
	}
}

// WaitForImports blocks until running imports finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
