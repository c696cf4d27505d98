package flatrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ContextCheckInterval is how often (in rows) the import loop checks for
// cancellation.
var ContextCheckInterval = 100

var (
	// ErrContractNotCreated is returned for a row whose contract insert
	// produced no ID.
	ErrContractNotCreated = errors.New("contract not created")

	// ErrImportCancelled wraps the context error of a run stopped midway.
	ErrImportCancelled = errors.New("import cancelled")
)

// Process promotes staged flat-rate terms to contracts.
type Process struct {
	db     Beginner
	logger *slog.Logger
}

// NewProcess creates a Process. A nil logger uses slog.Default().
func NewProcess(db Beginner, logger *slog.Logger) *Process {
	if logger == nil {
		logger = slog.Default()
	}
	return &Process{db: db, logger: logger}
}

// Run validates and imports all pending staged rows of params.ClientID in a
// single transaction. Rows that fail are marked and skipped; the run only
// fails as a whole on database or cancellation errors, in which case
// nothing is committed.
func (p *Process) Run(ctx context.Context, params Params) (*Result, error) {
	start := time.Now()
	runID := uuid.New()
	logger := p.logger.With("run_id", runID.String(), "client_id", params.ClientID)

	result := &Result{
		RunID:    runID.String(),
		ClientID: params.ClientID,
	}

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if params.DeleteOldImported {
		tag, err := tx.Exec(ctx, deleteImportedSQL, params.ClientID)
		if err != nil {
			return result, fmt.Errorf("delete imported rows: %w", err)
		}
		result.Deleted = tag.RowsAffected()
		logger.Debug("deleted previously imported rows", "count", result.Deleted)
	}

	tag, err := tx.Exec(ctx, resetSQL, params.ClientID)
	if err != nil {
		return result, fmt.Errorf("reset import status: %w", err)
	}
	result.Validated = tag.RowsAffected()

	if err := p.validate(ctx, tx, params.ClientID, logger); err != nil {
		return result, err
	}

	if err := tx.QueryRow(ctx, countFailedSQL, params.ClientID).Scan(&result.Flagged); err != nil {
		return result, fmt.Errorf("count flagged rows: %w", err)
	}

	records, err := pendingRecords(ctx, tx, params.ClientID)
	if err != nil {
		return result, err
	}

	importRunID := pgtype.UUID{Bytes: runID, Valid: true}

	for i, rec := range records {
		if i%ContextCheckInterval == 0 && ctx.Err() != nil {
			return result, fmt.Errorf("%w: %w", ErrImportCancelled, ctx.Err())
		}

		savepoint := fmt.Sprintf("sp_%d", i)
		if _, err := tx.Exec(ctx, "SAVEPOINT "+savepoint); err != nil {
			return result, fmt.Errorf("create savepoint: %w", err)
		}

		termID, err := importRecord(ctx, tx, params.ClientID, rec, importRunID)
		if err != nil {
			if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
				return result, fmt.Errorf("rollback savepoint: %w", rbErr)
			}
			if _, markErr := tx.Exec(ctx, markRowFailedSQL, rec.ID, errorMessage(err.Error()), importRunID); markErr != nil {
				return result, fmt.Errorf("mark row %d failed: %w", rec.ID, markErr)
			}
			logger.Debug("row import failed", "import_id", rec.ID, "error", err)
			result.Failed++
			result.Errors = append(result.Errors, RowError{ImportID: rec.ID, Reason: err.Error()})
			continue
		}

		if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
			return result, fmt.Errorf("release savepoint: %w", err)
		}
		logger.Debug("row imported", "import_id", rec.ID, "term_id", termID)
		result.Imported++
	}

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("commit: %w", err)
	}

	result.Duration = time.Since(start)
	logger.Info("flatrate import finished",
		"validated", result.Validated,
		"flagged", result.Flagged,
		"imported", result.Imported,
		"failed", result.Failed,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

// validate resolves foreign keys by natural key and flags unresolved rows.
func (p *Process) validate(ctx context.Context, db DBTX, clientID int64, logger *slog.Logger) error {
	for _, step := range validationSteps {
		for _, l := range step.Lookups {
			tag, err := db.Exec(ctx, resolveSQL(l), clientID)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", l.Label, err)
			}
			logger.Debug("resolved lookup", "column", l.Label, "count", tag.RowsAffected())
		}

		tag, err := db.Exec(ctx, markErrorSQL(step.ErrorColumn+" IS NULL"),
			clientID, StatusFailed, errorMessage(step.ErrorMessage))
		if err != nil {
			return fmt.Errorf("flag %q: %w", step.ErrorMessage, err)
		}
		if n := tag.RowsAffected(); n > 0 {
			logger.Debug("flagged rows", "reason", step.ErrorMessage, "count", n)
		}
	}
	return nil
}

// pendingRecords loads all validated rows. The rows are read completely
// before any further statement runs on the same connection.
func pendingRecords(ctx context.Context, db DBTX, clientID int64) ([]stagedRecord, error) {
	rows, err := db.Query(ctx, pendingSQL, clientID)
	if err != nil {
		return nil, fmt.Errorf("query pending rows: %w", err)
	}
	defer rows.Close()

	var records []stagedRecord
	for rows.Next() {
		var rec stagedRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.BPartnerID,
			&rec.ConditionsID,
			&rec.ProductID,
			&rec.StartDate,
			&rec.EndDate,
			&rec.TermMonths,
		); err != nil {
			return nil, fmt.Errorf("scan pending row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read pending rows: %w", err)
	}
	return records, nil
}

// importRecord creates and completes the contract for one staged row and
// links the row to it.
func importRecord(ctx context.Context, db DBTX, clientID int64, rec stagedRecord, runID pgtype.UUID) (int64, error) {
	if !rec.StartDate.Valid {
		return 0, errors.New("start date is required")
	}

	endDate := rec.EndDate
	if !endDate.Valid && rec.TermMonths.Valid {
		endDate = termEndDate(rec.StartDate, rec.TermMonths.Int32)
	}
	if endDate.Valid && endDate.Time.Before(rec.StartDate.Time) {
		return 0, fmt.Errorf("end date %s is before start date %s",
			endDate.Time.Format(time.DateOnly), rec.StartDate.Time.Format(time.DateOnly))
	}

	var termID int64
	err := db.QueryRow(ctx, insertTermSQL,
		clientID,
		rec.BPartnerID,
		rec.ConditionsID,
		rec.ProductID,
		rec.StartDate,
		endDate,
		runID,
	).Scan(&termID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrContractNotCreated
	}
	if err != nil {
		return 0, fmt.Errorf("insert contract: %w", err)
	}

	if _, err := db.Exec(ctx, completeTermSQL, termID); err != nil {
		return 0, fmt.Errorf("complete contract %d: %w", termID, err)
	}

	if _, err := db.Exec(ctx, linkImportedSQL, rec.ID, termID, runID); err != nil {
		return 0, fmt.Errorf("link import row: %w", err)
	}

	return termID, nil
}
