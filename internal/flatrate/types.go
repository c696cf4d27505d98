package flatrate

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the interface for database operations.
// Satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Beginner starts transactions. Satisfied by *pgxpool.Pool and *pgx.Conn.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Copier bulk-loads rows with the COPY protocol.
type Copier interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Import status values stored in i_isimported.
const (
	StatusPending  = "N"
	StatusImported = "Y"
	StatusFailed   = "E"
)

// Document status values for c_flatrate_term.doc_status.
const (
	DocStatusDrafted   = "DR"
	DocStatusCompleted = "CO"
)

// stagedRecord is a validated i_flatrate_term row waiting for import,
// joined with the duration of its conditions.
type stagedRecord struct {
	ID           int64
	BPartnerID   int64
	ConditionsID int64
	ProductID    int64
	StartDate    pgtype.Date
	EndDate      pgtype.Date
	TermMonths   pgtype.Int4
}

// Params controls a single import run.
type Params struct {
	ClientID          int64
	DeleteOldImported bool // delete rows imported by earlier runs first
}

// RowError describes a staged row that could not be imported.
type RowError struct {
	ImportID int64  `json:"importId"`
	Reason   string `json:"reason"`
}

// Result summarizes an import run.
type Result struct {
	RunID     string        `json:"runId"`
	ClientID  int64         `json:"clientId"`
	Deleted   int64         `json:"deleted"`
	Validated int64         `json:"validated"`
	Flagged   int64         `json:"flagged"`
	Imported  int           `json:"imported"`
	Failed    int           `json:"failed"`
	Errors    []RowError    `json:"errors,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// FailedRow is an input line that could not be staged.
type FailedRow struct {
	LineNumber int      `json:"lineNumber"`
	Reason     string   `json:"reason"`
	Data       []string `json:"data,omitempty"`
}

// StageResult summarizes loading a file into the staging table.
type StageResult struct {
	RunID      string      `json:"runId"`
	TotalRows  int         `json:"totalRows"`
	Staged     int         `json:"staged"`
	FailedRows []FailedRow `json:"failedRows,omitempty"`
}
