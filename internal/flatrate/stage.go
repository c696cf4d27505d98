package flatrate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/fileimport/internal/fileimport"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

var (
	// ErrMissingHeader is returned when the import file lacks a required column.
	ErrMissingHeader = errors.New("missing required column")

	// ErrEmptyFile is returned when there is not even a header line.
	ErrEmptyFile = errors.New("empty file")
)

// FieldType is the expected type of an import column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldDate
)

// FieldSpec describes one column of the import file.
type FieldSpec struct {
	Name     string // header name, matched case-insensitively
	DBColumn string // staging column
	Type     FieldType
	Required bool // header must be present
}

// FieldSpecs lists the columns of a flat-rate term import file. Missing
// lookup values are staged as NULL and flagged by the import run.
var FieldSpecs = []FieldSpec{
	{Name: "BPartnerValue", DBColumn: "bpartner_value", Type: FieldText, Required: true},
	{Name: "C_Flatrate_Conditions_Value", DBColumn: "c_flatrate_conditions_value", Type: FieldText, Required: true},
	{Name: "ProductValue", DBColumn: "product_value", Type: FieldText, Required: true},
	{Name: "StartDate", DBColumn: "start_date", Type: FieldDate, Required: true},
	{Name: "EndDate", DBColumn: "end_date", Type: FieldDate},
}

// StageParams controls loading a file into the staging table.
type StageParams struct {
	ClientID  int64
	Delimiter rune // field delimiter; 0 means ','
}

// stageColumns returns the COPY column list: one column per field spec,
// followed by the bookkeeping columns.
func stageColumns() []string {
	cols := make([]string, 0, len(FieldSpecs)+3)
	cols = append(cols, "ad_client_id")
	for _, spec := range FieldSpecs {
		cols = append(cols, spec.DBColumn)
	}
	return append(cols, "i_isimported", "import_run_id")
}

// Stage loads logical lines into i_flatrate_term. The first line is the
// header. Lines with unparsable dates are reported in the result and not
// staged; everything else is copied in one COPY statement.
func Stage(ctx context.Context, db Copier, lines []string, params StageParams) (StageResult, error) {
	runID := uuid.New()

	rows, result, err := BuildStageRows(lines, params, runID)
	if err != nil {
		return result, err
	}
	if len(rows) == 0 {
		return result, nil
	}

	n, err := db.CopyFrom(ctx, pgx.Identifier{importTable}, stageColumns(), pgx.CopyFromRows(rows))
	if err != nil {
		return result, fmt.Errorf("copy into %s: %w", importTable, err)
	}
	result.Staged = int(n)
	return result, nil
}

// BuildStageRows converts logical lines into COPY rows in stageColumns
// order. It does not touch the database.
func BuildStageRows(lines []string, params StageParams, runID uuid.UUID) ([][]any, StageResult, error) {
	result := StageResult{RunID: runID.String()}

	if len(lines) == 0 {
		return nil, result, ErrEmptyFile
	}

	header, err := fileimport.SplitFields(lines[0], params.Delimiter)
	if err != nil {
		return nil, result, fmt.Errorf("header: %w", err)
	}
	headerIdx := MakeHeaderIndex(header)
	for _, spec := range FieldSpecs {
		if _, ok := headerIdx[strings.ToLower(spec.Name)]; spec.Required && !ok {
			return nil, result, fmt.Errorf("%w %q", ErrMissingHeader, spec.Name)
		}
	}

	pgRunID := pgtype.UUID{Bytes: runID, Valid: true}
	var rows [][]any

	for i, line := range lines[1:] {
		lineNum := i + 2 // 1-indexed, after header

		fields, err := fileimport.SplitFields(line, params.Delimiter)
		if err != nil {
			result.TotalRows++
			result.FailedRows = append(result.FailedRows, FailedRow{
				LineNumber: lineNum,
				Reason:     err.Error(),
			})
			continue
		}
		if isEmptyRow(fields) {
			continue
		}
		result.TotalRows++

		row, err := buildStageRow(fields, headerIdx, params.ClientID, pgRunID)
		if err != nil {
			result.FailedRows = append(result.FailedRows, FailedRow{
				LineNumber: lineNum,
				Reason:     err.Error(),
				Data:       fields,
			})
			continue
		}
		rows = append(rows, row)
	}

	return rows, result, nil
}

func buildStageRow(fields []string, headerIdx HeaderIndex, clientID int64, runID pgtype.UUID) ([]any, error) {
	row := make([]any, 0, len(FieldSpecs)+3)
	row = append(row, clientID)

	for _, spec := range FieldSpecs {
		raw := headerIdx.Cell(fields, spec.Name)
		switch spec.Type {
		case FieldDate:
			d := ToPgDate(raw)
			if raw != "" && !d.Valid {
				return nil, fmt.Errorf("invalid date for %q: %q", spec.Name, raw)
			}
			row = append(row, d)
		default:
			row = append(row, ToPgText(raw))
		}
	}

	return append(row, StatusPending, runID), nil
}

func isEmptyRow(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
