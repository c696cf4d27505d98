package flatrate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stageLines = []string{
	"BPartnerValue,C_Flatrate_Conditions_Value,ProductValue,StartDate,EndDate",
	"C1,Flat 12M,P-100,2024-01-01,",
	"C2,Flat 12M,P-200,01.02.2024,31.01.2025",
	",,,,",
	"C3,Flat 12M,P-300,someday,",
	"\"C4\nBranch\",Flat 6M,P-100,2024-03-01,",
}

func TestBuildStageRows(t *testing.T) {
	runID := uuid.New()

	rows, result, err := BuildStageRows(stageLines, StageParams{ClientID: 1000000}, runID)

	require.NoError(t, err)
	assert.Equal(t, runID.String(), result.RunID)
	assert.Equal(t, 4, result.TotalRows)
	require.Len(t, rows, 3)
	require.Len(t, result.FailedRows, 1)
	assert.Equal(t, 5, result.FailedRows[0].LineNumber)
	assert.Contains(t, result.FailedRows[0].Reason, `invalid date for "StartDate"`)

	first := rows[0]
	require.Len(t, first, len(stageColumns()))
	assert.Equal(t, int64(1000000), first[0])
	assert.Equal(t, pgtype.Text{String: "C1", Valid: true}, first[1])
	assert.Equal(t, pgtype.Text{String: "Flat 12M", Valid: true}, first[2])
	assert.Equal(t, pgtype.Text{String: "P-100", Valid: true}, first[3])
	assert.Equal(t, "2024-01-01", first[4].(pgtype.Date).Time.Format(time.DateOnly))
	assert.False(t, first[5].(pgtype.Date).Valid)
	assert.Equal(t, StatusPending, first[6])
	assert.Equal(t, pgtype.UUID{Bytes: runID, Valid: true}, first[7])

	assert.Equal(t, "2025-01-31", rows[1][5].(pgtype.Date).Time.Format(time.DateOnly))
	assert.Equal(t, pgtype.Text{String: "C4\nBranch", Valid: true}, rows[2][1])
}

func TestBuildStageRows_MissingHeader(t *testing.T) {
	lines := []string{"BPartnerValue,ProductValue,StartDate", "C1,P1,2024-01-01"}

	_, _, err := BuildStageRows(lines, StageParams{ClientID: 1}, uuid.New())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingHeader))
	assert.Contains(t, err.Error(), "C_Flatrate_Conditions_Value")
}

func TestBuildStageRows_SemicolonDelimiter(t *testing.T) {
	lines := []string{
		"bpartnervalue;c_flatrate_conditions_value;productvalue;startdate",
		"C1;Flat;P1;2024-01-01",
	}

	rows, result, err := BuildStageRows(lines, StageParams{ClientID: 1, Delimiter: ';'}, uuid.New())

	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalRows)
	require.Len(t, rows, 1)
	assert.False(t, rows[0][5].(pgtype.Date).Valid, "EndDate column is optional")
}

func TestBuildStageRows_Empty(t *testing.T) {
	_, _, err := BuildStageRows(nil, StageParams{}, uuid.New())
	assert.ErrorIs(t, err, ErrEmptyFile)
}

type fakeCopier struct {
	table   pgx.Identifier
	columns []string
	rows    [][]any
	err     error
}

func (f *fakeCopier) CopyFrom(_ context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.table = table
	f.columns = columns
	for src.Next() {
		values, err := src.Values()
		if err != nil {
			return 0, err
		}
		f.rows = append(f.rows, values)
	}
	return int64(len(f.rows)), nil
}

func TestStage(t *testing.T) {
	copier := &fakeCopier{}

	result, err := Stage(context.Background(), copier, stageLines, StageParams{ClientID: 1000000})

	require.NoError(t, err)
	assert.Equal(t, 3, result.Staged)
	assert.Equal(t, pgx.Identifier{"i_flatrate_term"}, copier.table)
	assert.Equal(t, []string{
		"ad_client_id", "bpartner_value", "c_flatrate_conditions_value", "product_value",
		"start_date", "end_date", "i_isimported", "import_run_id",
	}, copier.columns)
	assert.Len(t, copier.rows, 3)
}

func TestStage_NothingToCopy(t *testing.T) {
	copier := &fakeCopier{err: errors.New("must not be called")}

	result, err := Stage(context.Background(), copier, stageLines[:1], StageParams{ClientID: 1})

	require.NoError(t, err)
	assert.Equal(t, 0, result.Staged)
}

func TestStage_CopyError(t *testing.T) {
	copier := &fakeCopier{err: errors.New("connection reset by peer")}

	_, err := Stage(context.Background(), copier, stageLines, StageParams{ClientID: 1})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy into i_flatrate_term")
}
