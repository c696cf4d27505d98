package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/fileimport/internal/config"
	"github.com/JonMunkholm/fileimport/internal/fileimport"
	"github.com/JonMunkholm/fileimport/internal/flatrate"
)

// fakeDB satisfies Database by embedding it; only the methods the tests
// reach are implemented.
type fakeDB struct {
	Database

	copied   [][]any
	columns  []string
	copyErr  error
	beginErr error
	pingErr  error
}

func (f *fakeDB) CopyFrom(_ context.Context, _ pgx.Identifier, cols []string, src pgx.CopyFromSource) (int64, error) {
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	f.columns = cols
	for src.Next() {
		values, err := src.Values()
		if err != nil {
			return 0, err
		}
		f.copied = append(f.copied, values)
	}
	return int64(len(f.copied)), src.Err()
}

func (f *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	return nil, f.beginErr
}

func (f *fakeDB) Ping(context.Context) error {
	return f.pingErr
}

func testImportConfig() config.ImportConfig {
	return config.ImportConfig{
		Charset:         "UTF-8",
		Quote:           `"`,
		Delimiter:       ",",
		Multiline:       true,
		PreviewMaxLines: 100,
		PreviewPolicy:   "cap",
		MaxFileSize:     1 << 20,
		ClientID:        1000000,
		MaxConcurrent:   1,
		MaxWaitTime:     20 * time.Millisecond,
		Timeout:         time.Minute,
	}
}

func TestPreviewFile_MergesQuotedLines(t *testing.T) {
	svc := NewService(nil, testImportConfig())
	input := "a,\"b\nc\",d\ne,f\n"

	result, err := svc.PreviewFile(context.Background(), "terms.csv", strings.NewReader(input), svc.DefaultPreviewOptions())
	require.NoError(t, err)

	assert.Equal(t, "terms.csv", result.FileName)
	assert.Equal(t, int64(len(input)), result.Bytes)
	assert.Equal(t, 2, result.LogicalLines)
	assert.Equal(t, []string{"a,\"b\nc\",d", "e,f"}, result.Lines)
	assert.Equal(t, "a,\"b\nc\",d\ne,f\n", result.Preview)
	assert.False(t, result.Truncated)
}

func TestPreviewFile_WithoutMultiline(t *testing.T) {
	svc := NewService(nil, testImportConfig())
	opts := svc.DefaultPreviewOptions()
	opts.Multiline = false

	result, err := svc.PreviewFile(context.Background(), "terms.csv", strings.NewReader("a,\"b\nc\",d\n"), opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"a,\"b", "c\",d"}, result.Lines)
}

func TestPreviewFile_Truncation(t *testing.T) {
	svc := NewService(nil, testImportConfig())
	input := "1\n2\n3\n4\n5\n"

	tests := []struct {
		name        string
		policy      fileimport.PreviewPolicy
		wantPreview string
		wantLines   int
	}{
		{"cap", fileimport.PreviewCap, "1\n2\n" + fileimport.TruncationMarker, 2},
		{"legacy", fileimport.PreviewLegacy, "1\n2\n3\n4\n5\n" + fileimport.TruncationMarker, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := svc.DefaultPreviewOptions()
			opts.MaxLines = 2
			opts.Policy = tt.policy

			result, err := svc.PreviewFile(context.Background(), "n.txt", strings.NewReader(input), opts)
			require.NoError(t, err)

			assert.True(t, result.Truncated)
			assert.Equal(t, 5, result.LogicalLines)
			assert.Equal(t, tt.wantPreview, result.Preview)
			assert.Len(t, result.Lines, tt.wantLines)
		})
	}
}

func TestPreviewFile_Errors(t *testing.T) {
	cfg := testImportConfig()
	cfg.MaxFileSize = 8
	svc := NewService(nil, cfg)

	_, err := svc.PreviewFile(context.Background(), "big.csv", strings.NewReader("0123456789\n"), svc.DefaultPreviewOptions())
	assert.ErrorIs(t, err, ErrFileTooLarge)

	opts := svc.DefaultPreviewOptions()
	opts.Charset = "no-such-charset"
	_, err = svc.PreviewFile(context.Background(), "x.csv", strings.NewReader("a\n"), opts)
	assert.ErrorIs(t, err, fileimport.ErrUnknownCharset)

	_, err = svc.PreviewFile(context.Background(), "bad.csv", strings.NewReader("ok\n\xff\xfe\n"), svc.DefaultPreviewOptions())
	assert.ErrorIs(t, err, fileimport.ErrInvalidEncoding)
	assert.Equal(t, "ENC001", MapError(err).Code)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.PreviewFile(ctx, "x.csv", strings.NewReader("a\n"), svc.DefaultPreviewOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPreviewFile_ExactSizeLimit(t *testing.T) {
	cfg := testImportConfig()
	cfg.MaxFileSize = 4
	svc := NewService(nil, cfg)

	result, err := svc.PreviewFile(context.Background(), "x.csv", strings.NewReader("a\nb\n"), svc.DefaultPreviewOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, result.LogicalLines)
}

func TestService_WithoutDatabase(t *testing.T) {
	svc := NewService(nil, testImportConfig())
	ctx := context.Background()

	assert.False(t, svc.HasDatabase())
	assert.ErrorIs(t, svc.Ping(ctx), ErrNoDatabase)
	assert.ErrorIs(t, svc.EnsureSchema(ctx), ErrNoDatabase)

	_, err := svc.StageFlatrate(ctx, "x.csv", strings.NewReader("a\n"), svc.DefaultStageOptions())
	assert.ErrorIs(t, err, ErrNoDatabase)

	_, err = svc.RunFlatrateImport(ctx, flatrate.Params{ClientID: 1})
	assert.ErrorIs(t, err, ErrNoDatabase)
}

func TestStageFlatrate(t *testing.T) {
	db := &fakeDB{}
	svc := NewService(db, testImportConfig())

	input := strings.Join([]string{
		"BPartnerValue,C_Flatrate_Conditions_Value,ProductValue,StartDate,EndDate",
		"G0001,Abo,P001,01.02.2024,",
		"\"G0002\nsecond line\",Abo,P001,2024-03-01,2025-02-28",
		"G0003,Abo,P001,31.31.2024,",
	}, "\n")

	result, err := svc.StageFlatrate(context.Background(), "terms.csv", strings.NewReader(input), svc.DefaultStageOptions())
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalRows)
	assert.Equal(t, 2, result.Staged)
	require.Len(t, result.FailedRows, 1)
	assert.Equal(t, 4, result.FailedRows[0].LineNumber)
	require.Len(t, db.copied, 2)
	assert.Equal(t, int64(1000000), db.copied[0][0])
}

func TestStageFlatrate_CopyError(t *testing.T) {
	db := &fakeDB{copyErr: errors.New("connection refused")}
	svc := NewService(db, testImportConfig())

	input := "BPartnerValue,C_Flatrate_Conditions_Value,ProductValue,StartDate\nG1,Abo,P1,2024-01-01\n"
	_, err := svc.StageFlatrate(context.Background(), "terms.csv", strings.NewReader(input), svc.DefaultStageOptions())

	require.Error(t, err)
	assert.Equal(t, "DB003", MapError(err).Code)
}

func TestRunFlatrateImport_BusyLimiter(t *testing.T) {
	svc := NewService(&fakeDB{}, testImportConfig())
	require.True(t, svc.limiter.TryAcquire())
	defer svc.limiter.Release()

	_, err := svc.RunFlatrateImport(context.Background(), flatrate.Params{ClientID: 1})

	assert.ErrorIs(t, err, ErrTooManyImports)
	assert.Equal(t, 1, svc.ImportStatus().Limiter.Active)
}

func TestRunFlatrateImport_ReleasesSlotOnError(t *testing.T) {
	db := &fakeDB{beginErr: errors.New("connection refused")}
	svc := NewService(db, testImportConfig())

	_, err := svc.RunFlatrateImport(context.Background(), flatrate.Params{ClientID: 1})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction")
	status := svc.ImportStatus()
	assert.Equal(t, 0, status.Limiter.Active)
	assert.Nil(t, status.LastRun)
	require.NoError(t, svc.WaitForImports(context.Background()))
}
