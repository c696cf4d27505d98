package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/fileimport/internal/fileimport"
	"github.com/JonMunkholm/fileimport/internal/flatrate"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"file too large", fmt.Errorf("%w: limit is 10 bytes", ErrFileTooLarge), "FILE001"},
		{"empty file", fmt.Errorf("stage x.csv: %w", flatrate.ErrEmptyFile), "FILE002"},
		{"empty file text", errors.New("empty file"), "FILE002"},
		{"line too long", errors.New("scan line 3: bufio.Scanner: token too long"), "FILE004"},
		{"missing file", errors.New("open /tmp/x.csv: no such file or directory"), "FILE005"},
		{"missing file sentinel", &os.PathError{Op: "open", Path: "/tmp/x.csv", Err: syscall.ENOENT}, "FILE005"},
		{"invalid encoding", fmt.Errorf("%w: line 2 is not valid UTF-8", fileimport.ErrInvalidEncoding), "ENC001"},
		{"unknown charset", fmt.Errorf("%w: %q", fileimport.ErrUnknownCharset, "klingon"), "ENC002"},
		{"missing header", fmt.Errorf("%w %q", flatrate.ErrMissingHeader, "StartDate"), "IMP001"},
		{"busy", ErrTooManyImports, "IMP003"},
		{"cancelled import wins over context", fmt.Errorf("%w: %w", flatrate.ErrImportCancelled, context.Canceled), "IMP004"},
		{"no contract", fmt.Errorf("row 5: %w", flatrate.ErrContractNotCreated), "IMP005"},
		{"duplicate key", errors.New("ERROR: duplicate key value violates unique constraint"), "DB001"},
		{"unique violation code", fmt.Errorf("insert contract: %w", &pgconn.PgError{Code: "23505"}), "DB001"},
		{"foreign key code", &pgconn.PgError{Code: "23503"}, "DB002"},
		{"deadlock code", fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40P01"}), "DB005"},
		{"refused dial", fmt.Errorf("connect to database: %w", &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}), "DB003"},
		{"foreign key", errors.New("insert or update violates foreign key constraint"), "DB002"},
		{"no database", ErrNoDatabase, "DB004"},
		{"context canceled", context.Canceled, "REQ001"},
		{"deadline", context.DeadlineExceeded, "REQ002"},
		{"unknown policy", fmt.Errorf("invalid parameter policy: %w", fmt.Errorf("%w: preview policy %q", fileimport.ErrUnknownPolicy, "all")), "REQ003"},
		{"case insensitive", errors.New("DUPLICATE KEY value"), "DB001"},
		{"unknown error returns default", errors.New("some random internal error"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestMapError_IgnoresFileNames(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"sentinel behind file name", fmt.Errorf("read %s: %w", "empty file.csv", fileimport.ErrInvalidEncoding), "ENC001"},
		{"postgres error behind file name", fmt.Errorf("stage %s: %w", "empty file.csv", &pgconn.PgError{Code: "23505"}), "DB001"},
		{"unknown error behind file name", fmt.Errorf("read %s: %w", "empty file.csv", io.ErrUnexpectedEOF), "ERR000"},
		{"pattern on innermost error", fmt.Errorf("read %s: %w", "too many imports.csv", errors.New("token too long")), "FILE004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapError(tt.err).Code; got != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrTooManyImports)

	expected := "Another import is already running (Code: IMP003). Wait for it to finish and try again"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"known error is user facing", fileimport.ErrInvalidEncoding, true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorPatternsHaveCodes(t *testing.T) {
	seen := make(map[string]bool)
	for _, ep := range errorPatterns {
		if ep.msg.Code == "" || ep.msg.Message == "" || ep.msg.Action == "" {
			t.Errorf("pattern %q has an incomplete message: %+v", ep.pattern, ep.msg)
		}
		if ep.target == nil && ep.pgCode == "" && ep.pattern == "" {
			t.Errorf("code %s matches nothing", ep.msg.Code)
		}
		if seen[ep.msg.Code] {
			t.Errorf("code %s listed twice", ep.msg.Code)
		}
		seen[ep.msg.Code] = true
	}
}
