package core

// error_messages.go maps technical errors to messages an operator can act
// on. Each message carries a code to quote when asking for support.
//
// Codes by category:
//
//	FILE001  file too large             ErrFileTooLarge
//	FILE002  empty file                 flatrate.ErrEmptyFile
//	FILE003  no file in the request     "no file provided"
//	FILE004  physical line too long     bufio.ErrTooLong
//	FILE005  file not found             fs.ErrNotExist
//
//	ENC001   bytes invalid for charset  fileimport.ErrInvalidEncoding
//	ENC002   charset not recognised     fileimport.ErrUnknownCharset
//
//	IMP001   header column missing      flatrate.ErrMissingHeader
//	IMP002   unparsable date            "invalid date"
//	IMP003   import slots exhausted     ErrTooManyImports
//	IMP004   import run cancelled       flatrate.ErrImportCancelled
//	IMP005   contract insert no row     flatrate.ErrContractNotCreated
//
//	DB001    duplicate key              SQLSTATE 23505
//	DB002    foreign key violation      SQLSTATE 23503
//	DB003    database unreachable       syscall.ECONNREFUSED
//	DB004    no database configured     ErrNoDatabase
//	DB005    deadlock                   SQLSTATE 40P01
//
//	REQ001   request cancelled          context.Canceled
//	REQ002   request timed out          context.DeadlineExceeded
//	REQ003   bad preview/merge policy   fileimport.ErrUnknownPolicy
//	REQ004   bad request parameter      "invalid parameter"
//
//	ERR000   anything else; check the logs for the technical error
//
// MapError first walks the table matching sentinels with errors.Is and
// Postgres error codes with errors.As. Only when nothing matches are the
// text patterns tried, case-insensitively, against the innermost wrapped
// error. Wrapping context such as file names never reaches the patterns.

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/fileimport/internal/fileimport"
	"github.com/JonMunkholm/fileimport/internal/flatrate"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	target  error  // errors.Is
	pgCode  string // SQLSTATE of a *pgconn.PgError
	pattern string // substring of the innermost error message
	msg     UserMessage
}

// matchTyped reports whether err matches the sentinel or SQLSTATE of ep.
func (ep errorPattern) matchTyped(err error) bool {
	if ep.target != nil && errors.Is(err, ep.target) {
		return true
	}
	if ep.pgCode != "" {
		var pgErr *pgconn.PgError
		return errors.As(err, &pgErr) && pgErr.Code == ep.pgCode
	}
	return false
}

var errorPatterns = []errorPattern{
	// File errors
	{target: ErrFileTooLarge, pattern: "file too large", msg: UserMessage{
		Message: "File exceeds the maximum size",
		Action:  "Split the file into smaller files",
		Code:    "FILE001",
	}},
	{target: flatrate.ErrEmptyFile, pattern: "empty file", msg: UserMessage{
		Message: "The file is empty",
		Action:  "Provide a file with a header line and data lines",
		Code:    "FILE002",
	}},
	{pattern: "no file provided", msg: UserMessage{
		Message: "No file was selected",
		Action:  "Select a file to import",
		Code:    "FILE003",
	}},
	{target: bufio.ErrTooLong, pattern: "token too long", msg: UserMessage{
		Message: "The file contains a line that is too long",
		Action:  "Check that the file is a text file and that quotes are balanced",
		Code:    "FILE004",
	}},
	{target: fs.ErrNotExist, pattern: "no such file", msg: UserMessage{
		Message: "File not found",
		Action:  "Check the file path",
		Code:    "FILE005",
	}},

	// Encoding errors
	{target: fileimport.ErrInvalidEncoding, pattern: "encoding error", msg: UserMessage{
		Message: "The file contains characters that are not valid in the selected charset",
		Action:  "Select the charset the file was saved with, or save it as UTF-8",
		Code:    "ENC001",
	}},
	{target: fileimport.ErrUnknownCharset, pattern: "unknown charset", msg: UserMessage{
		Message: "The selected charset is not supported",
		Action:  "Use a standard name such as UTF-8, ISO-8859-1 or windows-1252",
		Code:    "ENC002",
	}},

	// Import errors. A cancelled import also wraps the context error, so
	// these come before the request errors.
	{target: flatrate.ErrMissingHeader, pattern: "missing required column", msg: UserMessage{
		Message: "A required column is missing from the header line",
		Action:  "Add the BPartnerValue, C_Flatrate_Conditions_Value, ProductValue and StartDate columns",
		Code:    "IMP001",
	}},
	{pattern: "invalid date", msg: UserMessage{
		Message: "A date could not be read",
		Action:  "Use DD.MM.YYYY or YYYY-MM-DD",
		Code:    "IMP002",
	}},
	{target: ErrTooManyImports, pattern: "too many imports", msg: UserMessage{
		Message: "Another import is already running",
		Action:  "Wait for it to finish and try again",
		Code:    "IMP003",
	}},
	{target: flatrate.ErrImportCancelled, pattern: "import cancelled", msg: UserMessage{
		Message: "The import was cancelled and rolled back",
		Action:  "Start the import again when ready",
		Code:    "IMP004",
	}},
	{target: flatrate.ErrContractNotCreated, pattern: "contract not created", msg: UserMessage{
		Message: "A contract could not be created",
		Action:  "Check the import row error messages",
		Code:    "IMP005",
	}},

	// Database errors
	{pgCode: "23505", pattern: "duplicate key", msg: UserMessage{
		Message: "A record with this key already exists",
		Action:  "Remove the duplicate lines and import again",
		Code:    "DB001",
	}},
	{pgCode: "23503", pattern: "violates foreign key", msg: UserMessage{
		Message: "Referenced record does not exist",
		Action:  "Create the business partner, conditions or product first",
		Code:    "DB002",
	}},
	{target: syscall.ECONNREFUSED, pattern: "connection refused", msg: UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB003",
	}},
	{target: ErrNoDatabase, pattern: "no database configured", msg: UserMessage{
		Message: "No database is configured",
		Action:  "Set DATABASE_URL and restart",
		Code:    "DB004",
	}},
	{pgCode: "40P01", pattern: "deadlock", msg: UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB005",
	}},

	// Request errors
	{target: context.Canceled, pattern: "context canceled", msg: UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ001",
	}},
	{target: context.DeadlineExceeded, pattern: "context deadline exceeded", msg: UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "REQ002",
	}},
	{target: fileimport.ErrUnknownPolicy, pattern: "unknown policy", msg: UserMessage{
		Message: "Unknown preview or merge policy",
		Action:  "Use cap or legacy for previews, start or legacy for merging",
		Code:    "REQ003",
	}},
	{pattern: "invalid parameter", msg: UserMessage{
		Message: "A request parameter is invalid",
		Action:  "Check the request parameters",
		Code:    "REQ004",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Unknown
// errors map to ERR000; nil maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, ep := range errorPatterns {
		if ep.matchTyped(err) {
			return ep.msg
		}
	}

	errStr := strings.ToLower(innermost(err).Error())
	for _, ep := range errorPatterns {
		if ep.pattern != "" && strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// innermost follows the single-error Unwrap chain to its end.
func innermost(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
