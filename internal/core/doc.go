// Package core is the service layer shared by the HTTP server and the CLI.
//
// A [Service] reads import files through package fileimport, builds
// previews, stages flat-rate term files and runs flat-rate imports through
// package flatrate. Import runs are serialized by an [ImportLimiter] because
// each run holds one transaction for its whole duration.
//
// A Service built without a database still previews files; staging and
// importing then fail with [ErrNoDatabase].
//
// Technical errors are translated for display with [MapError]:
//
//   - FILE001-FILE005: file errors (size, empty, missing)
//   - ENC001-ENC002: charset and decoding errors
//   - IMP001-IMP005: staging and import errors
//   - DB001-DB005: database errors
//   - REQ001-REQ004: request errors (cancelled, timeout, parameters)
package core
