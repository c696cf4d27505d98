package fileimport

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

var (
	// ErrUnknownCharset is returned when the charset name cannot be resolved.
	ErrUnknownCharset = errors.New("unknown charset")

	// ErrInvalidEncoding is returned when the file contains bytes that are
	// not valid in the requested charset.
	ErrInvalidEncoding = errors.New("encoding error")
)

// DefaultCharset is used when no charset is given.
const DefaultCharset = "UTF-8"

// MaxLineLength is the longest physical line the scanner accepts.
var MaxLineLength = 16 * 1024 * 1024

// Reader reads import files into lines.
// The zero value reads UTF-8 physical lines without merging.
type Reader struct {
	Charset        string // IANA or WHATWG charset name; empty means UTF-8
	Quote          rune   // text delimiter for Multiline; 0 means DefaultQuote
	Multiline      bool   // merge quoted spans into logical lines
	ReplaceInvalid bool   // replace undecodable bytes instead of failing

	MergePolicy MergePolicy // where Multiline puts opening lines; empty means MergeStartLine
}

// ReadFile opens path and reads it. The file is closed on every return path.
func (rd Reader) ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	lines, err := rd.Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}

// Read decodes r and splits it into lines. Line terminators (\n, \r\n, \r)
// are removed; a terminator at the very end does not produce an empty line.
// On error no lines are returned.
func (rd Reader) Read(r io.Reader) ([]string, error) {
	enc, isUTF8, err := lookupCharset(rd.Charset)
	if err != nil {
		return nil, err
	}

	var src io.Reader
	switch {
	case isUTF8 && rd.ReplaceInvalid:
		src = NewStreamingUTF8Sanitizer(NewBOMSkippingReader(r))
	case isUTF8:
		src = NewBOMSkippingReader(r)
	default:
		src = transform.NewReader(r, enc.NewDecoder())
	}

	sc := bufio.NewScanner(src)
	// The scanner accepts tokens up to max(cap(buf), MaxLineLength).
	sc.Buffer(make([]byte, 0, min(64*1024, MaxLineLength)), MaxLineLength)
	sc.Split(scanLines)

	var (
		lines  []string
		merger *Merger
	)
	if rd.Multiline {
		merger = NewMergerWith(rd.Quote, rd.MergePolicy)
	}

	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := sc.Text()
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}

		if !rd.ReplaceInvalid {
			if isUTF8 && !utf8.ValidString(line) {
				return nil, fmt.Errorf("%w: line %d is not valid UTF-8", ErrInvalidEncoding, lineNum)
			}
			if !isUTF8 && strings.ContainsRune(line, utf8.RuneError) {
				return nil, fmt.Errorf("%w: line %d has bytes invalid for %s", ErrInvalidEncoding, lineNum, rd.Charset)
			}
		}

		if merger != nil {
			merger.Add(line)
		} else {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan line %d: %w", lineNum+1, err)
	}

	if merger != nil {
		lines = merger.Lines()
	}
	if lines == nil {
		lines = []string{}
	}
	return lines, nil
}

// ReadLines reads every physical line of r decoded with charset.
func ReadLines(r io.Reader, charset string) ([]string, error) {
	return Reader{Charset: charset}.Read(r)
}

// ReadAllLines reads every physical line of the file at path.
func ReadAllLines(path, charset string) ([]string, error) {
	return Reader{Charset: charset}.ReadFile(path)
}

// ReadRegularLines reads a file that has no multi-line values.
func ReadRegularLines(path, charset string) ([]string, error) {
	return ReadAllLines(path, charset)
}

// ReadMultiLines reads a file in which quoted values may span several lines
// and returns its logical lines.
func ReadMultiLines(path, charset string, quote rune) ([]string, error) {
	return Reader{Charset: charset, Quote: quote, Multiline: true}.ReadFile(path)
}

// lookupCharset resolves a charset name. UTF-8 is reported separately since
// it is read without a decoder and validated line by line.
func lookupCharset(name string) (encoding.Encoding, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, true, nil
	}
	switch strings.ToLower(strings.ReplaceAll(name, "_", "-")) {
	case "utf-8", "utf8":
		return nil, true, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		enc, err = htmlindex.Get(name)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %q", ErrUnknownCharset, name)
		}
	}
	return enc, false, nil
}

// scanLines is bufio.ScanLines extended to accept a lone '\r' as terminator.
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if !atEOF {
			// need the next byte to tell \r from \r\n
			return 0, nil, nil
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
