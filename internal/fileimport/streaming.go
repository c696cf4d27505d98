package fileimport

// streaming.go holds the io.Reader wrappers applied to import files before
// line scanning:
//
//   - BOMSkippingReader: drops a leading UTF-8 byte order mark
//   - StreamingUTF8Sanitizer: replaces invalid UTF-8 bytes with '?'
//   - CountingReader: tracks bytes consumed for progress reporting

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader skips the UTF-8 BOM (0xEF 0xBB 0xBF) that Windows tools
// put at the start of exported files.
type BOMSkippingReader struct {
	r       *bufio.Reader
	checked bool
}

// NewBOMSkippingReader wraps r.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{r: bufio.NewReader(r)}
}

// Read implements io.Reader.
func (b *BOMSkippingReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head, err := b.r.Peek(len(utf8BOM))
		if err == nil && bytes.Equal(head, utf8BOM) {
			if _, err := b.r.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		}
	}
	return b.r.Read(p)
}

// StreamingUTF8Sanitizer replaces invalid UTF-8 bytes with '?' while
// streaming. Multi-byte sequences split across reads are carried over to the
// next call so valid runes are never broken.
type StreamingUTF8Sanitizer struct {
	r       io.Reader
	pending []byte
}

// NewStreamingUTF8Sanitizer wraps r.
func NewStreamingUTF8Sanitizer(r io.Reader) *StreamingUTF8Sanitizer {
	return &StreamingUTF8Sanitizer{
		r:       r,
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

// Read implements io.Reader.
func (s *StreamingUTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	off := copy(p, s.pending)
	s.pending = s.pending[off:]

	n, err := s.r.Read(p[off:])
	n += off
	if n == 0 {
		return 0, err
	}

	return s.sanitize(p[:n], err == io.EOF), err
}

// sanitize rewrites data in place and returns the number of bytes to hand
// out. Unless atEOF, an incomplete trailing sequence is kept in pending.
func (s *StreamingUTF8Sanitizer) sanitize(data []byte, atEOF bool) int {
	w := 0
	for r := 0; r < len(data); {
		c := data[r]
		if c < utf8.RuneSelf {
			data[w] = c
			w++
			r++
			continue
		}

		if !atEOF && !utf8.FullRune(data[r:]) {
			tail := make([]byte, 0, len(data)-r+len(s.pending))
			tail = append(tail, data[r:]...)
			s.pending = append(tail, s.pending...)
			return w
		}

		_, size := utf8.DecodeRune(data[r:])
		if size == 1 {
			data[w] = '?'
			w++
			r++
			continue
		}
		copy(data[w:], data[r:r+size])
		w += size
		r += size
	}
	return w
}

// CountingReader counts the bytes read through it.
type CountingReader struct {
	r         io.Reader
	BytesRead int64
	Total     int64 // 0 when unknown
}

// NewCountingReader wraps r. total is the expected size, or 0 if unknown.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{r: r, Total: total}
}

// Read implements io.Reader.
func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.BytesRead += int64(n)
	return n, err
}

// Progress returns the percentage of Total read so far (0-100).
func (c *CountingReader) Progress() int {
	if c.Total <= 0 {
		return 0
	}
	pct := int(c.BytesRead * 100 / c.Total)
	if pct > 100 {
		pct = 100
	}
	return pct
}
