package fileimport

import (
	"fmt"
	"strings"
)

// DefaultQuote is the text delimiter used when no quote character is given.
const DefaultQuote = '"'

// MergePolicy decides where the line that opens a quoted span goes.
type MergePolicy string

const (
	// MergeStartLine starts a new logical line at the opening line and
	// appends the following lines of the span to it.
	MergeStartLine MergePolicy = "start"

	// MergeLegacy appends the opening line to the previous logical line as
	// well. This is how the desktop wizard always behaved.
	MergeLegacy MergePolicy = "legacy"
)

// ParseMergePolicy converts a configuration value to a MergePolicy.
// An empty value selects MergeStartLine.
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch MergePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", MergeStartLine:
		return MergeStartLine, nil
	case MergeLegacy:
		return MergeLegacy, nil
	default:
		return "", fmt.Errorf("%w: merge policy %q (want %q or %q)", ErrUnknownPolicy, s, MergeStartLine, MergeLegacy)
	}
}

// Merger folds physical lines into logical lines one line at a time.
// A Merger holds the state of a single scan; use a new one per file.
type Merger struct {
	quote       string
	legacy      bool
	quoteOpen   bool
	quoteClosed bool
	lines       []string
}

// NewMerger returns a Merger for the given quote character.
// A zero quote selects DefaultQuote.
func NewMerger(quote rune) *Merger {
	if quote == 0 {
		quote = DefaultQuote
	}
	return &Merger{quote: string(quote)}
}

// NewMergerWith returns a Merger that places opening lines per policy.
func NewMergerWith(quote rune, policy MergePolicy) *Merger {
	m := NewMerger(quote)
	m.legacy = policy == MergeLegacy
	return m
}

// Add consumes the next physical line.
func (m *Merger) Add(line string) {
	opening := false
	if strings.Count(line, m.quote)%2 == 1 {
		if m.quoteOpen {
			m.quoteClosed = true
		} else {
			m.quoteOpen = true
			opening = true
		}
	}

	// Lines after the opening one, up to and including the closing line,
	// continue the current logical line. MergeLegacy joins the opening line
	// too.
	if m.quoteOpen && (m.legacy || !opening) && len(m.lines) > 0 {
		last := m.lines[len(m.lines)-1]
		m.lines = m.lines[:len(m.lines)-1]
		m.lines = append(m.lines, last+"\n"+line)
	} else {
		m.lines = append(m.lines, line)
	}

	if m.quoteClosed {
		m.quoteOpen = false
		m.quoteClosed = false
	}
}

// Open reports whether a quoted span is still open after the last line.
func (m *Merger) Open() bool {
	return m.quoteOpen
}

// Len returns the number of logical lines produced so far.
func (m *Merger) Len() int {
	return len(m.lines)
}

// Lines returns the logical lines produced so far.
func (m *Merger) Lines() []string {
	return m.lines
}

// MergeMultiline merges every run of lines spanned by an unterminated quote
// into a single newline-joined logical line. Lines outside a quoted span are
// returned unchanged and in order.
func MergeMultiline(lines []string, quote rune) []string {
	return MergeMultilineWith(lines, quote, MergeStartLine)
}

// MergeMultilineWith is MergeMultiline with an explicit MergePolicy.
func MergeMultilineWith(lines []string, quote rune, policy MergePolicy) []string {
	m := NewMergerWith(quote, policy)
	for _, line := range lines {
		m.Add(line)
	}
	if m.lines == nil {
		return []string{}
	}
	return m.lines
}
