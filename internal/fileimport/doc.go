// Package fileimport reads delimited text files for the import wizard.
//
// Import files frequently carry free-text columns (descriptions, notes,
// addresses) whose quoted values contain line breaks. A line-oriented reader
// sees those values as several physical lines. This package reassembles them
// into logical lines before the wizard splits fields:
//
//	lines, err := fileimport.ReadMultiLines("terms.csv", "ISO-8859-1", '"')
//	if err != nil {
//	    return err
//	}
//	preview := fileimport.BuildPreview(lines, fileimport.DefaultPreviewLines)
//
// # Merge Rule
//
// A physical line with an odd number of quote characters opens a quoted span,
// and the next line with an odd count closes it. Every line from the opening
// line through the closing line becomes one logical line, joined with "\n".
// Lines with an even count (including zero) never start a merge.
//
// The rule only looks at quote parity. Escaped quotes ("") inside a value are
// counted like any other quote character, so a value containing a doubled
// quote keeps its parity and is handled correctly, while a value containing a
// single stray quote character will swallow following lines.
//
// # Decoding
//
// Files are decoded with the charset supplied by the caller (IANA or WHATWG
// names such as "UTF-8", "ISO-8859-1", "windows-1252", "UTF-16LE"). Bytes that
// are invalid for the charset fail the whole read with [ErrInvalidEncoding]
// unless [Reader.ReplaceInvalid] is set.
package fileimport
