package fileimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// SplitFields splits one logical line into fields. Quoted values may contain
// the delimiter and embedded newlines. A zero delimiter means ','.
// An empty line yields no fields.
func SplitFields(line string, delimiter rune) ([]string, error) {
	if delimiter == 0 {
		delimiter = ','
	}

	r := csv.NewReader(strings.NewReader(line))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	fields, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("split fields: %w", err)
	}
	return fields, nil
}
