package importer

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Row is one spreadsheet row keyed by its column header as written in the file.
type Row map[string]string

// Record maps canonical field names to trimmed cell values.
type Record map[string]string

// Field describes a canonical column and the headers accepted for it.
type Field struct {
	Name     string
	Aliases  []string
	Required bool
	// Count marks a whole-number field. Cells are parsed as numbers and
	// truncated toward zero.
	Count bool
}

// Layout is the set of fields a domain reads from a sheet, plus the identity
// used to collapse repeated reports of the same malformed row.
type Layout struct {
	Fields   []Field
	Identity func(Record) string
}

// Candidate is a row that survived header normalization.
type Candidate struct {
	Position int
	Record   Record
	Raw      Row
}

// rejection is a row dropped during normalization.
type rejection struct {
	position int
	field    string
	reason   string
	record   Record
	raw      Row
}

// CoerceCount parses a numeric cell and truncates it toward zero. Unsigned
// 0x, 0o and 0b integer literals are accepted as well.
func CoerceCount(raw string) (int, error) {
	trimmed := strings.TrimSpace(raw)
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil && hasRadixPrefix(trimmed) {
		var n int64
		if n, err = strconv.ParseInt(trimmed, 0, 64); err == nil {
			value = float64(n)
		}
	}
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%q is not a number", raw)
	}
	truncated := math.Trunc(value)
	if truncated > math.MaxInt32 || truncated < math.MinInt32 {
		return 0, fmt.Errorf("%q is out of range", raw)
	}
	return int(truncated), nil
}

func hasRadixPrefix(s string) bool {
	if len(s) < 3 || s[0] != '0' || strings.Contains(s, "_") {
		return false
	}
	switch s[1] {
	case 'x', 'X', 'o', 'O', 'b', 'B':
		return true
	}
	return false
}

// NormalizeHeaders lower-cases and trims every header of the row. When two
// headers collapse to the same name, the first non-empty cell in header sort
// order wins.
func NormalizeHeaders(row Row) Row {
	headers := make([]string, 0, len(row))
	for header := range row {
		headers = append(headers, header)
	}
	sort.Strings(headers)

	out := make(Row, len(row))
	for _, header := range headers {
		key := strings.ToLower(strings.TrimSpace(header))
		if key == "" {
			continue
		}
		if existing, ok := out[key]; ok && strings.TrimSpace(existing) != "" {
			continue
		}
		out[key] = row[header]
	}
	return out
}

// Normalize resolves every field of the layout from the row, then reports the
// first problem that keeps the row from being a candidate. The record is
// complete either way so the identity of a rejected row sees all its cells.
func (l Layout) Normalize(position int, raw Row) (Candidate, *rejection) {
	headers := NormalizeHeaders(raw)
	record := make(Record, len(l.Fields))
	var failed *rejection
	fail := func(field, reason string) {
		if failed == nil {
			failed = &rejection{position: position, field: field, reason: reason, record: record, raw: raw}
		}
	}
	for _, field := range l.Fields {
		value := lookup(headers, field)
		if value == "" {
			if field.Required {
				fail(field.Name, field.Name+" is required")
			}
			continue
		}
		if field.Count {
			n, err := CoerceCount(value)
			if err != nil {
				record[field.Name] = value
				fail(field.Name, field.Name+" must be a number")
				continue
			}
			value = strconv.Itoa(n)
		}
		record[field.Name] = value
	}
	if failed != nil {
		return Candidate{}, failed
	}
	return Candidate{Position: position, Record: record, Raw: raw}, nil
}

func (l Layout) identity(record Record) string {
	if l.Identity == nil {
		return ""
	}
	return l.Identity(record)
}

func lookup(headers Row, field Field) string {
	names := field.Aliases
	if len(names) == 0 {
		names = []string{field.Name}
	}
	for _, alias := range names {
		if value := strings.TrimSpace(headers[alias]); value != "" {
			return value
		}
	}
	return ""
}
