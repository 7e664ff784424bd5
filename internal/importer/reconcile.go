// Package importer reconciles spreadsheet rows against a row schema and the keys
// already present in storage. It never persists anything itself.
package importer

import (
	"context"
	"fmt"
	"reflect"
)

// PreconditionError reports a call that cannot be reconciled at all.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "import rejected: " + e.Reason
}

var (
	ErrEmptyInput = &PreconditionError{Reason: "no rows found in sheet"}
	ErrNoSchema   = &PreconditionError{Reason: "row schema is not configured"}
	ErrNoLayout   = &PreconditionError{Reason: "column layout is not configured"}
)

// KeySet is a set of dedup keys.
type KeySet[K comparable] map[K]struct{}

// NewKeySet builds a set holding keys.
func NewKeySet[K comparable](keys ...K) KeySet[K] {
	set := make(KeySet[K], len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

// Has reports whether key is in the set.
func (s KeySet[K]) Has(key K) bool {
	_, ok := s[key]
	return ok
}

// KeyLookup returns which of the candidate keys already exist in storage.
type KeyLookup[K comparable] func(ctx context.Context, candidates []K) (KeySet[K], error)

// InvalidRow is a rejected row. Rows lists the 1-based positions of every input
// row that collapsed into this entry through the layout's identity.
type InvalidRow struct {
	Rows   []int  `json:"rows"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
	Record Record `json:"record"`
	Raw    Row    `json:"raw"`
}

// Outcome partitions a batch. Every input row lands in exactly one partition.
type Outcome[T any, K comparable] struct {
	Created    []T          `json:"created"`
	Duplicates []K          `json:"duplicates"`
	Invalid    []InvalidRow `json:"invalid_rows"`
}

// Accounted returns how many input rows the outcome covers.
func (o *Outcome[T, K]) Accounted() int {
	total := len(o.Created) + len(o.Duplicates)
	for _, inv := range o.Invalid {
		total += len(inv.Rows)
	}
	return total
}

// validated is the state between schema validation and duplicate detection.
type validated[T any] struct {
	rows      []T
	positions []int
	invalid   *invalidSet
}

// Reconcile partitions rows against a known set of existing keys. Keys repeated
// within the batch are treated as duplicates after their first occurrence.
func Reconcile[T any, K comparable](rows []Row, layout Layout, schema Schema[T], existing KeySet[K], keyOf func(T) K) (*Outcome[T, K], error) {
	state, err := validate(rows, layout, schema)
	if err != nil {
		return nil, err
	}
	return partition(state, existing, keyOf), nil
}

// ReconcileWithLookup is Reconcile with the existing keys fetched through lookup
// once the batch has been validated. Only keys of valid rows are looked up.
func ReconcileWithLookup[T any, K comparable](ctx context.Context, rows []Row, layout Layout, schema Schema[T], lookup KeyLookup[K], keyOf func(T) K) (*Outcome[T, K], error) {
	state, err := validate(rows, layout, schema)
	if err != nil {
		return nil, err
	}
	existing := KeySet[K]{}
	if len(state.rows) > 0 && lookup != nil {
		keys := make([]K, 0, len(state.rows))
		seen := KeySet[K]{}
		for _, row := range state.rows {
			key := keyOf(row)
			if seen.Has(key) {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
		existing, err = lookup(ctx, keys)
		if err != nil {
			return nil, fmt.Errorf("lookup existing keys: %w", err)
		}
	}
	return partition(state, existing, keyOf), nil
}

func validate[T any](rows []Row, layout Layout, schema Schema[T]) (*validated[T], error) {
	if isNil(schema) {
		return nil, ErrNoSchema
	}
	if len(layout.Fields) == 0 {
		return nil, ErrNoLayout
	}
	if len(rows) == 0 {
		return nil, ErrEmptyInput
	}

	invalid := newInvalidSet(layout)
	candidates := make([]Candidate, 0, len(rows))
	for i, raw := range rows {
		candidate, rej := layout.Normalize(i+1, raw)
		if rej != nil {
			invalid.add(rej.position, rej.field, rej.reason, rej.record, rej.raw)
			continue
		}
		candidates = append(candidates, candidate)
	}

	state := &validated[T]{invalid: invalid}
	if len(candidates) == 0 {
		return state, nil
	}

	records := make([]Record, len(candidates))
	for i, c := range candidates {
		records[i] = c.Record
	}
	typed, issues := schema.Validate(records)

	implicated := make(map[int]struct{}, len(issues))
	for _, issue := range issues {
		if issue.Index < 0 || issue.Index >= len(candidates) {
			return nil, &PreconditionError{Reason: issue.Message}
		}
		if _, seen := implicated[issue.Index]; seen {
			continue
		}
		implicated[issue.Index] = struct{}{}
		c := candidates[issue.Index]
		invalid.add(c.Position, issue.Path, issue.Message, c.Record, c.Raw)
	}

	if len(implicated) < len(candidates) && len(typed) != len(candidates) {
		return nil, &PreconditionError{Reason: fmt.Sprintf("row schema returned %d rows for %d records", len(typed), len(candidates))}
	}
	for i, c := range candidates {
		if _, bad := implicated[i]; bad {
			continue
		}
		state.rows = append(state.rows, typed[i])
		state.positions = append(state.positions, c.Position)
	}
	return state, nil
}

// isNil also catches a typed nil pointer stored in the interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Interface, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

func partition[T any, K comparable](state *validated[T], existing KeySet[K], keyOf func(T) K) *Outcome[T, K] {
	out := &Outcome[T, K]{
		Created:    make([]T, 0, len(state.rows)),
		Duplicates: make([]K, 0),
		Invalid:    state.invalid.rows,
	}
	seen := KeySet[K]{}
	for _, row := range state.rows {
		key := keyOf(row)
		if existing.Has(key) || seen.Has(key) {
			out.Duplicates = append(out.Duplicates, key)
			continue
		}
		seen[key] = struct{}{}
		out.Created = append(out.Created, row)
	}
	if out.Invalid == nil {
		out.Invalid = make([]InvalidRow, 0)
	}
	return out
}

type invalidSet struct {
	layout  Layout
	rows    []InvalidRow
	byIdent map[string]int
}

func newInvalidSet(layout Layout) *invalidSet {
	return &invalidSet{layout: layout, byIdent: make(map[string]int)}
}

// add records a rejected row; a row whose identity was already reported only
// extends that entry's positions and keeps the first reason.
func (s *invalidSet) add(position int, field, reason string, record Record, raw Row) {
	ident := s.layout.identity(record)
	if ident != "" {
		if idx, ok := s.byIdent[ident]; ok {
			s.rows[idx].Rows = append(s.rows[idx].Rows, position)
			return
		}
		s.byIdent[ident] = len(s.rows)
	}
	s.rows = append(s.rows, InvalidRow{Rows: []int{position}, Field: field, Reason: reason, Record: record, Raw: raw})
}
