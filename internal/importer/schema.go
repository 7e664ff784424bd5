package importer

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/learnpath-api/pkg/validation"
)

// Issue is a schema failure. Index is the position of the row inside the
// validated batch; a negative Index concerns the batch as a whole.
type Issue struct {
	Index   int    `json:"index"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Schema validates a whole batch of normalized records at once. The returned
// rows are aligned with records whether or not issues were found.
type Schema[T any] interface {
	Validate(records []Record) ([]T, []Issue)
}

// StructSchema decodes each record into T and runs struct validation on it,
// after checking the batch size limits.
type StructSchema[T any] struct {
	validator *validation.Validator
	decode    func(Record) T
	maxRows   int
	noun      string
}

// NewStructSchema builds a schema that accepts between one and maxRows rows.
func NewStructSchema[T any](v *validation.Validator, maxRows int, noun string, decode func(Record) T) *StructSchema[T] {
	if v == nil {
		v = validation.New()
	}
	return &StructSchema[T]{validator: v, decode: decode, maxRows: maxRows, noun: noun}
}

// MaxRows is the largest batch the schema accepts.
func (s *StructSchema[T]) MaxRows() int {
	return s.maxRows
}

// Validate implements Schema.
func (s *StructSchema[T]) Validate(records []Record) ([]T, []Issue) {
	if s == nil || s.decode == nil || s.validator == nil {
		return nil, []Issue{{Index: -1, Message: ErrNoSchema.Reason}}
	}
	var issues []Issue
	if len(records) == 0 {
		issues = append(issues, Issue{Index: -1, Message: fmt.Sprintf("at least one %s is required", s.noun)})
	}
	if s.maxRows > 0 && len(records) > s.maxRows {
		issues = append(issues, Issue{Index: -1, Message: fmt.Sprintf("maximum of %d %ss can be uploaded at once", s.maxRows, s.noun)})
	}

	rows := make([]T, len(records))
	for i, record := range records {
		rows[i] = s.decode(record)
		err := s.validator.Struct(rows[i])
		if err == nil {
			continue
		}
		var fieldErrors validator.ValidationErrors
		if !errors.As(err, &fieldErrors) {
			issues = append(issues, Issue{Index: i, Message: err.Error()})
			continue
		}
		for _, fe := range fieldErrors {
			issues = append(issues, Issue{Index: i, Path: fe.Field(), Message: s.validator.Message(fe)})
		}
	}
	return rows, issues
}
