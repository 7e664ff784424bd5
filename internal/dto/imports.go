package dto

import "github.com/noah-isme/learnpath-api/internal/importer"

// ImportResult reports how each uploaded row was handled.
type ImportResult[T any, K comparable] struct {
	Created     []T                   `json:"created"`
	Duplicates  []K                   `json:"duplicates"`
	InvalidRows []importer.InvalidRow `json:"invalid_rows"`
	Summary     ImportSummary         `json:"summary"`
	ArchivedAs  string                `json:"archived_as,omitempty"`
}

// ImportSummary holds the partition sizes.
type ImportSummary struct {
	Rows       int `json:"rows"`
	Created    int `json:"created"`
	Duplicates int `json:"duplicates"`
	Invalid    int `json:"invalid"`
}
