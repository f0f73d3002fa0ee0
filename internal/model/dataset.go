package model

import "time"

// SourceKind identifies where a training dataset came from.
type SourceKind string

// Data source kinds, in fallback order.
const (
	SourceDatabase  SourceKind = "database"
	SourceCache     SourceKind = "cache"
	SourceSynthetic SourceKind = "synthetic"
)

// Provenance describes the origin of a Dataset.
type Provenance struct {
	AcquiredAt time.Time  `json:"acquired_at"`
	Kind       SourceKind `json:"kind"`
	Detail     string     `json:"detail,omitempty"`
}

// Dataset is a set of records plus the raw columns the source actually supplied.
type Dataset struct {
	Provenance Provenance
	Columns    []string
	Records    []YieldRecord
}

// Len returns the number of records.
func (d Dataset) Len() int {
	return len(d.Records)
}

// HasColumn reports whether the source supplied col.
func (d Dataset) HasColumn(col string) bool {
	for _, c := range d.Columns {
		if c == col {
			return true
		}
	}
	return false
}
