package models

import "time"

// ExportKind tells whether a plan emits one artifact or several chunks.
type ExportKind string

const (
	ExportSingle  ExportKind = "single"
	ExportChunked ExportKind = "chunked"
)

// ExportChunk is one slice of a chunked export. Index is 1-based.
type ExportChunk struct {
	Index   int
	Total   int
	Records []CollectedRecord
}

// ExportPlan is the planner's decision. Single plans carry every record in one
// chunk with Index=Total=1.
type ExportPlan struct {
	Kind           ExportKind
	EstimatedBytes int64
	RecordCount    int
	Chunks         []ExportChunk
}

// ExportResult reports what an export wrote.
type ExportResult struct {
	Key       LedgerKey  `json:"key"`
	Kind      ExportKind `json:"kind"`
	Records   int        `json:"records"`
	Artifacts []string   `json:"artifacts"`
	Bytes     int64      `json:"bytes"`
	At        time.Time  `json:"at"`
}
