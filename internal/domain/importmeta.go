package domain

import "time"

// ImportStats counts per-line outcomes of one file parse. Per-line failures
// are accumulated here and never abort the parse.
type ImportStats struct {
	LinesProcessed  uint64
	RecordsCreated  uint64
	ParseErrors     uint64 // lines with a malformed numeric field or implausible values
	FilteredUnknown uint64 // lines whose parameter name did not canonicalize
	ChunksProcessed uint64

	// Timing breakdown for throughput reporting.
	ReadingTime   time.Duration
	ParsingTime   time.Duration
	ValidateTime  time.Duration
	RecordsPerSec float64
}

// FileImport is the persisted metadata row written after each import.
type FileImport struct {
	ID              int64
	Filename        string
	FileSize        int64
	RecordsImported int64
	ImportedAt      time.Time
	ParsingStats    ImportStats // stored as JSON alongside the row
}

// ImportPosition is the ledger entry tracking how far a file has been
// imported, so finished files are skipped on re-import.
type ImportPosition struct {
	LinesProcessed  uint64    `json:"lines_processed"`
	RecordsImported uint64    `json:"records_imported"`
	FileSize        int64     `json:"file_size"`
	FinishedAt      time.Time `json:"finished_at"`
	SessionID       string    `json:"session_id"`
}

// Complete reports whether the entry describes a finished import of a file
// that still has the recorded size.
func (p ImportPosition) Complete(currentSize int64) bool {
	return !p.FinishedAt.IsZero() && p.FileSize == currentSize
}
