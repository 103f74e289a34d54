package parser

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gobioeng/halog-ingest/internal/domain"
	"github.com/gobioeng/halog-ingest/internal/registry"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultChunkSize is the number of non-empty lines batched per chunk.
	DefaultChunkSize = 1000

	// readBufferSize matches the large sequential reads log files want.
	readBufferSize = 4 * 1024 * 1024

	// avgLineBytes is the heuristic used to estimate the total line count
	// from the file size. The resulting progress percentage is an estimate,
	// not an exact figure.
	avgLineBytes = 120
)

// ParseOptions tunes one ParseFile run. All fields are optional.
type ParseOptions struct {
	ChunkSize int

	// Progress is invoked after every chunk with an estimated completion
	// percentage. It is also the pipeline's only suspension point.
	Progress func(percent int, message string)

	// Cancelled is polled between chunks. Returning true stops processing
	// after the in-flight chunk; records from completed chunks are kept.
	Cancelled func() bool

	// OnChunk receives each chunk's cleaned records before they are added
	// to the result set, in chunk order. A non-nil error aborts the parse;
	// records from chunks already delivered are kept by the caller.
	OnChunk func(chunkNumber int, records []domain.Record) error
}

// FileReader streams a log file line by line through the parse pipeline
// without materializing the file in memory.
type FileReader struct {
	parser  *LineParser
	cleaner *Cleaner
}

// NewFileReader creates a reader backed by the given registry.
func NewFileReader(reg *registry.Registry) *FileReader {
	return &FileReader{
		parser:  NewLineParser(reg),
		cleaner: NewCleaner(reg),
	}
}

type numberedLine struct {
	text   string
	number int
}

// ParseFile parses one log file into a cleaned record set. Only I/O
// failures are errors; malformed lines are counted and skipped. Partial
// results are valid on cancellation.
func (r *FileReader) ParseFile(ctx context.Context, path string, opts ParseOptions) (*domain.RecordSet, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}

	// Rough total used for progress only; corrected upward as lines arrive.
	estimatedTotal := info.Size() / avgLineBytes
	if estimatedTotal < 1 {
		estimatedTotal = 1
	}

	set := &domain.RecordSet{}
	reader := bufio.NewReaderSize(file, readBufferSize)
	chunk := make([]numberedLine, 0, opts.ChunkSize)

	start := time.Now()
	lineNumber := 0
	chunkNumber := 0
	stopped := false

	for !stopped {
		line, readErr := reader.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return nil, &FileError{Path: path, Err: readErr}
		}

		atEOF := readErr == io.EOF

		// Every physical line counts, blank or not, so record line numbers
		// match positions in the file. A trailing newline leaves one empty
		// read at EOF that is not a line.
		if len(line) > 0 || !atEOF {
			lineNumber++
		}
		if text := strings.TrimSpace(line); text != "" {
			chunk = append(chunk, numberedLine{text: text, number: lineNumber})
		}

		if len(chunk) >= opts.ChunkSize || (atEOF && len(chunk) > 0) {
			chunkNumber++
			if err := r.processChunk(set, chunk, chunkNumber, opts.OnChunk); err != nil {
				return set, err
			}
			chunk = chunk[:0]

			reportProgress(opts.Progress, set.Stats.LinesProcessed, estimatedTotal, lineNumber)

			if ctx.Err() != nil || (opts.Cancelled != nil && opts.Cancelled()) {
				log.Info().
					Int("chunks_completed", chunkNumber).
					Uint64("records", set.Stats.RecordsCreated).
					Msg("Parse cancelled, keeping completed chunks")
				stopped = true
			}
		}

		if atEOF {
			break
		}
	}

	set.Stats.ParsingTime = time.Since(start)
	if secs := set.Stats.ParsingTime.Seconds(); secs > 0 {
		set.Stats.RecordsPerSec = float64(set.Stats.RecordsCreated) / secs
	}

	log.Info().
		Str("file", path).
		Uint64("lines_processed", set.Stats.LinesProcessed).
		Uint64("records", set.Stats.RecordsCreated).
		Uint64("parse_errors", set.Stats.ParseErrors).
		Uint64("filtered_unknown", set.Stats.FilteredUnknown).
		Dur("elapsed", set.Stats.ParsingTime).
		Msg("Parse complete")

	return set, nil
}

// processChunk drives the line parser and cleaner over one chunk and folds
// the outcome counters into the set's stats.
func (r *FileReader) processChunk(set *domain.RecordSet, chunk []numberedLine, chunkNumber int, onChunk func(int, []domain.Record) error) error {
	parsed := make([]domain.ParsedLine, 0, len(chunk))

	for _, nl := range chunk {
		lines, outcome := r.parser.ParseLine(nl.text, nl.number)
		set.Stats.LinesProcessed++

		switch outcome {
		case OutcomeRecord:
			parsed = append(parsed, lines...)
		case OutcomeBadNumber, OutcomeImplausible:
			set.Stats.ParseErrors++
		case OutcomeUnknownParameter:
			set.Stats.FilteredUnknown++
		}
	}

	records := r.cleaner.Clean(parsed)
	set.Stats.RecordsCreated += uint64(len(records))
	set.Stats.ChunksProcessed++

	if onChunk != nil {
		if err := onChunk(chunkNumber, records); err != nil {
			return err
		}
	}
	set.Records = append(set.Records, records...)
	return nil
}

// reportProgress estimates completion from lines processed against the byte
// size heuristic, never letting the estimate lag behind lines already seen.
func reportProgress(progress func(int, string), processed uint64, estimatedTotal int64, currentLine int) {
	if progress == nil {
		return
	}
	total := estimatedTotal
	if int64(currentLine) > total {
		total = int64(currentLine)
	}
	percent := int(float64(processed) / float64(total) * 100)
	if percent > 100 {
		percent = 100
	}
	progress(percent, fmt.Sprintf("Processing line %d", currentLine))
}
