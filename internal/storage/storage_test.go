package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gobioeng/halog-ingest/internal/backup"
	"github.com/gobioeng/halog-ingest/internal/domain"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()

	backups, err := backup.NewManager(filepath.Join(dir, "backups"), 3)
	if err != nil {
		t.Fatalf("backup.NewManager() error = %v", err)
	}

	engine, err := Open(filepath.Join(dir, "halog_water.db"), backups)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return engine
}

func testRecords(n int) []domain.Record {
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	records := make([]domain.Record, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, domain.Record{
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
			Serial:      "1234",
			ParameterID: "magnetronFlow",
			Statistic:   domain.StatAvg,
			Value:       11.0 + float64(i%5)*0.1,
			Count:       100,
			Unit:        "L/min",
			Description: "Mag Flow",
			Quality:     domain.QualityExcellent,
			LineNumber:  i + 1,
		})
	}
	return records
}

func TestInsertBatchRoundTrip(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	h, err := engine.NewHandle()
	if err != nil {
		t.Fatalf("NewHandle() error = %v", err)
	}
	defer h.Close()

	records := testRecords(20)
	n, err := h.InsertBatch(ctx, records, 0)
	if err != nil {
		t.Fatalf("InsertBatch() error = %v", err)
	}
	if n != 20 {
		t.Fatalf("InsertBatch() wrote %d, want 20", n)
	}

	var got []domain.Record
	if err := h.ReadAll(ctx, func(r domain.Record) error {
		got = append(got, r)
		return nil
	}); err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	if len(got) != 20 {
		t.Fatalf("ReadAll() returned %d records, want 20", len(got))
	}
	first := got[0]
	want := records[0]
	if !first.Timestamp.Equal(want.Timestamp) || first.ParameterID != want.ParameterID ||
		first.Statistic != want.Statistic || first.Value != want.Value ||
		first.Quality != want.Quality || first.LineNumber != want.LineNumber {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", first, want)
	}
}

func TestInsertBatchIntermediateCommits(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	h, err := engine.NewHandle()
	if err != nil {
		t.Fatalf("NewHandle() error = %v", err)
	}
	defer h.Close()

	// Commit interval smaller than the batch forces intermediate commits.
	n, err := h.InsertBatch(ctx, testRecords(25), 10)
	if err != nil {
		t.Fatalf("InsertBatch() error = %v", err)
	}
	if n != 25 {
		t.Errorf("InsertBatch() wrote %d, want 25", n)
	}

	total, err := h.RecordCount(ctx)
	if err != nil {
		t.Fatalf("RecordCount() error = %v", err)
	}
	if total != 25 {
		t.Errorf("RecordCount() = %d, want 25", total)
	}
}

func TestRowsBeforeFinalTx(t *testing.T) {
	tests := []struct {
		name     string
		written  int
		interval int
		want     int
	}{
		{"partial final transaction", 25, 10, 20},
		{"exact multiple holds a full interval", 20, 10, 10},
		{"single full transaction", 10, 10, 0},
		{"batch smaller than interval", 7, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rowsBeforeFinalTx(tt.written, tt.interval); got != tt.want {
				t.Errorf("rowsBeforeFinalTx(%d, %d) = %d, want %d",
					tt.written, tt.interval, got, tt.want)
			}
		})
	}
}

func TestReadByParameterAndRange(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	h, err := engine.NewHandle()
	if err != nil {
		t.Fatalf("NewHandle() error = %v", err)
	}
	defer h.Close()

	records := testRecords(10)
	records[3].ParameterID = "pumpPressure"
	if _, err := h.InsertBatch(ctx, records, 0); err != nil {
		t.Fatalf("InsertBatch() error = %v", err)
	}

	count := 0
	if err := h.ReadByParameter(ctx, "pumpPressure", func(r domain.Record) error {
		count++
		return nil
	}); err != nil {
		t.Fatalf("ReadByParameter() error = %v", err)
	}
	if count != 1 {
		t.Errorf("ReadByParameter(pumpPressure) = %d records, want 1", count)
	}

	from := records[2].Timestamp
	to := records[5].Timestamp
	count = 0
	if err := h.ReadRange(ctx, from, to, func(r domain.Record) error {
		if r.Timestamp.Before(from) || r.Timestamp.After(to) {
			t.Errorf("record at %v outside [%v, %v]", r.Timestamp, from, to)
		}
		count++
		return nil
	}); err != nil {
		t.Fatalf("ReadRange() error = %v", err)
	}
	if count != 4 {
		t.Errorf("ReadRange() = %d records, want 4", count)
	}
}

func TestSummaryStatistics(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	h, err := engine.NewHandle()
	if err != nil {
		t.Fatalf("NewHandle() error = %v", err)
	}
	defer h.Close()

	records := testRecords(6)
	// Min/max rows must not enter the per-parameter aggregates.
	records[5].Statistic = domain.StatMax
	records[5].Value = 99
	if _, err := h.InsertBatch(ctx, records, 0); err != nil {
		t.Fatalf("InsertBatch() error = %v", err)
	}

	summaries, err := h.SummaryStatistics(ctx)
	if err != nil {
		t.Fatalf("SummaryStatistics() error = %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("SummaryStatistics() returned %d rows, want 1", len(summaries))
	}
	s := summaries[0]
	if s.ParameterID != "magnetronFlow" || s.RecordCount != 5 {
		t.Errorf("summary = %+v, want magnetronFlow with 5 avg readings", s)
	}
	if s.MaxValue == 99 {
		t.Error("summary aggregated a max-statistic row")
	}
}

func TestFileImportHistory(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	h, err := engine.NewHandle()
	if err != nil {
		t.Fatalf("NewHandle() error = %v", err)
	}
	defer h.Close()

	fi := domain.FileImport{
		Filename:        "halog_2024.log",
		FileSize:        4096,
		RecordsImported: 300,
		ImportedAt:      time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
		ParsingStats:    domain.ImportStats{LinesProcessed: 500, RecordsCreated: 300},
	}
	if _, err := h.RecordFileImport(ctx, fi); err != nil {
		t.Fatalf("RecordFileImport() error = %v", err)
	}

	history, err := h.FileHistory(ctx, 10)
	if err != nil {
		t.Fatalf("FileHistory() error = %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("FileHistory() returned %d entries, want 1", len(history))
	}
	got := history[0]
	if got.Filename != fi.Filename || got.RecordsImported != fi.RecordsImported {
		t.Errorf("history entry = %+v, want %+v", got, fi)
	}
	if got.ParsingStats.LinesProcessed != 500 {
		t.Errorf("ParsingStats.LinesProcessed = %d, want 500", got.ParsingStats.LinesProcessed)
	}
}

func TestRecordValidation(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	h, err := engine.NewHandle()
	if err != nil {
		t.Fatalf("NewHandle() error = %v", err)
	}
	defer h.Close()

	summary := domain.QualitySummary{
		Score:            92.5,
		Grade:            "A",
		RecordsProcessed: 100,
		RecordsPassed:    98,
		Anomalies:        2,
		Warnings:         []string{"2 potential duplicate entries found within 30s"},
	}
	if err := h.RecordValidation(ctx, "session-1", "halog_2024.log", summary); err != nil {
		t.Fatalf("RecordValidation() error = %v", err)
	}
}

func TestClearAll(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	h, err := engine.NewHandle()
	if err != nil {
		t.Fatalf("NewHandle() error = %v", err)
	}
	defer h.Close()

	if _, err := h.InsertBatch(ctx, testRecords(5), 0); err != nil {
		t.Fatalf("InsertBatch() error = %v", err)
	}
	if err := h.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}

	total, err := h.RecordCount(ctx)
	if err != nil {
		t.Fatalf("RecordCount() error = %v", err)
	}
	if total != 0 {
		t.Errorf("RecordCount() after ClearAll = %d, want 0", total)
	}
}

func TestOpenRecoversCorruptFile(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "halog_water.db")

	backups, err := backup.NewManager(filepath.Join(dir, "backups"), 3)
	if err != nil {
		t.Fatalf("backup.NewManager() error = %v", err)
	}

	// Seed a healthy store with data and a backup.
	engine, err := Open(dbPath, backups)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	h, err := engine.NewHandle()
	if err != nil {
		t.Fatalf("NewHandle() error = %v", err)
	}
	if _, err := h.InsertBatch(context.Background(), testRecords(10), 0); err != nil {
		t.Fatalf("InsertBatch() error = %v", err)
	}
	h.Close()
	if _, err := engine.CreateBackup(); err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}

	// Clobber the store file.
	if err := os.WriteFile(dbPath, []byte("this is not a database"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Stale WAL/SHM from the healthy store would mask the corruption.
	os.Remove(dbPath + "-wal")
	os.Remove(dbPath + "-shm")

	engine, err = Open(dbPath, backups)
	if err != nil {
		t.Fatalf("Open() after corruption error = %v", err)
	}

	h, err = engine.NewHandle()
	if err != nil {
		t.Fatalf("NewHandle() error = %v", err)
	}
	defer h.Close()

	total, err := h.RecordCount(context.Background())
	if err != nil {
		t.Fatalf("RecordCount() error = %v", err)
	}
	if total != 10 {
		t.Errorf("RecordCount() after recovery = %d, want 10", total)
	}

	// The corrupt file was preserved, not destroyed.
	quarantined, err := filepath.Glob(filepath.Join(dir, "backups", "corrupt_*.db"))
	if err != nil || len(quarantined) != 1 {
		t.Errorf("quarantined files = %v, want exactly one", quarantined)
	}
}

func TestOpenWithoutBackupStartsFresh(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "halog_water.db")

	backups, err := backup.NewManager(filepath.Join(dir, "backups"), 3)
	if err != nil {
		t.Fatalf("backup.NewManager() error = %v", err)
	}

	if err := os.WriteFile(dbPath, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	engine, err := Open(dbPath, backups)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := engine.CheckHealth(context.Background()); err != nil {
		t.Errorf("CheckHealth() on fresh store error = %v", err)
	}
}

func TestVacuumAndSize(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	h, err := engine.NewHandle()
	if err != nil {
		t.Fatalf("NewHandle() error = %v", err)
	}
	if _, err := h.InsertBatch(ctx, testRecords(100), 0); err != nil {
		t.Fatalf("InsertBatch() error = %v", err)
	}
	if err := h.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}
	h.Close()

	if err := engine.Vacuum(ctx); err != nil {
		t.Fatalf("Vacuum() error = %v", err)
	}
	size, err := engine.Size()
	if err != nil || size <= 0 {
		t.Errorf("Size() = %d, %v; want positive size", size, err)
	}
}

func TestConcurrentHandles(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	const workers = 4
	errCh := make(chan error, workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			h, err := engine.NewHandle()
			if err != nil {
				errCh <- err
				return
			}
			defer h.Close()

			records := testRecords(10)
			for i := range records {
				records[i].Serial = fmt.Sprintf("machine-%d", w)
			}
			_, err = h.InsertBatch(ctx, records, 0)
			errCh <- err
		}(w)
	}

	for w := 0; w < workers; w++ {
		if err := <-errCh; err != nil {
			t.Fatalf("worker error = %v", err)
		}
	}

	h, err := engine.NewHandle()
	if err != nil {
		t.Fatalf("NewHandle() error = %v", err)
	}
	defer h.Close()

	total, err := h.RecordCount(ctx)
	if err != nil {
		t.Fatalf("RecordCount() error = %v", err)
	}
	if total != workers*10 {
		t.Errorf("RecordCount() = %d, want %d", total, workers*10)
	}
}
