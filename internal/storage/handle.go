package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/gobioeng/halog-ingest/internal/domain"
)

// DefaultCommitInterval is how many rows a bulk insert writes before it
// commits and opens a fresh transaction.
const DefaultCommitInterval = 10000

// Handle is a single-connection view of the store. Each worker goroutine
// creates its own Handle; the underlying pool is pinned to one connection
// so transactions and pragmas behave predictably.
type Handle struct {
	db *sql.DB
}

// NewHandle opens a dedicated connection to the store file with the
// ingest pragmas applied.
func (e *Engine) NewHandle() (*Handle, error) {
	db, err := sql.Open("sqlite3", e.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	return &Handle{db: db}, nil
}

// Close releases the connection.
func (h *Handle) Close() error {
	return h.db.Close()
}

func (h *Handle) initSchema() error {
	for _, stmt := range schemaStatements {
		if _, err := h.db.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

// InsertBatch writes records in one transaction through a prepared
// statement, committing and reopening the transaction every commitInterval
// rows so very large imports never hold a single giant transaction.
// Returns the number of rows written.
func (h *Handle) InsertBatch(ctx context.Context, records []domain.Record, commitInterval int) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if commitInterval <= 0 {
		commitInterval = DefaultCommitInterval
	}

	start := time.Now()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	const insertSQL = `INSERT INTO water_logs
		(datetime, serial_number, parameter_type, statistic_type, value, count, unit, description, data_quality, line_number)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}

	written := 0
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.Timestamp.Format(domain.TimestampLayout),
			r.Serial,
			r.ParameterID,
			string(r.Statistic),
			r.Value,
			r.Count,
			r.Unit,
			r.Description,
			string(r.Quality),
			r.LineNumber,
		); err != nil {
			stmt.Close()
			tx.Rollback()
			return written - written%commitInterval, fmt.Errorf("failed to insert record: %w", err)
		}
		written++

		if written%commitInterval == 0 && written < len(records) {
			stmt.Close()
			if err := tx.Commit(); err != nil {
				return written - commitInterval, fmt.Errorf("failed to commit batch: %w", err)
			}
			log.Debug().Int("written", written).Msg("Intermediate commit")

			tx, err = h.db.BeginTx(ctx, nil)
			if err != nil {
				return written, fmt.Errorf("failed to begin transaction: %w", err)
			}
			stmt, err = tx.PrepareContext(ctx, insertSQL)
			if err != nil {
				tx.Rollback()
				return written, fmt.Errorf("failed to prepare insert: %w", err)
			}
		}
	}

	stmt.Close()
	if err := tx.Commit(); err != nil {
		return rowsBeforeFinalTx(written, commitInterval), fmt.Errorf("failed to commit batch: %w", err)
	}

	elapsed := time.Since(start)
	log.Info().
		Int("records", written).
		Dur("elapsed_ms", elapsed).
		Float64("records_per_second", float64(written)/elapsed.Seconds()).
		Msg("Batch inserted")

	return written, nil
}

// rowsBeforeFinalTx reports how many rows were already committed when the
// final transaction of a batch failed. The intermediate commit skips the
// last interval boundary, so on an exact multiple the final transaction
// still holds a full interval of rows.
func rowsBeforeFinalTx(written, commitInterval int) int {
	if rem := written % commitInterval; rem != 0 {
		return written - rem
	}
	return written - commitInterval
}

const selectColumns = `datetime, serial_number, parameter_type, statistic_type, value, count, unit, description, data_quality, line_number`

func scanRecord(rows *sql.Rows) (domain.Record, error) {
	var (
		r       domain.Record
		ts      string
		stat    string
		quality string
	)
	if err := rows.Scan(&ts, &r.Serial, &r.ParameterID, &stat, &r.Value,
		&r.Count, &r.Unit, &r.Description, &quality, &r.LineNumber); err != nil {
		return domain.Record{}, err
	}
	parsed, err := time.Parse(domain.TimestampLayout, ts)
	if err != nil {
		return domain.Record{}, fmt.Errorf("invalid stored timestamp %q: %w", ts, err)
	}
	r.Timestamp = parsed
	r.Statistic = domain.StatisticKind(stat)
	r.Quality = domain.QualityTier(quality)
	return r, nil
}

func (h *Handle) stream(ctx context.Context, query string, fn func(domain.Record) error, args ...any) error {
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ReadAll streams every stored record in timestamp order through fn.
func (h *Handle) ReadAll(ctx context.Context, fn func(domain.Record) error) error {
	return h.stream(ctx,
		`SELECT `+selectColumns+` FROM water_logs ORDER BY datetime`, fn)
}

// ReadByParameter streams records for one canonical parameter.
func (h *Handle) ReadByParameter(ctx context.Context, parameterID string, fn func(domain.Record) error) error {
	return h.stream(ctx,
		`SELECT `+selectColumns+` FROM water_logs WHERE parameter_type = ? ORDER BY datetime`,
		fn, parameterID)
}

// ReadRange streams records within [from, to].
func (h *Handle) ReadRange(ctx context.Context, from, to time.Time, fn func(domain.Record) error) error {
	return h.stream(ctx,
		`SELECT `+selectColumns+` FROM water_logs WHERE datetime BETWEEN ? AND ? ORDER BY datetime`,
		fn, from.Format(domain.TimestampLayout), to.Format(domain.TimestampLayout))
}

// RecentRecords returns the newest records, most recent first.
func (h *Handle) RecentRecords(ctx context.Context, limit int) ([]domain.Record, error) {
	var out []domain.Record
	err := h.stream(ctx,
		`SELECT `+selectColumns+` FROM water_logs ORDER BY datetime DESC LIMIT ?`,
		func(r domain.Record) error {
			out = append(out, r)
			return nil
		}, limit)
	return out, err
}

// ParameterSummary aggregates stored readings for one parameter.
type ParameterSummary struct {
	ParameterID string
	RecordCount int64
	MinValue    float64
	MaxValue    float64
	AvgValue    float64
	FirstSeen   string
	LastSeen    string
}

// SummaryStatistics aggregates the avg-statistic rows per parameter.
func (h *Handle) SummaryStatistics(ctx context.Context) ([]ParameterSummary, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT parameter_type, COUNT(*), MIN(value), MAX(value), AVG(value),
		       MIN(datetime), MAX(datetime)
		FROM water_logs
		WHERE statistic_type = ?
		GROUP BY parameter_type
		ORDER BY parameter_type`, string(domain.StatAvg))
	if err != nil {
		return nil, fmt.Errorf("summary query failed: %w", err)
	}
	defer rows.Close()

	var out []ParameterSummary
	for rows.Next() {
		var s ParameterSummary
		if err := rows.Scan(&s.ParameterID, &s.RecordCount, &s.MinValue,
			&s.MaxValue, &s.AvgValue, &s.FirstSeen, &s.LastSeen); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RecordCount returns the total number of stored rows.
func (h *Handle) RecordCount(ctx context.Context) (int64, error) {
	var n int64
	err := h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM water_logs`).Scan(&n)
	return n, err
}

// RecordFileImport persists provenance for a completed import.
func (h *Handle) RecordFileImport(ctx context.Context, fi domain.FileImport) (int64, error) {
	stats, err := json.Marshal(fi.ParsingStats)
	if err != nil {
		return 0, fmt.Errorf("failed to encode parsing stats: %w", err)
	}

	res, err := h.db.ExecContext(ctx, `
		INSERT INTO file_imports (filename, file_size, records_imported, imported_at, parsing_stats)
		VALUES (?, ?, ?, ?, ?)`,
		fi.Filename, fi.FileSize, fi.RecordsImported,
		fi.ImportedAt.Format(domain.TimestampLayout), string(stats))
	if err != nil {
		return 0, fmt.Errorf("failed to record file import: %w", err)
	}
	return res.LastInsertId()
}

// FileHistory returns past imports, newest first.
func (h *Handle) FileHistory(ctx context.Context, limit int) ([]domain.FileImport, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, filename, file_size, records_imported, imported_at, parsing_stats
		FROM file_imports ORDER BY imported_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("file history query failed: %w", err)
	}
	defer rows.Close()

	var out []domain.FileImport
	for rows.Next() {
		var (
			fi    domain.FileImport
			ts    string
			stats string
		)
		if err := rows.Scan(&fi.ID, &fi.Filename, &fi.FileSize,
			&fi.RecordsImported, &ts, &stats); err != nil {
			return nil, err
		}
		if parsed, err := time.Parse(domain.TimestampLayout, ts); err == nil {
			fi.ImportedAt = parsed
		}
		if err := json.Unmarshal([]byte(stats), &fi.ParsingStats); err != nil {
			log.Warn().Err(err).Str("filename", fi.Filename).Msg("Could not decode parsing stats")
		}
		out = append(out, fi)
	}
	return out, rows.Err()
}

// RecordValidation persists a per-session quality summary.
func (h *Handle) RecordValidation(ctx context.Context, sessionID, filename string, s domain.QualitySummary) error {
	warnings, err := json.Marshal(s.Warnings)
	if err != nil {
		return fmt.Errorf("failed to encode warnings: %w", err)
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO validation_log
		(session_id, filename, score, grade, records_processed, records_passed, anomalies, warnings, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, filename, s.Score, s.Grade, s.RecordsProcessed,
		s.RecordsPassed, s.Anomalies, string(warnings),
		time.Now().Format(domain.TimestampLayout))
	if err != nil {
		return fmt.Errorf("failed to record validation: %w", err)
	}
	return nil
}

// ClearAll removes every stored record and all import history.
func (h *Handle) ClearAll(ctx context.Context) error {
	for _, table := range []string{"water_logs", "file_imports", "validation_log"} {
		if _, err := h.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	log.Warn().Msg("All stored data cleared")
	return nil
}
