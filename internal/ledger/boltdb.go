package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"

	"github.com/gobioeng/halog-ingest/internal/domain"
)

const (
	bucketName = "imports"
)

// BoltDBLedger records per-file import positions in BoltDB so a re-run can
// tell an already-imported file from a grown or changed one.
type BoltDBLedger struct {
	db *bbolt.DB
}

// NewBoltDBLedger opens (or creates) the ledger file at dbPath.
func NewBoltDBLedger(dbPath string) (*BoltDBLedger, error) {
	// Try to open with short timeout
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		// If file is locked, another process is holding it. That usually means
		// a previous run was killed without graceful shutdown; the user has to
		// stop the process manually.
		return nil, fmt.Errorf("failed to open boltdb (file may be locked by another process): %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	log.Info().
		Str("db_path", dbPath).
		Msg("Import ledger initialized")

	return &BoltDBLedger{db: db}, nil
}

// Get retrieves the last recorded position for a file. A file never seen
// before yields a zero position and no error.
func (l *BoltDBLedger) Get(ctx context.Context, filePath string) (domain.ImportPosition, error) {
	var pos domain.ImportPosition

	err := l.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		val := b.Get([]byte(filePath))
		if val == nil {
			return nil
		}
		return json.Unmarshal(val, &pos)
	})

	if err != nil {
		return domain.ImportPosition{}, fmt.Errorf("failed to get import position: %w", err)
	}

	return pos, nil
}

// Set stores the position for a file.
func (l *BoltDBLedger) Set(ctx context.Context, filePath string, pos domain.ImportPosition) error {
	val, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("failed to encode import position: %w", err)
	}

	err = l.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Put([]byte(filePath), val)
	})

	if err != nil {
		return fmt.Errorf("failed to set import position: %w", err)
	}

	log.Debug().
		Str("file_path", filePath).
		Uint64("lines_processed", pos.LinesProcessed).
		Uint64("records_imported", pos.RecordsImported).
		Msg("Import position updated")

	return nil
}

// Delete removes the position for a file.
func (l *BoltDBLedger) Delete(ctx context.Context, filePath string) error {
	err := l.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Delete([]byte(filePath))
	})

	if err != nil {
		return fmt.Errorf("failed to delete import position: %w", err)
	}

	return nil
}

// List returns every recorded position keyed by file path.
func (l *BoltDBLedger) List(ctx context.Context) (map[string]domain.ImportPosition, error) {
	result := make(map[string]domain.ImportPosition)

	err := l.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		return b.ForEach(func(k, v []byte) error {
			var pos domain.ImportPosition
			if err := json.Unmarshal(v, &pos); err != nil {
				log.Warn().Str("file_path", string(k)).Msg("Skipping unreadable ledger entry")
				return nil
			}
			result[string(k)] = pos
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list import positions: %w", err)
	}

	return result, nil
}

// Close closes the ledger database.
func (l *BoltDBLedger) Close() error {
	log.Info().Msg("Closing import ledger")
	return l.db.Close()
}
