package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/gobioeng/halog-ingest/internal/backup"
)

// Engine owns the store file. It verifies integrity at startup, recovers
// from backups when the file is corrupt, and hands out per-worker Handles.
type Engine struct {
	path    string
	backups *backup.Manager
}

// Open prepares the store file at path. A corrupt file is quarantined and
// the newest valid backup restored; if no backup exists a fresh store is
// created. The schema is applied before Open returns.
func Open(path string, backups *backup.Manager) (*Engine, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	e := &Engine{path: path, backups: backups}

	if _, err := os.Stat(path); err == nil {
		if err := backup.Verify(path); err != nil {
			log.Error().Err(err).Str("path", path).Msg("Database failed integrity check")
			if err := e.recover(); err != nil {
				return nil, err
			}
		}
	}

	h, err := e.NewHandle()
	if err != nil {
		return nil, err
	}
	defer h.Close()

	if err := h.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Info().Str("path", path).Msg("Database opened")
	return e, nil
}

// Path returns the store file location.
func (e *Engine) Path() string {
	return e.path
}

// recover moves the corrupt file aside and restores the newest backup that
// passes verification. Without any usable backup the path is simply left
// empty so a fresh store gets created.
func (e *Engine) recover() error {
	if _, err := e.backups.QuarantineCorrupt(e.path); err != nil {
		return err
	}
	if err := e.backups.RestoreLatest(e.path); err != nil {
		log.Warn().Err(err).Msg("No valid backup, starting with empty database")
	}
	return nil
}

// CheckHealth verifies the store file is readable and structurally sound.
func (e *Engine) CheckHealth(ctx context.Context) error {
	h, err := e.NewHandle()
	if err != nil {
		return err
	}
	defer h.Close()

	var status string
	if err := h.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&status); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if status != "ok" {
		return fmt.Errorf("integrity check reported: %s", status)
	}
	return nil
}

// Vacuum compacts the store file. Requires exclusive access.
func (e *Engine) Vacuum(ctx context.Context) error {
	h, err := e.NewHandle()
	if err != nil {
		return err
	}
	defer h.Close()

	before, _ := e.Size()
	if _, err := h.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuum failed: %w", err)
	}
	after, _ := e.Size()

	log.Info().
		Int64("before_bytes", before).
		Int64("after_bytes", after).
		Msg("Database vacuumed")
	return nil
}

// Size returns the store file size in bytes.
func (e *Engine) Size() (int64, error) {
	fi, err := os.Stat(e.path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// CreateBackup takes a timestamped copy of the store file. Callers must
// ensure no write transaction is active.
func (e *Engine) CreateBackup() (backup.Info, error) {
	return e.backups.Create(e.path)
}

// ListBackups returns the available backups, newest first.
func (e *Engine) ListBackups() []backup.Info {
	return e.backups.List()
}

// RestoreBackup replaces the store file with the named backup.
func (e *Engine) RestoreBackup(name string) error {
	return e.backups.Restore(name, e.path)
}
