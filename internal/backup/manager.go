package backup

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultMaxBackups is how many rotated copies are kept.
	DefaultMaxBackups = 3

	backupTimeLayout = "20060102_150405"
	metadataFilename = "backup_metadata.json"
)

// Info describes one backup copy. It is persisted in the JSON sidecar next
// to the backup files.
type Info struct {
	Filename   string    `json:"filename"`
	CreatedAt  time.Time `json:"created_at"`
	SourcePath string    `json:"source_path"`
	FileSize   int64     `json:"file_size"`
}

type metadata struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Backups   []Info    `json:"backups"`
}

// Manager owns the rotating set of store-file backups and their JSON
// sidecar. Backups are plain file copies; callers must not take them while a
// write transaction is in flight.
type Manager struct {
	dir        string
	maxBackups int
}

// NewManager creates a backup manager rooted at dir.
func NewManager(dir string, maxBackups int) (*Manager, error) {
	if maxBackups <= 0 {
		maxBackups = DefaultMaxBackups
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	return &Manager{dir: dir, maxBackups: maxBackups}, nil
}

// Create copies the store file into the backup directory, records it in the
// sidecar and rotates old copies out.
func (m *Manager) Create(sourcePath string) (Info, error) {
	if _, err := os.Stat(sourcePath); err != nil {
		return Info{}, fmt.Errorf("source database not found: %w", err)
	}

	stamp := time.Now().Format(backupTimeLayout)
	filename := fmt.Sprintf("halog_water_backup_%s.db", stamp)
	backupPath := filepath.Join(m.dir, filename)
	// Second-resolution names can collide when backups run back to back.
	for n := 1; ; n++ {
		if _, err := os.Stat(backupPath); os.IsNotExist(err) {
			break
		}
		filename = fmt.Sprintf("halog_water_backup_%s_%d.db", stamp, n)
		backupPath = filepath.Join(m.dir, filename)
	}

	size, err := copyFile(sourcePath, backupPath)
	if err != nil {
		return Info{}, fmt.Errorf("failed to copy database: %w", err)
	}

	info := Info{
		Filename:   filename,
		CreatedAt:  time.Now(),
		SourcePath: sourcePath,
		FileSize:   size,
	}

	meta := m.loadMetadata()
	meta.Backups = append(meta.Backups, info)
	sort.Slice(meta.Backups, func(i, j int) bool {
		return meta.Backups[i].CreatedAt.After(meta.Backups[j].CreatedAt)
	})

	m.rotate(&meta)

	if err := m.saveMetadata(meta); err != nil {
		log.Warn().Err(err).Msg("Could not update backup metadata")
	}

	log.Info().
		Str("backup", filename).
		Int64("size_bytes", size).
		Msg("Database backup created")

	return info, nil
}

// List returns the recorded backups whose files still exist, newest first.
func (m *Manager) List() []Info {
	meta := m.loadMetadata()
	available := make([]Info, 0, len(meta.Backups))
	for _, b := range meta.Backups {
		if _, err := os.Stat(filepath.Join(m.dir, b.Filename)); err == nil {
			available = append(available, b)
		}
	}
	return available
}

// Restore replaces targetPath with the named backup. The backup is
// integrity-checked first, and the current file (if any) is preserved as a
// pre-restore copy.
func (m *Manager) Restore(name, targetPath string) error {
	backupPath := filepath.Join(m.dir, name)
	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("backup file not found: %w", err)
	}

	if err := Verify(backupPath); err != nil {
		return fmt.Errorf("backup %s is corrupted: %w", name, err)
	}

	if _, err := os.Stat(targetPath); err == nil {
		preName := fmt.Sprintf("pre_restore_backup_%s.db", time.Now().Format(backupTimeLayout))
		if _, err := copyFile(targetPath, filepath.Join(m.dir, preName)); err != nil {
			return fmt.Errorf("failed to preserve current database: %w", err)
		}
		log.Info().Str("file", preName).Msg("Current database preserved before restore")
	}

	if _, err := copyFile(backupPath, targetPath); err != nil {
		return fmt.Errorf("failed to restore backup: %w", err)
	}

	log.Info().Str("backup", name).Msg("Database restored from backup")
	return nil
}

// RestoreLatest walks the backups newest-first and restores the first one
// that passes its own integrity check.
func (m *Manager) RestoreLatest(targetPath string) error {
	for _, b := range m.List() {
		if err := m.Restore(b.Filename, targetPath); err != nil {
			log.Warn().Err(err).Str("backup", b.Filename).Msg("Skipping unusable backup")
			continue
		}
		return nil
	}
	return fmt.Errorf("no valid backup available")
}

// QuarantineCorrupt moves a corrupt store file aside so recovery never
// destroys evidence.
func (m *Manager) QuarantineCorrupt(path string) (string, error) {
	name := fmt.Sprintf("corrupt_%s.db", time.Now().Format(backupTimeLayout))
	dest := filepath.Join(m.dir, name)
	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("failed to quarantine corrupt database: %w", err)
	}
	log.Warn().Str("file", dest).Msg("Corrupt database moved aside")
	return dest, nil
}

// Verify runs the embedded engine's integrity check against a store file.
func Verify(path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	var status string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&status); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if status != "ok" {
		return fmt.Errorf("integrity check reported: %s", status)
	}
	return nil
}

func (m *Manager) rotate(meta *metadata) {
	if len(meta.Backups) <= m.maxBackups {
		return
	}
	for _, old := range meta.Backups[m.maxBackups:] {
		path := filepath.Join(m.dir, old.Filename)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("backup", old.Filename).Msg("Could not remove old backup")
			continue
		}
		log.Debug().Str("backup", old.Filename).Msg("Removed old backup")
	}
	meta.Backups = meta.Backups[:m.maxBackups]
}

func (m *Manager) loadMetadata() metadata {
	data, err := os.ReadFile(filepath.Join(m.dir, metadataFilename))
	if err == nil {
		var meta metadata
		if err := json.Unmarshal(data, &meta); err == nil {
			return meta
		}
		log.Warn().Err(err).Msg("Could not parse backup metadata, starting fresh")
	}
	return metadata{Version: "1.0", CreatedAt: time.Now()}
}

func (m *Manager) saveMetadata(meta metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(m.dir, metadataFilename), data, 0o644)
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return 0, err
	}
	return n, out.Close()
}
