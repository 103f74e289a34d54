package storage

// Schema for the embedded store. water_logs holds one row per statistic
// (avg, min, max) of a reading; file_imports and validation_log carry
// per-import provenance and quality results.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS water_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		datetime TEXT NOT NULL,
		serial_number TEXT NOT NULL,
		parameter_type TEXT NOT NULL,
		statistic_type TEXT NOT NULL,
		value REAL,
		count INTEGER,
		unit TEXT,
		description TEXT,
		data_quality TEXT,
		line_number INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS file_imports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL,
		file_size INTEGER,
		records_imported INTEGER,
		imported_at TEXT NOT NULL,
		parsing_stats TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS validation_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		score REAL,
		grade TEXT,
		records_processed INTEGER,
		records_passed INTEGER,
		anomalies INTEGER,
		warnings TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_datetime ON water_logs(datetime)`,
	`CREATE INDEX IF NOT EXISTS idx_parameter_type ON water_logs(parameter_type)`,
	`CREATE INDEX IF NOT EXISTS idx_serial_parameter ON water_logs(serial_number, parameter_type)`,
	`CREATE INDEX IF NOT EXISTS idx_datetime_parameter ON water_logs(datetime, parameter_type)`,
	`CREATE INDEX IF NOT EXISTS idx_statistic_type ON water_logs(statistic_type)`,
	`CREATE INDEX IF NOT EXISTS idx_combined ON water_logs(datetime, serial_number, parameter_type, statistic_type)`,
}

// pragmas tune each connection for bulk ingest on a single local file.
// WAL keeps readers unblocked during imports; synchronous=NORMAL is safe
// with WAL and much faster than FULL.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA cache_size=50000",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA mmap_size=268435456",
	"PRAGMA busy_timeout=30000",
}
