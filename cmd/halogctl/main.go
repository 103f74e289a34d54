package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/gobioeng/halog-ingest/internal/backup"
	"github.com/gobioeng/halog-ingest/internal/config"
	"github.com/gobioeng/halog-ingest/internal/observability"
	"github.com/gobioeng/halog-ingest/internal/storage"
)

const usage = `usage: halogctl <command> [args]

commands:
  health             verify store file integrity
  stats              per-parameter summary of stored readings
  history            past file imports
  backup             take a backup of the store file
  backups            list available backups
  restore <name>     restore the store file from a backup
  vacuum             compact the store file
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogFile)

	backups, err := backup.NewManager(cfg.BackupDir, cfg.MaxBackups)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open backup directory")
	}

	engine, err := storage.Open(cfg.DatabasePath, backups)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}

	ctx := context.Background()

	switch command {
	case "health":
		if err := engine.CheckHealth(ctx); err != nil {
			log.Fatal().Err(err).Msg("Health check failed")
		}
		size, _ := engine.Size()
		fmt.Printf("ok (%d bytes)\n", size)

	case "stats":
		runStats(ctx, engine)

	case "history":
		runHistory(ctx, engine)

	case "backup":
		info, err := engine.CreateBackup()
		if err != nil {
			log.Fatal().Err(err).Msg("Backup failed")
		}
		fmt.Printf("created %s (%d bytes)\n", info.Filename, info.FileSize)

	case "backups":
		for _, b := range engine.ListBackups() {
			fmt.Printf("%s  %s  %d bytes\n",
				b.Filename, b.CreatedAt.Format("2006-01-02 15:04:05"), b.FileSize)
		}

	case "restore":
		if len(os.Args) < 3 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		if err := engine.RestoreBackup(os.Args[2]); err != nil {
			log.Fatal().Err(err).Msg("Restore failed")
		}
		fmt.Println("restored")

	case "vacuum":
		if err := engine.Vacuum(ctx); err != nil {
			log.Fatal().Err(err).Msg("Vacuum failed")
		}

	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func runStats(ctx context.Context, engine *storage.Engine) {
	handle, err := engine.NewHandle()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store handle")
	}
	defer handle.Close()

	summaries, err := handle.SummaryStatistics(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read summary statistics")
	}

	total, err := handle.RecordCount(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to count records")
	}

	fmt.Printf("%d records total\n", total)
	for _, s := range summaries {
		fmt.Printf("%-28s %8d readings  min=%.2f max=%.2f avg=%.2f  %s .. %s\n",
			s.ParameterID, s.RecordCount, s.MinValue, s.MaxValue, s.AvgValue,
			s.FirstSeen, s.LastSeen)
	}
}

func runHistory(ctx context.Context, engine *storage.Engine) {
	handle, err := engine.NewHandle()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store handle")
	}
	defer handle.Close()

	imports, err := handle.FileHistory(ctx, 50)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read import history")
	}

	for _, fi := range imports {
		fmt.Printf("%s  %s  %d records  %d bytes\n",
			fi.ImportedAt.Format("2006-01-02 15:04:05"), fi.Filename,
			fi.RecordsImported, fi.FileSize)
	}
}
