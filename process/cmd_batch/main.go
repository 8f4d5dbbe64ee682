package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tipscan/models"
	"tipscan/pkg/logger"
	"tipscan/pkg/ocr"
	"tipscan/process/batch"
)

// Scans a directory of receipt images and OCR text dumps into scans for one
// user, optionally watching it for new files.
func main() {
	fs := ff.NewFlagSet("tipscan-batch")
	var (
		dir       = fs.StringLong("dir", "inbox", "directory to scan for receipt images and .txt OCR dumps")
		processed = fs.StringLong("processed-dir", "inbox/processed", "where processed files are moved (empty keeps them in place)")
		username  = fs.StringLong("user", "admin", "username that owns the created scans")
		dsn       = fs.StringLong("db-dsn", "", "Postgres DSN (or TIPSCAN_DB_DSN)")
		ledger    = fs.StringLong("ledger", "tipscan-ledger.db", "bbolt file remembering processed content")
		workers   = fs.IntLong("workers", 0, "worker pool size (default NumCPU)")
		minConf   = fs.Float64Long("min-conf", 0, "drop results below this confidence")
		lang      = fs.StringLong("lang", "eng", "tesseract language")
		logLevel  = fs.StringLong("log-level", "info", "debug, info, warn or error")
		watch     = fs.BoolLong("watch", "keep watching the directory for new files")
		dryRun    = fs.BoolLong("dry-run", "print results without DB writes, ledger updates or moves")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("TIPSCAN")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Options{Level: *logLevel})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	opts := batch.Options{Dir: *dir, ProcessedDir: *processed, Workers: *workers, MinConfidence: *minConf}
	scanner := ocr.NewScanner(ocr.NewTesseractEngine(*lang))

	var (
		sink batch.Sink
		led  *batch.Ledger
	)
	if *dryRun {
		log.Info().Str("dir", *dir).Msg("dry-run: no DB interaction")
		opts.ProcessedDir = ""
		sink = &batch.PrintSink{W: os.Stdout}
	} else {
		if *dsn == "" {
			log.Fatal().Msg("--db-dsn (or TIPSCAN_DB_DSN) must be set to run this tool")
		}
		gdb, err := gorm.Open(postgres.Open(*dsn), &gorm.Config{})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		var user models.User
		if err := gdb.Where("username = ?", *username).First(&user).Error; err != nil {
			log.Fatal().Err(err).Str("user", *username).Msg("user not found")
		}
		sink = batch.GormSink{DB: gdb, UserID: user.ID}

		led, err = batch.OpenLedger(*ledger)
		if err != nil {
			log.Fatal().Err(err).Msg("ledger")
		}
		defer led.Close()
	}

	p := batch.NewProcessor(opts, scanner, led, sink, log)
	if err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("scan failed")
	}
	if *watch && ctx.Err() == nil {
		if err := p.Watch(ctx); err != nil {
			log.Error().Err(err).Msg("watch failed")
		}
	}
	log.Info().
		Int("stored", p.Stats.Count(batch.OutcomeStored)).
		Int("skipped", p.Stats.Count(batch.OutcomeSkipped)).
		Int("no_amount", p.Stats.Count(batch.OutcomeNoAmount)).
		Int("failed", p.Stats.Count(batch.OutcomeFailed)).
		Msg("done")
}
