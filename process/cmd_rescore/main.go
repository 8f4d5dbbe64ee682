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
	"tipscan/process/rescore"
)

func main() {
	fs := ff.NewFlagSet("tipscan-rescore")
	var (
		dsn      = fs.StringLong("db-dsn", "", "Postgres DSN (or TIPSCAN_DB_DSN)")
		username = fs.StringLong("user", "", "only rescore this user's scans")
		minConf  = fs.Float64Long("min-conf", 0.12, "minimum confidence to accept a new amount")
		apply    = fs.BoolLong("apply", "write changes (default is a dry run)")
		logLevel = fs.StringLong("log-level", "info", "debug, info, warn or error")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("TIPSCAN")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Options{Level: *logLevel})
	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "TIPSCAN_DB_DSN not set; export it or pass --db-dsn")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := gorm.Open(postgres.Open(*dsn), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("open db")
	}
	opts := rescore.Options{DryRun: !*apply, MinConfidence: *minConf}
	if *username != "" {
		var user models.User
		if err := gdb.Where("username = ?", *username).First(&user).Error; err != nil {
			log.Fatal().Err(err).Str("user", *username).Msg("user not found")
		}
		opts.UserID = user.ID
	}
	if _, err := rescore.Run(ctx, gdb, opts, os.Stdout, log); err != nil {
		fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
		os.Exit(1)
	}
}
