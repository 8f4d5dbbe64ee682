package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"tipscan/process/report"
)

func main() {
	fs := ff.NewFlagSet("tipscan-report")
	var (
		dsn      = fs.StringLong("db-dsn", "", "Postgres DSN (or TIPSCAN_DB_DSN)")
		username = fs.StringLong("username", "admin", "username to report for")
		month    = fs.StringLong("month", time.Now().UTC().Format("2006-01"), "month to report (YYYY-MM)")
		list     = fs.BoolLong("list", "list matching rows")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("TIPSCAN")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "TIPSCAN_DB_DSN not set; export it or pass --db-dsn")
		os.Exit(2)
	}

	ctx := context.Background()
	pool, err := report.NewPool(ctx, *dsn)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer pool.Close()

	summary, err := report.Monthly(ctx, pool, *username, *month)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	var rows []report.Row
	if *list {
		if rows, err = report.List(ctx, pool, *username, *month); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	report.Print(os.Stdout, summary, rows)
}
