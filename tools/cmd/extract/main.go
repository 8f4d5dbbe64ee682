package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	_ "golang.org/x/image/webp"

	"tipscan/pkg/logger"
	"tipscan/pkg/ocr"
)

// Prints the extraction for a receipt image or OCR text dump as JSON.
// Reads text from stdin when the path is "-".
func main() {
	fs := ff.NewFlagSet("extract")
	var (
		lang     = fs.StringLong("lang", "eng", "tesseract language")
		profiles = fs.StringLong("profiles", "normal,high-contrast,low-contrast", "comma separated preprocessing profiles")
		verbose  = fs.BoolLong("verbose", "log every OCR pass to stderr")
		showText = fs.BoolLong("text", "include the recognized text")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("TIPSCAN")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(fs.GetArgs()) != 1 {
		fmt.Fprintln(os.Stderr, "usage: extract [flags] <receipt.(png|jpg|gif|webp|txt)|->")
		os.Exit(2)
	}
	path := fs.GetArgs()[0]

	level := "warn"
	if *verbose {
		level = "debug"
	}
	ctx := logger.WithContext(context.Background(), logger.New(logger.Options{Level: level, Out: os.Stderr}))

	var res ocr.Result
	switch {
	case path == "-":
		data, err := io.ReadAll(os.Stdin)
		exitOn(err)
		res = ocr.ScanText(string(data))
	case strings.EqualFold(filepath.Ext(path), ".txt"):
		data, err := os.ReadFile(path)
		exitOn(err)
		res = ocr.ScanText(string(data))
	default:
		img, err := imaging.Open(path, imaging.AutoOrientation(true))
		exitOn(err)
		var ps []ocr.Profile
		for _, name := range strings.Split(*profiles, ",") {
			if p, ok := ocr.ParseProfile(strings.TrimSpace(name)); ok {
				ps = append(ps, p)
			}
		}
		scanner := ocr.NewScanner(ocr.NewTesseractEngine(*lang), ocr.WithProfiles(ps...))
		res, err = scanner.Scan(ctx, img, ocr.ScanOptions{
			OnPass: func(p ocr.Profile) { fmt.Fprintf(os.Stderr, "pass %s\n", p) },
		})
		exitOn(err)
	}

	out := map[string]any{
		"amount":     res.Data.Amount,
		"confidence": res.Data.Confidence,
		"allAmounts": res.Data.AllAmounts,
		"ranked":     res.Ranked,
		"profile":    res.Profile,
		"passes":     len(res.Passes),
		"message":    nil,
	}
	if res.Message != "" {
		out["message"] = res.Message
	}
	if *showText {
		out["text"] = res.Data.RawText
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	exitOn(enc.Encode(out))
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
