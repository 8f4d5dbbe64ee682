package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	_ "golang.org/x/image/webp"

	"tipscan/pkg/ocr"
)

// Writes the image each preprocessing profile hands to tesseract, for
// eyeballing why a receipt reads badly.
func main() {
	fs := ff.NewFlagSet("preproc")
	out := fs.StringLong("out", os.TempDir(), "directory for the processed images")
	if err := ff.Parse(fs, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(fs.GetArgs()) != 1 {
		fmt.Fprintln(os.Stderr, "usage: preproc [--out dir] <receipt image>")
		os.Exit(2)
	}
	in := fs.GetArgs()[0]
	img, err := imaging.Open(in, imaging.AutoOrientation(true))
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		log.Fatalf("mkdir: %v", err)
	}
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	for _, p := range ocr.DefaultProfiles {
		dst := filepath.Join(*out, fmt.Sprintf("%s.%s.png", base, p))
		proc := ocr.Preprocess(img, p)
		if err := imaging.Save(proc, dst); err != nil {
			log.Fatalf("save %s: %v", dst, err)
		}
		fmt.Printf("%-14s %dx%d %s\n", p, proc.Bounds().Dx(), proc.Bounds().Dy(), dst)
	}
}
