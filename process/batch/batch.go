// Package batch scans a directory of receipt images and OCR text dumps into
// stored scans.
package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp"

	"tipscan/models"
	"tipscan/pkg/ocr"
)

// Recognizer is satisfied by *ocr.Scanner.
type Recognizer interface {
	Scan(ctx context.Context, img image.Image, opts ocr.ScanOptions) (ocr.Result, error)
}

type Options struct {
	Dir          string
	ProcessedDir string // empty leaves files in place
	Workers      int    // <= 0 means NumCPU
	MaxBytes     int64  // downsize threshold for moved images
	// MinConfidence drops results below it instead of storing them.
	MinConfidence float64
}

// Outcome is what happened to one file.
type Outcome string

const (
	OutcomeStored   Outcome = "stored"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeNoAmount Outcome = "no_amount"
	OutcomeFailed   Outcome = "failed"
)

// Stats counts outcomes of a run.
type Stats struct {
	mu     sync.Mutex
	counts map[Outcome]int
}

func (s *Stats) add(o Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts == nil {
		s.counts = make(map[Outcome]int)
	}
	s.counts[o]++
}

func (s *Stats) Count(o Outcome) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[o]
}

type Processor struct {
	opts    Options
	scanner Recognizer
	ledger  *Ledger // nil disables dedup
	sink    Sink
	log     zerolog.Logger
	Stats   Stats
}

func NewProcessor(opts Options, scanner Recognizer, ledger *Ledger, sink Sink, log zerolog.Logger) *Processor {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.MaxBytes == 0 {
		opts.MaxBytes = DefaultMaxProcessedBytes
	}
	return &Processor{opts: opts, scanner: scanner, ledger: ledger, sink: sink, log: log}
}

// RunOnce processes every supported file currently in the directory.
func (p *Processor) RunOnce(ctx context.Context) error {
	files, err := ListFiles(p.opts.Dir)
	if err != nil {
		return fmt.Errorf("listing %s: %w", p.opts.Dir, err)
	}
	p.log.Info().Int("files", len(files)).Int("workers", p.opts.Workers).Str("dir", p.opts.Dir).Msg("scanning")
	ch := make(chan string)
	go func() {
		defer close(ch)
		for _, f := range files {
			select {
			case ch <- f:
			case <-ctx.Done():
				return
			}
		}
	}()
	p.runWorkers(ctx, ch)
	return ctx.Err()
}

// Watch processes files as they appear until ctx is done. Create and write
// events are debounced so a file is picked up once it stops changing.
func (p *Processor) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(p.opts.Dir); err != nil {
		return err
	}
	p.log.Info().Str("dir", p.opts.Dir).Msg("watching")

	ch := make(chan string, 256)
	go func() {
		defer close(ch)
		pending := map[string]time.Time{}
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				name := filepath.Base(ev.Name)
				if IsSupported(name) {
					pending[name] = time.Now()
				}
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) > 300*time.Millisecond {
						delete(pending, name)
						select {
						case ch <- name:
						case <-ctx.Done():
							return
						}
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				p.log.Warn().Err(err).Msg("watch error")
			}
		}
	}()
	p.runWorkers(ctx, ch)
	return nil
}

func (p *Processor) runWorkers(ctx context.Context, ch <-chan string) {
	var wg sync.WaitGroup
	for i := 0; i < p.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range ch {
				if ctx.Err() != nil {
					continue
				}
				o, err := p.ProcessFile(ctx, name)
				if err != nil {
					p.log.Error().Err(err).Str("file", name).Msg("processing failed")
				}
				p.Stats.add(o)
			}
		}()
	}
	wg.Wait()
}

// ProcessFile scans one file from the directory. Files whose content is
// already in the ledger are skipped.
func (p *Processor) ProcessFile(ctx context.Context, name string) (Outcome, error) {
	path := filepath.Join(p.opts.Dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) { // moved by another worker or the user
			return OutcomeSkipped, nil
		}
		return OutcomeFailed, err
	}
	hash := contentHash(data)
	if p.ledger != nil {
		if e, seen, err := p.ledger.Lookup(hash); err != nil {
			return OutcomeFailed, err
		} else if seen {
			p.log.Debug().Str("file", name).Str("first_seen_as", e.File).Msg("already processed")
			return OutcomeSkipped, nil
		}
	}

	res, err := p.extract(ctx, name, data)
	if err != nil {
		return OutcomeFailed, err
	}
	if res.Data.Amount <= 0 || res.Data.Confidence < p.opts.MinConfidence {
		p.log.Info().Str("file", name).Float64("confidence", res.Data.Confidence).Str("message", res.Message).Msg("no amount")
		return OutcomeNoAmount, nil
	}

	scan := models.Scan{
		Source:      models.SourceBatch,
		FileName:    name,
		ContentHash: hash,
		Profile:     string(res.Profile),
		Passes:      len(res.Passes),
	}
	scan.ApplyExtraction(res.Data, res.Ranked)
	if err := p.sink.Save(ctx, &scan); err != nil {
		return OutcomeFailed, err
	}
	p.log.Info().Str("file", name).Str("amount", scan.Amount.StringFixed(2)).Float64("confidence", scan.Confidence).Msg("stored")

	if p.ledger != nil {
		entry := Entry{File: name, ScanID: scan.ID, Amount: scan.Amount.StringFixed(2), At: time.Now()}
		if err := p.ledger.Record(hash, entry); err != nil {
			return OutcomeStored, err
		}
	}
	if p.opts.ProcessedDir != "" {
		if err := moveToProcessed(path, p.opts.ProcessedDir, p.opts.MaxBytes); err != nil {
			p.log.Warn().Err(err).Str("file", name).Msg("failed to move processed file")
		}
	}
	return OutcomeStored, nil
}

func (p *Processor) extract(ctx context.Context, name string, data []byte) (ocr.Result, error) {
	if isTextDump(name) {
		return ocr.ScanText(string(data)), nil
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return ocr.Result{}, fmt.Errorf("decoding %s (%s): %w", name, mimeFromExt(name), err)
	}
	return p.scanner.Scan(ctx, img, ocr.ScanOptions{})
}
