package batch

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	"tipscan/models"
	"tipscan/pkg/ocr"
)

type memSink struct {
	mu    sync.Mutex
	scans []models.Scan
	err   error
}

func (m *memSink) Save(_ context.Context, s *models.Scan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	s.ID = uint(len(m.scans) + 1)
	m.scans = append(m.scans, *s)
	return nil
}

type textRecognizer struct {
	text  string
	err   error
	calls int
	mu    sync.Mutex
}

func (r *textRecognizer) Scan(_ context.Context, _ image.Image, _ ocr.ScanOptions) (ocr.Result, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.err != nil {
		return ocr.Result{}, r.err
	}
	res := ocr.ScanText(r.text)
	res.Profile = ocr.ProfileNormal
	return res, nil
}

const receipt = "SUBTOTAL 45.00\nTAX 4.50\nTIP 2.00\nTOTAL 51.50\nCASH 60.00\nCHANGE 8.50"

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writePNG(t *testing.T, dir, name string) {
	t.Helper()
	img := imaging.New(20, 10, color.NRGBA{255, 255, 255, 255})
	if err := imaging.Save(img, filepath.Join(dir, name)); err != nil {
		t.Fatal(err)
	}
}

func newTestProcessor(t *testing.T, opts Options, rec Recognizer, sink Sink) (*Processor, *Ledger) {
	t.Helper()
	ledger, err := OpenLedger(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ledger.Close() })
	return NewProcessor(opts, rec, ledger, sink, zerolog.Nop()), ledger
}

func TestRunOnceStoresTextAndImages(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()
	processed := filepath.Join(t.TempDir(), "processed")
	writeFile(t, dir, "a.txt", receipt)
	writePNG(t, dir, "b.png")
	writeFile(t, dir, "notes.md", "ignored")

	sink := &memSink{}
	rec := &textRecognizer{text: "TOTAL 12.34"}
	p, ledger := newTestProcessor(t, Options{Dir: dir, ProcessedDir: processed, Workers: 2}, rec, sink)

	g.Expect(p.RunOnce(context.Background())).To(Succeed())
	g.Expect(sink.scans).To(HaveLen(2))
	g.Expect(rec.calls).To(Equal(1))
	g.Expect(p.Stats.Count(OutcomeStored)).To(Equal(2))

	amounts := map[string]string{}
	for _, s := range sink.scans {
		g.Expect(s.Source).To(Equal(models.SourceBatch))
		g.Expect(s.ContentHash).To(HaveLen(64))
		amounts[s.FileName] = s.Amount.StringFixed(2)
	}
	g.Expect(amounts).To(Equal(map[string]string{"a.txt": "51.50", "b.png": "12.34"}))

	g.Expect(filepath.Join(processed, "a.txt")).To(BeAnExistingFile())
	g.Expect(filepath.Join(processed, "b.png")).To(BeAnExistingFile())
	g.Expect(filepath.Join(dir, "a.txt")).NotTo(BeAnExistingFile())
	g.Expect(filepath.Join(dir, "notes.md")).To(BeAnExistingFile())

	n, err := ledger.Len()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(n).To(Equal(2))
}

func TestProcessFileSkipsKnownContent(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", receipt)
	writeFile(t, dir, "copy-of-a.txt", receipt)

	sink := &memSink{}
	p, _ := newTestProcessor(t, Options{Dir: dir, Workers: 1}, &textRecognizer{}, sink)

	o, err := p.ProcessFile(context.Background(), "a.txt")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(o).To(Equal(OutcomeStored))

	o, err = p.ProcessFile(context.Background(), "copy-of-a.txt")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(o).To(Equal(OutcomeSkipped))
	g.Expect(sink.scans).To(HaveLen(1))
}

func TestProcessFileOutcomes(t *testing.T) {
	boom := errors.New("tesseract missing")
	cases := []struct {
		name    string
		file    string
		content string
		rec     *textRecognizer
		sinkErr error
		minConf float64
		want    Outcome
		wantErr bool
	}{
		{"no amount in text", "x.txt", "CASH 40.00\nCHANGE 12.50", &textRecognizer{}, nil, 0, OutcomeNoAmount, false},
		{"below min confidence", "x.txt", "TOTAL 25.00", &textRecognizer{}, nil, 0.9, OutcomeNoAmount, false},
		{"ocr failure", "x.png", "", &textRecognizer{err: boom}, nil, 0, OutcomeFailed, true},
		{"sink failure", "x.txt", receipt, &textRecognizer{}, errors.New("db down"), 0, OutcomeFailed, true},
		{"missing file", "gone.txt", "", &textRecognizer{}, nil, 0, OutcomeSkipped, false},
		{"undecodable image", "bad.jpg", "not a jpeg", &textRecognizer{}, nil, 0, OutcomeFailed, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewWithT(t)
			dir := t.TempDir()
			switch {
			case tc.file == "x.png":
				writePNG(t, dir, tc.file)
			case tc.file != "gone.txt":
				writeFile(t, dir, tc.file, tc.content)
			}
			sink := &memSink{err: tc.sinkErr}
			p, _ := newTestProcessor(t, Options{Dir: dir, MinConfidence: tc.minConf}, tc.rec, sink)

			o, err := p.ProcessFile(context.Background(), tc.file)
			g.Expect(o).To(Equal(tc.want))
			if tc.wantErr {
				g.Expect(err).To(HaveOccurred())
			} else {
				g.Expect(err).NotTo(HaveOccurred())
			}
		})
	}
}

func TestDryRunPrintsWithoutLedger(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", receipt)

	var out lockedBuffer
	p := NewProcessor(Options{Dir: dir, Workers: 1}, &textRecognizer{}, nil, &PrintSink{W: &out}, zerolog.Nop())
	g.Expect(p.RunOnce(context.Background())).To(Succeed())
	g.Expect(p.RunOnce(context.Background())).To(Succeed())

	g.Expect(out.String()).To(ContainSubstring("DRY: file=a.txt amount=51.50"))
	g.Expect(p.Stats.Count(OutcomeStored)).To(Equal(2))
	g.Expect(filepath.Join(dir, "a.txt")).To(BeAnExistingFile())
}

func TestRunOnceStopsWhenCancelled(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", receipt)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &memSink{}
	p, _ := newTestProcessor(t, Options{Dir: dir, Workers: 1}, &textRecognizer{}, sink)
	g.Expect(p.RunOnce(ctx)).To(MatchError(context.Canceled))
	g.Expect(sink.scans).To(BeEmpty())
}
