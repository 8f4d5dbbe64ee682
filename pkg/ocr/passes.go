package ocr

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync"

	"tipscan/pkg/amount"
	"tipscan/pkg/logger"
)

// DefaultAcceptConfidence is the confidence at which no further pass is run.
const DefaultAcceptConfidence = 0.75

// Scanner runs OCR under successive preprocessing profiles and keeps the
// best extraction. Passes are sequential; a later pass only runs while the
// best result so far has no amount or a confidence below the accept level.
type Scanner struct {
	engine   Engine
	profiles []Profile
	accept   float64
}

type Option func(*Scanner)

func WithProfiles(p ...Profile) Option {
	return func(s *Scanner) {
		if len(p) > 0 {
			s.profiles = p
		}
	}
}

func WithAcceptConfidence(c float64) Option {
	return func(s *Scanner) {
		if c > 0 {
			s.accept = c
		}
	}
}

func NewScanner(engine Engine, opts ...Option) *Scanner {
	s := &Scanner{engine: engine, profiles: DefaultProfiles, accept: DefaultAcceptConfidence}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ScanOptions carries the caller hooks for one scan. All fields are optional.
type ScanOptions struct {
	// Progress receives integer percent; values never decrease.
	Progress func(percent int)
	// Cancelled is checked before each pass and right after each OCR call.
	Cancelled func() bool
	// OnPass is called when a pass starts.
	OnPass func(p Profile)
}

// PassResult is the outcome of one OCR pass.
type PassResult struct {
	Profile Profile
	Text    string
	Data    amount.ExtractedData
	Ranked  []amount.ScoredAmount
	Quality float64
	Err     error
}

// Result is the chosen extraction plus every pass that ran.
type Result struct {
	Data    amount.ExtractedData
	Ranked  []amount.ScoredAmount
	Profile Profile
	Passes  []PassResult
	Message string
}

// Amount returns the chosen amount, or ErrNoAmount with the diagnostic
// message when nothing was confident enough.
func (r Result) Amount() (float64, error) {
	if r.Data.Amount > 0 {
		return r.Data.Amount, nil
	}
	if r.Message == "" {
		return 0, ErrNoAmount
	}
	return 0, fmt.Errorf("%w: %s", ErrNoAmount, r.Message)
}

// Scan runs the pass pipeline over img. It returns ErrCancelled if the scan
// was cancelled, and an error wrapping ErrRecognition if every pass failed.
func (s *Scanner) Scan(ctx context.Context, img image.Image, opts ScanOptions) (Result, error) {
	log := logger.FromContext(ctx)
	progress := &monotonicProgress{fn: opts.Progress}
	var res Result
	var lastErr error
	best := -1
	for _, p := range s.profiles {
		if best >= 0 && s.accepted(res.Passes[best].Data) {
			break
		}
		if isCancelled(ctx, opts) {
			return Result{}, ErrCancelled
		}
		if opts.OnPass != nil {
			opts.OnPass(p)
		}
		text, err := s.engine.Recognize(ctx, Preprocess(img, p), progress.fraction)
		if isCancelled(ctx, opts) {
			return Result{}, ErrCancelled
		}
		if err != nil {
			log.Warn().Err(err).Str("profile", string(p)).Msg("ocr pass failed")
			res.Passes = append(res.Passes, PassResult{Profile: p, Err: err})
			lastErr = err
			continue
		}
		pr := evaluate(p, text)
		res.Passes = append(res.Passes, pr)
		if best < 0 || pr.Quality > res.Passes[best].Quality {
			best = len(res.Passes) - 1
		}
		log.Debug().
			Str("profile", string(p)).
			Float64("amount", pr.Data.Amount).
			Float64("confidence", pr.Data.Confidence).
			Int("candidates", len(pr.Data.AllAmounts)).
			Str("text", snippet(text, 120)).
			Msg("ocr pass")
	}
	if best < 0 {
		return Result{Passes: res.Passes}, fmt.Errorf("%w: %w", ErrRecognition, lastErr)
	}
	progress.report(100)

	chosen := res.Passes[best]
	res.Data, res.Ranked, res.Profile = chosen.Data, chosen.Ranked, chosen.Profile
	res.Message, _ = amount.NoAmountErrorMessage(res.Data)
	log.Info().
		Str("profile", string(res.Profile)).
		Int("passes", len(res.Passes)).
		Float64("amount", res.Data.Amount).
		Float64("confidence", res.Data.Confidence).
		Msg("scan finished")
	return res, nil
}

// ScanText scores text that did not come from this scanner, e.g. pasted
// receipt text or an OCR dump.
func ScanText(text string) Result {
	pr := evaluate("", text)
	msg, _ := amount.NoAmountErrorMessage(pr.Data)
	return Result{Data: pr.Data, Ranked: pr.Ranked, Passes: []PassResult{pr}, Message: msg}
}

func (s *Scanner) accepted(d amount.ExtractedData) bool {
	return d.Amount > 0 && d.Confidence >= s.accept
}

// evaluate scores the normalized text but keeps the recognized text as
// RawText, so stored scans carry what the engine actually read.
func evaluate(p Profile, text string) PassResult {
	data, ranked := amount.ExtractWithRanking(normalizeOCRText(text))
	data.RawText = text
	return PassResult{Profile: p, Text: text, Data: data, Ranked: ranked, Quality: quality(data)}
}

// quality ranks pass results against each other. Any accepted amount beats
// every rejection; among rejections more candidates means more was read.
func quality(d amount.ExtractedData) float64 {
	if d.Amount > 0 {
		return 1 + d.Confidence
	}
	return d.Confidence + 0.01*float64(min(len(d.AllAmounts), 10))
}

func isCancelled(ctx context.Context, opts ScanOptions) bool {
	if ctx.Err() != nil {
		return true
	}
	return opts.Cancelled != nil && opts.Cancelled()
}

// monotonicProgress forwards a value only if it is not below the last one
// forwarded, so a pass restarting from zero does not move progress back.
type monotonicProgress struct {
	mu   sync.Mutex
	last int
	fn   func(int)
}

func (m *monotonicProgress) fraction(f float64) {
	m.report(int(math.Round(f * 100)))
}

func (m *monotonicProgress) report(p int) {
	if m.fn == nil {
		return
	}
	p = max(0, min(100, p))
	m.mu.Lock()
	defer m.mu.Unlock()
	if p < m.last {
		return
	}
	m.last = p
	m.fn(p)
}
