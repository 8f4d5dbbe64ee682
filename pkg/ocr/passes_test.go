package ocr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sort"

	"github.com/disintegration/imaging"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const (
	confidentReceipt = "SUBTOTAL 45.00\nTAX 4.50\nTIP 2.00\nTOTAL 51.50\nCASH 60.00\nCHANGE 8.50"
	paymentOnly      = "CASH 40.00\nCHANGE 12.50"
	lonelyTotal      = "TOTAL 25.00"
)

var _ = Describe("Scanner", func() {
	var (
		engine  *fakeEngine
		scanner *Scanner
		img     image.Image
		opts    ScanOptions
		ctx     context.Context
		result  Result
		err     error
	)

	BeforeEach(func() {
		engine = &fakeEngine{}
		scanner = NewScanner(engine)
		img = imaging.New(40, 20, color.NRGBA{255, 255, 255, 255})
		opts = ScanOptions{}
		ctx = context.Background()
	})

	JustBeforeEach(func() {
		result, err = scanner.Scan(ctx, img, opts)
	})

	When("the first pass is confident", func() {
		BeforeEach(func() {
			engine.texts = []string{confidentReceipt}
		})

		It("stops after one pass", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(engine.Calls()).To(Equal(1))
			Expect(result.Profile).To(Equal(ProfileNormal))
			Expect(result.Data.Amount).To(Equal(51.5))
			Expect(result.Message).To(BeEmpty())
		})

		It("stores the recognized text unchanged", func() {
			Expect(result.Data.RawText).To(Equal(confidentReceipt))
			Expect(result.Passes[0].Text).To(Equal(confidentReceipt))
		})

		It("hands the engine an upscaled image", func() {
			Expect(engine.sizes[0].Y).To(Equal(targetOCRHeight))
		})
	})

	When("the first pass finds no total", func() {
		BeforeEach(func() {
			engine.texts = []string{paymentOnly, confidentReceipt}
		})

		It("retries with the high-contrast profile", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(engine.Calls()).To(Equal(2))
			Expect(result.Profile).To(Equal(ProfileHighContrast))
			Expect(result.Passes).To(HaveLen(2))
			Expect(result.Data.Amount).To(Equal(51.5))
		})
	})

	When("a pass is accepted below the confidence bar", func() {
		BeforeEach(func() {
			engine.texts = []string{lonelyTotal, confidentReceipt}
		})

		It("keeps scanning and prefers the more confident pass", func() {
			Expect(engine.Calls()).To(Equal(2))
			Expect(result.Passes[0].Data.Amount).To(Equal(25.0))
			Expect(result.Data.Amount).To(Equal(51.5))
		})
	})

	When("no pass finds a total", func() {
		BeforeEach(func() {
			engine.texts = []string{"", paymentOnly, "THANK YOU"}
		})

		It("runs every profile and keeps the pass that read the most", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(engine.Calls()).To(Equal(3))
			Expect(result.Profile).To(Equal(ProfileHighContrast))
			Expect(result.Data.Amount).To(BeZero())
			Expect(result.Data.AllAmounts).To(HaveLen(2))
			Expect(result.Message).To(ContainSubstring("2 amounts"))
		})
	})

	When("an accepted pass sits between rejected ones", func() {
		BeforeEach(func() {
			engine.texts = []string{paymentOnly, lonelyTotal, paymentOnly}
		})

		It("prefers the pass with an amount", func() {
			Expect(result.Profile).To(Equal(ProfileHighContrast))
			Expect(result.Data.Amount).To(Equal(25.0))
		})
	})

	When("one pass fails", func() {
		BeforeEach(func() {
			engine.errs = []error{errors.New("tesseract crashed")}
			engine.texts = []string{"", confidentReceipt}
		})

		It("continues with the next profile", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Passes[0].Err).To(HaveOccurred())
			Expect(result.Data.Amount).To(Equal(51.5))
		})
	})

	When("every pass fails", func() {
		var boom = errors.New("no tessdata")

		BeforeEach(func() {
			engine.errs = []error{boom, boom, boom}
		})

		It("returns a recognition error", func() {
			Expect(err).To(MatchError(ErrRecognition))
			Expect(errors.Is(err, boom)).To(BeTrue())
			Expect(result.Passes).To(HaveLen(3))
		})
	})

	When("the scan is cancelled before it starts", func() {
		BeforeEach(func() {
			opts.Cancelled = func() bool { return true }
		})

		It("never calls the engine", func() {
			Expect(err).To(MatchError(ErrCancelled))
			Expect(engine.Calls()).To(BeZero())
		})
	})

	When("the scan is cancelled while the engine runs", func() {
		BeforeEach(func() {
			cancelled := false
			engine.texts = []string{paymentOnly, confidentReceipt}
			engine.onCall = func(int) { cancelled = true }
			opts.Cancelled = func() bool { return cancelled }
		})

		It("discards the pass and stops", func() {
			Expect(err).To(MatchError(ErrCancelled))
			Expect(engine.Calls()).To(Equal(1))
			Expect(result.Passes).To(BeEmpty())
		})
	})

	When("the context is cancelled", func() {
		BeforeEach(func() {
			c, cancel := context.WithCancel(context.Background())
			cancel()
			ctx = c
		})

		It("returns ErrCancelled", func() {
			Expect(err).To(MatchError(ErrCancelled))
		})
	})

	Describe("progress", func() {
		var reported []int
		var passes []Profile

		BeforeEach(func() {
			reported = nil
			passes = nil
			engine.texts = []string{paymentOnly, paymentOnly, confidentReceipt}
			opts.Progress = func(p int) { reported = append(reported, p) }
			opts.OnPass = func(p Profile) { passes = append(passes, p) }
		})

		It("never moves backwards across passes", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(reported).NotTo(BeEmpty())
			Expect(sort.IntsAreSorted(reported)).To(BeTrue())
			Expect(reported[len(reported)-1]).To(Equal(100))
		})

		It("announces every pass in order", func() {
			Expect(passes).To(Equal(DefaultProfiles))
		})
	})

	When("configured with a single profile", func() {
		BeforeEach(func() {
			scanner = NewScanner(engine, WithProfiles(ProfileLowContrast), WithAcceptConfidence(0.99))
			engine.texts = []string{paymentOnly}
		})

		It("runs only that profile", func() {
			Expect(engine.Calls()).To(Equal(1))
			Expect(result.Profile).To(Equal(ProfileLowContrast))
		})
	})
})

var _ = Describe("ScanText", func() {
	It("scores pasted text without an engine", func() {
		res := ScanText("  SUBTOTAL 45.00 \r\n\r\nTAX 4.50\nTIP 2.00\nTOTAL 51.50\nCASH 60.00\nCHANGE 8.50")
		Expect(res.Data.Amount).To(Equal(51.5))
		Expect(res.Ranked[0].Value).To(Equal(51.5))
		Expect(res.Passes).To(HaveLen(1))
	})

	It("keeps the text as given while scoring the tidied lines", func() {
		raw := "\tTOTAL   25.00\r\n\r\nTHANK YOU "
		res := ScanText(raw)
		Expect(res.Data.RawText).To(Equal(raw))
		Expect(res.Data.AllAmounts[0].LineIndex).To(Equal(0))
		Expect(res.Data.AllAmounts[0].Context).To(Equal("TOTAL 25.00"))
	})

	It("explains an empty result", func() {
		res := ScanText("")
		Expect(res.Data.Amount).To(BeZero())
		Expect(res.Message).To(ContainSubstring("Couldn't read"))

		_, err := res.Amount()
		Expect(err).To(MatchError(ErrNoAmount))
		Expect(err.Error()).To(ContainSubstring("Couldn't read"))
	})

	It("returns the chosen amount without error", func() {
		v, err := ScanText(lonelyTotal).Amount()
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(25.0))
	})
})
