package ocr

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// receiptLike draws dark bars on a light background.
func receiptLike(w, h int) *image.NRGBA {
	img := imaging.New(w, h, color.NRGBA{230, 225, 215, 255})
	for y := h / 4; y < h/4+h/10; y++ {
		for x := w / 8; x < w-w/8; x++ {
			img.SetNRGBA(x, y, color.NRGBA{40, 40, 50, 255})
		}
	}
	return img
}

var _ = Describe("Preprocess", func() {
	It("upscales small photos", func() {
		out := Preprocess(receiptLike(200, 100), ProfileNormal)
		Expect(out.Bounds().Dy()).To(Equal(targetOCRHeight))
		Expect(out.Bounds().Dx()).To(Equal(2600))
	})

	It("caps very tall photos", func() {
		out := Preprocess(receiptLike(100, 3000), ProfileNormal)
		Expect(out.Bounds().Dy()).To(Equal(maxOCRHeight))
	})

	It("leaves mid-sized photos alone", func() {
		out := Preprocess(receiptLike(600, 1200), ProfileNormal)
		Expect(out.Bounds().Size()).To(Equal(image.Pt(600, 1200)))
	})

	DescribeTable("binary profiles produce pure black and white",
		func(p Profile) {
			out := Preprocess(receiptLike(300, 950), p)
			b := out.Bounds()
			for y := b.Min.Y; y < b.Max.Y; y += 7 {
				for x := b.Min.X; x < b.Max.X; x += 7 {
					r, _, _, _ := out.At(x, y).RGBA()
					Expect(r == 0 || r == 0xffff).To(BeTrue(), "pixel %d,%d = %d", x, y, r)
				}
			}
		},
		Entry("high-contrast", ProfileHighContrast),
		Entry("low-contrast", ProfileLowContrast),
	)

	It("parses known profile names", func() {
		p, ok := ParseProfile("low-contrast")
		Expect(ok).To(BeTrue())
		Expect(p).To(Equal(ProfileLowContrast))
		_, ok = ParseProfile("sepia")
		Expect(ok).To(BeFalse())
	})
})
