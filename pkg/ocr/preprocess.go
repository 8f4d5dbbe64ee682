package ocr

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Profile names a preprocessing recipe applied before recognition.
type Profile string

const (
	ProfileNormal       Profile = "normal"
	ProfileHighContrast Profile = "high-contrast"
	ProfileLowContrast  Profile = "low-contrast"
)

// DefaultProfiles is the pass order used when none is configured.
var DefaultProfiles = []Profile{ProfileNormal, ProfileHighContrast, ProfileLowContrast}

const (
	minOCRHeight    = 900
	targetOCRHeight = 1300
	maxOCRHeight    = 2600
)

// ParseProfile maps a config string to a Profile.
func ParseProfile(s string) (Profile, bool) {
	switch p := Profile(s); p {
	case ProfileNormal, ProfileHighContrast, ProfileLowContrast:
		return p, true
	}
	return "", false
}

// Preprocess returns a copy of img prepared for recognition under p.
//
//	normal:        grayscale, mild contrast, sharpen
//	high-contrast: strong contrast, adaptive threshold, 1px dilation (dark or noisy photos)
//	low-contrast:  gamma darken, light blur, high global threshold (faded thermal print)
func Preprocess(img image.Image, p Profile) image.Image {
	gray := imaging.Grayscale(img)
	gray = fitHeight(gray)
	switch p {
	case ProfileHighContrast:
		gray = imaging.AdjustContrast(gray, 40)
		gray = imaging.Sharpen(gray, 1)
		return dilate(adaptiveThreshold(gray, 15, 7), 1)
	case ProfileLowContrast:
		gray = imaging.AdjustGamma(gray, 0.6)
		gray = imaging.Blur(gray, 0.5)
		return binarize(gray, 200)
	default:
		gray = imaging.AdjustContrast(gray, 15)
		return imaging.Sharpen(gray, 0.7)
	}
}

// fitHeight upscales small photos and caps very large ones.
func fitHeight(img *image.NRGBA) *image.NRGBA {
	switch h := img.Bounds().Dy(); {
	case h < minOCRHeight:
		return imaging.Resize(img, 0, targetOCRHeight, imaging.Lanczos)
	case h > maxOCRHeight:
		return imaging.Resize(img, 0, maxOCRHeight, imaging.Lanczos)
	}
	return img
}

// binarize performs a simple global threshold on a grayscale image.
func binarize(img image.Image, threshold uint8) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var v uint8 = 255
			if luma(img, x, y) <= int(threshold) {
				v = 0
			}
			out.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return out
}

// adaptiveThreshold marks a pixel black when it is darker than the mean of
// its window minus bias. Window sums come from an integral image.
func adaptiveThreshold(img image.Image, window int, bias int) *image.NRGBA {
	if window < 3 {
		window = 3
	}
	if window%2 == 0 {
		window++
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := imaging.New(w, h, color.NRGBA{255, 255, 255, 255})
	half := window / 2

	px := make([]int, w*h)
	ints := make([]int, w*h)
	for y := 0; y < h; y++ {
		rowSum := 0
		for x := 0; x < w; x++ {
			v := luma(img, b.Min.X+x, b.Min.Y+y)
			px[y*w+x] = v
			rowSum += v
			if y == 0 {
				ints[y*w+x] = rowSum
			} else {
				ints[y*w+x] = ints[(y-1)*w+x] + rowSum
			}
		}
	}
	at := func(x, y int) int {
		if x < 0 || y < 0 {
			return 0
		}
		return ints[y*w+x]
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			x0, y0 := max(x-half, 0), max(y-half, 0)
			x1, y1 := min(x+half, w-1), min(y+half, h-1)
			sum := at(x1, y1) - at(x0-1, y1) - at(x1, y0-1) + at(x0-1, y0-1)
			mean := sum / ((x1 - x0 + 1) * (y1 - y0 + 1))
			if px[y*w+x] < max(mean-bias, 0) {
				out.Set(x, y, color.NRGBA{0, 0, 0, 255})
			}
		}
	}
	return out
}

// dilate grows black pixels into their 4-neighbourhood radius times.
func dilate(img *image.NRGBA, radius int) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	cur := img
	for r := 0; r < radius; r++ {
		next := imaging.New(w, h, color.NRGBA{255, 255, 255, 255})
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				for _, d := range [][2]int{{0, 0}, {1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
					x2, y2 := x+d[0], y+d[1]
					if x2 < 0 || y2 < 0 || x2 >= w || y2 >= h {
						continue
					}
					if cur.NRGBAAt(x2, y2).R == 0 {
						next.Set(x, y, color.NRGBA{0, 0, 0, 255})
						break
					}
				}
			}
		}
		cur = next
	}
	return cur
}

func luma(img image.Image, x, y int) int {
	r, g, b, _ := img.At(x, y).RGBA()
	return int((r + g + b) / 3 >> 8)
}
