package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// Engine turns a preprocessed image into text. progress receives values in
// [0,1] while recognition runs and may be nil.
type Engine interface {
	Recognize(ctx context.Context, img image.Image, progress func(float64)) (string, error)
}

// TesseractEngine runs recognition through libtesseract. A new client is
// created per call so one engine can serve concurrent scans.
type TesseractEngine struct {
	Language    string
	Whitelist   string
	PageSegMode gosseract.PageSegMode
}

func NewTesseractEngine(language string) *TesseractEngine {
	if language == "" {
		language = "eng"
	}
	return &TesseractEngine{Language: language, PageSegMode: gosseract.PSM_AUTO}
}

// Recognize is not interruptible once tesseract starts; ctx is only checked
// before the call.
func (e *TesseractEngine) Recognize(ctx context.Context, img image.Image, progress func(float64)) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(e.Language); err != nil {
		return "", fmt.Errorf("set language %q: %w", e.Language, err)
	}
	if e.Whitelist != "" {
		if err := client.SetWhitelist(e.Whitelist); err != nil {
			return "", fmt.Errorf("set whitelist: %w", err)
		}
	}
	if err := client.SetPageSegMode(e.PageSegMode); err != nil {
		return "", fmt.Errorf("set page seg mode: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}

	report(progress, 0.05)
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	report(progress, 1)
	return text, nil
}

func report(progress func(float64), v float64) {
	if progress != nil {
		progress(v)
	}
}
