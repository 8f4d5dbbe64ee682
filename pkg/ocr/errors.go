package ocr

import "errors"

var (
	// ErrNoAmount is returned when no plausible monetary amount can be extracted.
	ErrNoAmount = errors.New("no amount detected")
	// ErrCancelled is returned when a scan is abandoned between passes.
	ErrCancelled = errors.New("scan cancelled")
	// ErrRecognition wraps OCR engine failures once every pass has failed.
	ErrRecognition = errors.New("couldn't process the receipt image")
)
