// Package rescore re-runs amount extraction over stored OCR text, e.g. after
// the extraction rules changed.
package rescore

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tipscan/models"
	"tipscan/pkg/ocr"
)

type Options struct {
	DryRun        bool
	MinConfidence float64
	UserID        uint // 0 means every user
	BatchSize     int
}

// Change is one proposed or applied update.
type Change struct {
	ScanID        uint
	FileName      string
	OldAmount     decimal.Decimal
	NewAmount     decimal.Decimal
	OldConfidence float64
	NewConfidence float64
}

// Plan computes the new extraction for s. ok is false when nothing would
// change, the new extraction rejects every candidate, or it is below minConf.
// The stored text is scored the same way a fresh scan would score it.
func Plan(s models.Scan, minConf float64) (models.Scan, Change, bool) {
	res := ocr.ScanText(s.RawText)
	if res.Data.Amount <= 0 || res.Data.Confidence < minConf {
		return s, Change{}, false
	}
	updated := s
	updated.ApplyExtraction(res.Data, res.Ranked)
	if updated.Amount.Equal(s.Amount) && updated.Confidence == s.Confidence {
		return s, Change{}, false
	}
	return updated, Change{
		ScanID:        s.ID,
		FileName:      s.FileName,
		OldAmount:     s.Amount,
		NewAmount:     updated.Amount,
		OldConfidence: s.Confidence,
		NewConfidence: updated.Confidence,
	}, true
}

// Run rescoring every scan with raw text and no manual override. Changes are
// printed to out; in dry-run mode nothing is written.
func Run(ctx context.Context, db *gorm.DB, opts Options, out io.Writer, log zerolog.Logger) ([]Change, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 200
	}
	q := db.WithContext(ctx).Model(&models.Scan{}).Where("manual_amount IS NULL AND raw_text <> ''")
	if opts.UserID != 0 {
		q = q.Where("user_id = ?", opts.UserID)
	}

	var changes []Change
	var scans []models.Scan
	err := q.FindInBatches(&scans, opts.BatchSize, func(tx *gorm.DB, _ int) error {
		for _, s := range scans {
			updated, ch, ok := Plan(s, opts.MinConfidence)
			if !ok {
				continue
			}
			changes = append(changes, ch)
			if opts.DryRun {
				fmt.Fprintf(out, "DRY: would update scan id=%d file=%s old_amount=%s new_amount=%s conf=%.2f\n",
					ch.ScanID, ch.FileName, ch.OldAmount.StringFixed(2), ch.NewAmount.StringFixed(2), ch.NewConfidence)
				continue
			}
			err := db.WithContext(ctx).Model(&models.Scan{ID: s.ID}).
				Where("manual_amount IS NULL").
				Select("amount", "confidence", "candidates", "ranked", "message").
				Updates(&updated).Error
			if err != nil {
				log.Error().Err(err).Uint("scan_id", s.ID).Msg("failed update scan")
				continue
			}
			fmt.Fprintf(out, "updated scan id=%d file=%s amount=%s\n", ch.ScanID, ch.FileName, ch.NewAmount.StringFixed(2))
		}
		return ctx.Err()
	}).Error
	if err != nil {
		return changes, fmt.Errorf("rescoring: %w", err)
	}
	log.Info().Int("changed", len(changes)).Bool("dry_run", opts.DryRun).Msg("rescore finished")
	return changes, nil
}
