package models

import (
	"time"

	"github.com/shopspring/decimal"

	"tipscan/pkg/amount"
)

// Scan sources.
const (
	SourceImage = "image"
	SourceText  = "text"
	SourceBatch = "batch"
)

// Scan is one extraction run over a receipt. Amount is what the extractor
// chose (zero when it rejected every candidate); ManualAmount is the user's
// correction and is never overwritten by a rescore.
type Scan struct {
	ID           uint `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	UserID       uint                     `gorm:"index;not null"`
	User         User                     `gorm:"foreignKey:UserID" json:"-"`
	Source       string                   `gorm:"size:16;not null"`
	FileName     string                   `gorm:"size:255"`
	ContentHash  string                   `gorm:"size:64;index"`
	ImageRef     string                   `gorm:"size:512"`
	Amount       decimal.Decimal          `gorm:"type:numeric(12,2);not null;default:0"`
	Confidence   float64                  `gorm:"not null;default:0"`
	ManualAmount *decimal.Decimal         `gorm:"type:numeric(12,2)"`
	Candidates   []amount.ExtractedAmount `gorm:"serializer:json"`
	Ranked       []amount.ScoredAmount    `gorm:"serializer:json"`
	Profile      string                   `gorm:"size:32"`
	Passes       int
	Message      string `gorm:"size:255"`
	RawText      string `gorm:"type:text"`
}

// EffectiveAmount is the manual correction if there is one, else the
// extracted amount.
func (s Scan) EffectiveAmount() decimal.Decimal {
	if s.ManualAmount != nil {
		return *s.ManualAmount
	}
	return s.Amount
}

// ApplyExtraction copies an extraction result onto the scan.
func (s *Scan) ApplyExtraction(d amount.ExtractedData, ranked []amount.ScoredAmount) {
	s.Amount = decimal.NewFromFloat(d.Amount).Round(2)
	s.Confidence = d.Confidence
	s.Candidates = d.AllAmounts
	s.Ranked = ranked
	s.RawText = d.RawText
	if msg, ok := amount.NoAmountErrorMessage(d); ok {
		s.Message = msg
	} else {
		s.Message = ""
	}
}
