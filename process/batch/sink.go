package batch

import (
	"context"
	"fmt"
	"io"
	"sync"

	"gorm.io/gorm"

	"tipscan/models"
	"tipscan/pkg/amount"
)

// Sink receives finished scans.
type Sink interface {
	Save(ctx context.Context, s *models.Scan) error
}

// GormSink stores scans for one user.
type GormSink struct {
	DB     *gorm.DB
	UserID uint
}

func (g GormSink) Save(ctx context.Context, s *models.Scan) error {
	s.UserID = g.UserID
	if err := g.DB.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("saving scan %s: %w", s.FileName, err)
	}
	return nil
}

// PrintSink writes one line per scan and stores nothing; used for dry runs.
type PrintSink struct {
	mu sync.Mutex
	W  io.Writer
}

func (p *PrintSink) Save(_ context.Context, s *models.Scan) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, _ := s.Amount.Float64()
	_, err := fmt.Fprintf(p.W, "DRY: file=%s amount=%s confidence=%.2f candidates=%d profile=%s\n",
		s.FileName, amount.FormatValue(v), s.Confidence, len(s.Candidates), s.Profile)
	return err
}
