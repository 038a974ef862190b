package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kaistullich/Image-Converter/internal/config"
	"github.com/kaistullich/Image-Converter/internal/domain"
	"github.com/kaistullich/Image-Converter/internal/metrics"
	"github.com/kaistullich/Image-Converter/internal/repository"
)

// ExpiryPolicy decides whether an image last modified at modTime is stale
// at now.
type ExpiryPolicy func(now, modTime time.Time) bool

// CalendarDayPolicy expires images whose modification date, in now's
// location, is before today's date.
func CalendarDayPolicy(now, modTime time.Time) bool {
	y1, m1, d1 := modTime.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC).Before(time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC))
}

// DayOfMonthPolicy compares only the day of month. A file from the 30th is
// kept on the 1st of the following month.
func DayOfMonthPolicy(now, modTime time.Time) bool {
	return now.Day() > modTime.In(now.Location()).Day()
}

func PolicyFor(mode string) (ExpiryPolicy, error) {
	switch mode {
	case config.RetentionCalendar:
		return CalendarDayPolicy, nil
	case config.RetentionDayOfMonth:
		return DayOfMonthPolicy, nil
	default:
		return nil, fmt.Errorf("unknown retention mode %q", mode)
	}
}

type RetentionService interface {
	Sweep(ctx context.Context, now time.Time) (*domain.SweepReport, error)
}

type retentionService struct {
	repo    repository.ImageRepository
	expired ExpiryPolicy
	metrics *metrics.Collector
	log     *zap.Logger
}

func NewRetentionService(repo repository.ImageRepository, policy ExpiryPolicy, m *metrics.Collector, log *zap.Logger) RetentionService {
	return &retentionService{
		repo:    repo,
		expired: policy,
		metrics: m,
		log:     log,
	}
}

// Sweep removes every stale image. A failed removal is logged and recorded
// in the report; only listing the directory can abort the sweep.
func (s *retentionService) Sweep(ctx context.Context, now time.Time) (*domain.SweepReport, error) {
	images, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	report := &domain.SweepReport{
		Scanned: len(images),
		Failed:  make(map[string]error),
	}
	defer func() {
		s.metrics.RecordSweep(len(report.Removed), len(report.Failed))
	}()

	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if !s.expired(now, img.ModTime) {
			report.Retained = append(report.Retained, img.Name)
			continue
		}

		if err := s.repo.Remove(ctx, img.Name); err != nil {
			s.log.Error("Failed to remove expired image",
				zap.String("name", img.Name),
				zap.Time("mod_time", img.ModTime),
				zap.Error(err))
			report.Failed[img.Name] = err
			continue
		}
		report.Removed = append(report.Removed, img.Name)
	}

	s.log.Info("Retention sweep complete",
		zap.String("dir", s.repo.Dir()),
		zap.Int("scanned", report.Scanned),
		zap.Int("removed", len(report.Removed)),
		zap.Int("failed", len(report.Failed)))

	return report, nil
}
