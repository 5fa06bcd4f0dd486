package jobs

import (
	"context"
	"fmt"
	"time"

	"linkrental/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ExpirySweepService persists derived expiry and reports requests waiting too long for a
// decision. Reads never depend on it having run.
type ExpirySweepService struct {
	rentalRepo repositories.RentalRepository
	clock      clockwork.Clock
	logger     *zap.Logger
}

// StalePending is a request that has waited longer than the configured threshold.
type StalePending struct {
	ID           uuid.UUID
	Slug         string
	BusinessName string
	Waiting      time.Duration
}

func NewExpirySweepService(rentalRepo repositories.RentalRepository, clock clockwork.Clock, logger *zap.Logger) *ExpirySweepService {
	return &ExpirySweepService{
		rentalRepo: rentalRepo,
		clock:      clock,
		logger:     logger,
	}
}

// SweepExpired moves every active rental whose expiration has passed to expired.
func (s *ExpirySweepService) SweepExpired(ctx context.Context) (int64, error) {
	now := s.clock.Now().UTC()
	n, err := s.rentalRepo.MarkExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("sweep expired rentals: %w", err)
	}
	if n > 0 {
		s.logger.Info("Marked rentals expired", zap.Int64("count", n), zap.Time("as_of", now))
	} else {
		s.logger.Debug("No rentals to expire", zap.Time("as_of", now))
	}
	return n, nil
}

// ReportStalePending logs and returns pending requests older than olderThan, oldest first.
func (s *ExpirySweepService) ReportStalePending(ctx context.Context, olderThan time.Duration) ([]StalePending, error) {
	now := s.clock.Now().UTC()
	rentals, err := s.rentalRepo.ListStalePending(ctx, now.Add(-olderThan))
	if err != nil {
		return nil, fmt.Errorf("list stale pending rentals: %w", err)
	}

	stale := make([]StalePending, 0, len(rentals))
	for _, r := range rentals {
		stale = append(stale, StalePending{
			ID:           r.ID,
			Slug:         r.Slug,
			BusinessName: r.BusinessName,
			Waiting:      now.Sub(r.RequestDate),
		})
	}

	if len(stale) > 0 {
		s.logger.Warn("Rental requests awaiting a decision",
			zap.Int("count", len(stale)),
			zap.Duration("threshold", olderThan),
			zap.String("oldest_slug", stale[0].Slug),
			zap.Duration("oldest_waiting", stale[0].Waiting))
	}
	return stale, nil
}
