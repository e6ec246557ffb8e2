// Package points records points grants. Every grant carries an
// idempotency key; replaying a grant never adds points twice.
package points

import (
	"fmt"
	"time"

	"github.com/ssaritan18/Project-1-sub000/internal/domain"
	"github.com/ssaritan18/Project-1-sub000/internal/infra/metrics"
)

// Service manages the points economy of each user.
type Service struct {
	store domain.PointsStore
	now   func() time.Time
}

// NewService creates a points service.
func NewService(store domain.PointsStore) *Service {
	return &Service{store: store, now: time.Now}
}

// Grant records amount points for userID under key.
// Returns false if the key was already granted (nothing recorded).
// A zero amount records nothing.
func (s *Service) Grant(userID, key string, amount int64, source domain.PointsSource, reason string) (bool, error) {
	if amount < 0 {
		return false, domain.Invalid("grant amount must be non-negative, got %d", amount)
	}
	if key == "" {
		return false, domain.Invalid("grant needs an idempotency key")
	}
	if amount == 0 {
		return false, nil
	}

	inserted, err := s.store.InsertPoints(domain.PointsEntry{
		UserID:         userID,
		IdempotencyKey: key,
		Amount:         amount,
		Source:         source,
		Reason:         reason,
		CreatedAt:      s.now(),
	})
	if err != nil {
		return false, fmt.Errorf("insert points: %w", err)
	}
	if inserted {
		metrics.PointsGranted.WithLabelValues(string(source)).Add(float64(amount))
	}
	return inserted, nil
}

// Adjust records a signed correction under key. Unlike Grant it accepts a
// negative delta. Returns false if the key was already recorded.
func (s *Service) Adjust(userID, key string, delta int64, reason string) (bool, error) {
	if key == "" {
		return false, domain.Invalid("adjustment needs an idempotency key")
	}
	if delta == 0 {
		return false, nil
	}
	inserted, err := s.store.InsertPoints(domain.PointsEntry{
		UserID:         userID,
		IdempotencyKey: key,
		Amount:         delta,
		Source:         domain.PointsCorrection,
		Reason:         reason,
		CreatedAt:      s.now(),
	})
	if err != nil {
		return false, fmt.Errorf("insert points: %w", err)
	}
	if inserted && delta > 0 {
		metrics.PointsGranted.WithLabelValues(string(domain.PointsCorrection)).Add(float64(delta))
	}
	return inserted, nil
}

// Balance returns the user's total points.
func (s *Service) Balance(userID string) (int64, error) {
	return s.store.PointsBalance(userID)
}

// History returns recent grants for the user, newest first.
func (s *Service) History(userID string, limit int) ([]domain.PointsEntry, error) {
	return s.store.PointsHistory(userID, limit)
}

// Reset deletes every grant of the user.
func (s *Service) Reset(userID string) error {
	return s.store.DeletePoints(userID)
}
