package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"linkrental/internal/common"
	"linkrental/internal/lifecycle"
	"linkrental/internal/models"
	"linkrental/internal/repositories"

	"github.com/google/uuid"
)

// memoryRentalRepo mirrors the PostgreSQL rules the service relies on: slugs are unique among
// non-rejected rows and transitions are a compare-and-swap on status.
type memoryRentalRepo struct {
	mu      sync.Mutex
	rentals map[uuid.UUID]*models.RentalRequest
	creates int
}

var _ repositories.RentalRepository = (*memoryRentalRepo)(nil)

func newMemoryRentalRepo() *memoryRentalRepo {
	return &memoryRentalRepo{rentals: make(map[uuid.UUID]*models.RentalRequest)}
}

func (m *memoryRentalRepo) Create(_ context.Context, rental *models.RentalRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.creates++
	for _, existing := range m.rentals {
		if existing.Slug == rental.Slug && existing.Status != models.StatusRejected {
			return fmt.Errorf("create rental %q: %w", rental.Slug, common.ErrSlugTaken)
		}
	}
	rental.CreatedAt = rental.RequestDate
	rental.UpdatedAt = rental.RequestDate
	m.rentals[rental.ID] = rental.Clone()
	return nil
}

func (m *memoryRentalRepo) GetByID(_ context.Context, id uuid.UUID) (*models.RentalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rentals[id]
	if !ok {
		return nil, fmt.Errorf("rental %s: %w", id, common.ErrNotFound)
	}
	return r.Clone(), nil
}

func (m *memoryRentalRepo) GetBySlug(_ context.Context, slug string) (*models.RentalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best *models.RentalRequest
	for _, r := range m.rentals {
		if r.Slug != slug {
			continue
		}
		if best == nil || (best.Status == models.StatusRejected && r.Status != models.StatusRejected) {
			best = r
		}
	}
	if best == nil {
		return nil, fmt.Errorf("rental slug %q: %w", slug, common.ErrNotFound)
	}
	return best.Clone(), nil
}

func (m *memoryRentalRepo) ListByStatus(_ context.Context, statuses []models.RentalStatus) ([]*models.RentalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := make(map[models.RentalStatus]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	out := []*models.RentalRequest{}
	for _, r := range m.rentals {
		if len(want) == 0 || want[r.Status] {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestDate.After(out[j].RequestDate) })
	return out, nil
}

func (m *memoryRentalRepo) Transition(_ context.Context, id uuid.UUID, t lifecycle.Transition) (*models.RentalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rentals[id]
	if !ok || r.Status != t.From {
		return nil, fmt.Errorf("rental %s no longer %s: %w", id, t.From, common.ErrStaleState)
	}
	lifecycle.Apply(r, t)
	return r.Clone(), nil
}

func (m *memoryRentalRepo) MarkExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, r := range m.rentals {
		if r.Status == models.StatusActive && r.ExpirationDate != nil && !r.ExpirationDate.After(now) {
			r.Status = models.StatusExpired
			n++
		}
	}
	return n, nil
}

func (m *memoryRentalRepo) CountByEffectiveStatus(_ context.Context, now time.Time) (map[models.RentalStatus]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[models.RentalStatus]int64)
	for _, s := range models.AllStatuses {
		counts[s] = 0
	}
	for _, r := range m.rentals {
		counts[lifecycle.EffectiveStatus(r, now)]++
	}
	return counts, nil
}

func (m *memoryRentalRepo) ListStalePending(_ context.Context, requestedBefore time.Time) ([]*models.RentalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*models.RentalRequest{}
	for _, r := range m.rentals {
		if r.Status == models.StatusPending && r.RequestDate.Before(requestedBefore) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (m *memoryRentalRepo) stored(id uuid.UUID) *models.RentalRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rentals[id].Clone()
}

// fixedSlugs hands out a scripted sequence of slugs, repeating the last one.
type fixedSlugs struct {
	mu    sync.Mutex
	slugs []string
	calls int
}

func (f *fixedSlugs) Generate(string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.calls
	if i >= len(f.slugs) {
		i = len(f.slugs) - 1
	}
	f.calls++
	return f.slugs[i]
}
