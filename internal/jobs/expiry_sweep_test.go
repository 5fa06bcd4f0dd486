package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"linkrental/internal/lifecycle"
	"linkrental/internal/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockRentalRepository struct {
	mock.Mock
}

func (m *MockRentalRepository) Create(ctx context.Context, rental *models.RentalRequest) error {
	return m.Called(ctx, rental).Error(0)
}

func (m *MockRentalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RentalRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RentalRequest), args.Error(1)
}

func (m *MockRentalRepository) GetBySlug(ctx context.Context, slug string) (*models.RentalRequest, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RentalRequest), args.Error(1)
}

func (m *MockRentalRepository) ListByStatus(ctx context.Context, statuses []models.RentalStatus) ([]*models.RentalRequest, error) {
	args := m.Called(ctx, statuses)
	return args.Get(0).([]*models.RentalRequest), args.Error(1)
}

func (m *MockRentalRepository) Transition(ctx context.Context, id uuid.UUID, t lifecycle.Transition) (*models.RentalRequest, error) {
	args := m.Called(ctx, id, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RentalRequest), args.Error(1)
}

func (m *MockRentalRepository) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRentalRepository) CountByEffectiveStatus(ctx context.Context, now time.Time) (map[models.RentalStatus]int64, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.RentalStatus]int64), args.Error(1)
}

func (m *MockRentalRepository) ListStalePending(ctx context.Context, requestedBefore time.Time) ([]*models.RentalRequest, error) {
	args := m.Called(ctx, requestedBefore)
	return args.Get(0).([]*models.RentalRequest), args.Error(1)
}

var sweepNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func TestSweepExpired(t *testing.T) {
	repo := &MockRentalRepository{}
	repo.On("MarkExpired", mock.Anything, sweepNow).Return(int64(3), nil)
	svc := NewExpirySweepService(repo, clockwork.NewFakeClockAt(sweepNow), zap.NewNop())

	n, err := svc.SweepExpired(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	repo.AssertExpectations(t)
}

func TestSweepExpired_StoreError(t *testing.T) {
	repo := &MockRentalRepository{}
	dbErr := errors.New("db down")
	repo.On("MarkExpired", mock.Anything, sweepNow).Return(int64(0), dbErr)
	svc := NewExpirySweepService(repo, clockwork.NewFakeClockAt(sweepNow), zap.NewNop())

	n, err := svc.SweepExpired(context.Background())

	assert.ErrorIs(t, err, dbErr)
	assert.Zero(t, n)
}

func TestReportStalePending(t *testing.T) {
	repo := &MockRentalRepository{}
	oldest := &models.RentalRequest{ID: uuid.New(), Slug: "old-aaaaaa", BusinessName: "Old", RequestDate: sweepNow.Add(-72 * time.Hour)}
	newer := &models.RentalRequest{ID: uuid.New(), Slug: "newer-bbbbbb", BusinessName: "Newer", RequestDate: sweepNow.Add(-25 * time.Hour)}
	repo.On("ListStalePending", mock.Anything, sweepNow.Add(-24*time.Hour)).
		Return([]*models.RentalRequest{oldest, newer}, nil)
	svc := NewExpirySweepService(repo, clockwork.NewFakeClockAt(sweepNow), zap.NewNop())

	stale, err := svc.ReportStalePending(context.Background(), 24*time.Hour)

	require.NoError(t, err)
	require.Len(t, stale, 2)
	assert.Equal(t, oldest.ID, stale[0].ID)
	assert.Equal(t, 72*time.Hour, stale[0].Waiting)
	assert.Equal(t, "newer-bbbbbb", stale[1].Slug)
	assert.Equal(t, 25*time.Hour, stale[1].Waiting)
}

func TestReportStalePending_None(t *testing.T) {
	repo := &MockRentalRepository{}
	repo.On("ListStalePending", mock.Anything, mock.Anything).Return([]*models.RentalRequest{}, nil)
	svc := NewExpirySweepService(repo, clockwork.NewFakeClockAt(sweepNow), zap.NewNop())

	stale, err := svc.ReportStalePending(context.Background(), time.Hour)

	require.NoError(t, err)
	assert.Empty(t, stale)
}
