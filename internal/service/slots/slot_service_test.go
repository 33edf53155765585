package slots

import (
	"context"
	"testing"
	"time"

	"github.com/abriesk/psychobotV1/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockSlotRepository struct {
	mock.Mock
}

func (m *MockSlotRepository) Create(ctx context.Context, slot *domain.Slot) error {
	args := m.Called(ctx, slot)
	return args.Error(0)
}

func (m *MockSlotRepository) GetByID(ctx context.Context, id int64) (*domain.Slot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Slot), args.Error(1)
}

func (m *MockSlotRepository) ListAvailable(ctx context.Context, onlineOnly *bool, before time.Time, limit int) ([]domain.Slot, error) {
	args := m.Called(ctx, onlineOnly, before, limit)
	return args.Get(0).([]domain.Slot), args.Error(1)
}

func (m *MockSlotRepository) Hold(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSlotRepository) Confirm(ctx context.Context, id int64, heldAfter time.Time) error {
	args := m.Called(ctx, id, heldAfter)
	return args.Error(0)
}

func (m *MockSlotRepository) Release(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSlotRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSlotRepository) HasOverlap(ctx context.Context, start, end time.Time, isOnline bool) (bool, error) {
	args := m.Called(ctx, start, end, isOnline)
	return args.Bool(0), args.Error(1)
}

func (m *MockSlotRepository) ReleaseExpiredHolds(ctx context.Context, heldBefore time.Time) (int64, error) {
	args := m.Called(ctx, heldBefore)
	return args.Get(0).(int64), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetAvailableSlots(ctx context.Context, onlineOnly *bool) ([]domain.Slot, error) {
	args := m.Called(ctx, onlineOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Slot), args.Error(1)
}

func (m *MockCache) SetAvailableSlots(ctx context.Context, onlineOnly *bool, slots []domain.Slot) error {
	args := m.Called(ctx, onlineOnly, slots)
	return args.Error(0)
}

func (m *MockCache) InvalidateSlots(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestListAvailable_CacheHit(t *testing.T) {
	repo := &MockSlotRepository{}
	cache := &MockCache{}
	service := NewSlotService(repo, cache, 15*time.Minute)
	ctx := context.Background()

	cached := []domain.Slot{{ID: 1, Status: domain.SlotStatusAvailable}}
	cache.On("GetAvailableSlots", ctx, (*bool)(nil)).Return(cached, nil).Once()

	slots, err := service.ListAvailable(ctx, nil, 0, 0)

	assert.NoError(t, err)
	assert.Equal(t, cached, slots)
	repo.AssertNotCalled(t, "ListAvailable")
}

func TestListAvailable_CacheMissFillsCache(t *testing.T) {
	repo := &MockSlotRepository{}
	cache := &MockCache{}
	service := NewSlotService(repo, cache, 15*time.Minute)
	ctx := context.Background()

	fresh := []domain.Slot{{ID: 2, Status: domain.SlotStatusAvailable}}
	cache.On("GetAvailableSlots", ctx, (*bool)(nil)).Return(nil, nil).Once()
	repo.On("ListAvailable", ctx, (*bool)(nil), time.Time{}, 0).Return(fresh, nil).Once()
	cache.On("SetAvailableSlots", ctx, (*bool)(nil), fresh).Return(nil).Once()

	slots, err := service.ListAvailable(ctx, nil, 0, 0)

	assert.NoError(t, err)
	assert.Equal(t, fresh, slots)
	cache.AssertExpectations(t)
}

func TestListAvailable_LimitBypassesCache(t *testing.T) {
	repo := &MockSlotRepository{}
	cache := &MockCache{}
	service := NewSlotService(repo, cache, 15*time.Minute)
	ctx := context.Background()

	fresh := []domain.Slot{{ID: 2}}
	repo.On("ListAvailable", ctx, (*bool)(nil), time.Time{}, 5).Return(fresh, nil).Once()

	slots, err := service.ListAvailable(ctx, nil, 5, 0)

	assert.NoError(t, err)
	assert.Equal(t, fresh, slots)
	cache.AssertNotCalled(t, "GetAvailableSlots")
}

func TestListAvailable_HorizonBoundsListingAndBypassesCache(t *testing.T) {
	repo := &MockSlotRepository{}
	cache := &MockCache{}
	service := NewSlotService(repo, cache, 15*time.Minute)
	ctx := context.Background()

	fresh := []domain.Slot{{ID: 4}}
	repo.On("ListAvailable", ctx, (*bool)(nil), mock.MatchedBy(func(before time.Time) bool {
		until := time.Until(before)
		return until > 71*time.Hour && until < 73*time.Hour
	}), 0).Return(fresh, nil).Once()

	slots, err := service.ListAvailable(ctx, nil, 0, 72*time.Hour)

	assert.NoError(t, err)
	assert.Equal(t, fresh, slots)
	cache.AssertNotCalled(t, "GetAvailableSlots")
	cache.AssertNotCalled(t, "SetAvailableSlots")
}

func TestHold_InvalidatesCache(t *testing.T) {
	repo := &MockSlotRepository{}
	cache := &MockCache{}
	service := NewSlotService(repo, cache, 15*time.Minute)
	ctx := context.Background()

	repo.On("Hold", ctx, int64(3)).Return(nil).Once()
	cache.On("InvalidateSlots", ctx).Return(nil).Once()

	assert.NoError(t, service.Hold(ctx, 3))
	cache.AssertExpectations(t)
}

func TestHold_Unavailable(t *testing.T) {
	repo := &MockSlotRepository{}
	service := NewSlotService(repo, nil, 15*time.Minute)
	ctx := context.Background()

	repo.On("Hold", ctx, int64(3)).Return(domain.ErrSlotUnavailable).Once()

	err := service.Hold(ctx, 3)

	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
}

func TestConfirm_UsesHoldTTLCutoff(t *testing.T) {
	repo := &MockSlotRepository{}
	service := NewSlotService(repo, nil, 15*time.Minute)
	ctx := context.Background()

	repo.On("Confirm", ctx, int64(3), mock.MatchedBy(func(heldAfter time.Time) bool {
		age := time.Since(heldAfter)
		return age > 14*time.Minute && age < 16*time.Minute
	})).Return(nil).Once()

	assert.NoError(t, service.Confirm(ctx, 3))
	repo.AssertExpectations(t)
}

func TestConfirm_HoldExpired(t *testing.T) {
	repo := &MockSlotRepository{}
	service := NewSlotService(repo, nil, 15*time.Minute)
	ctx := context.Background()

	repo.On("Confirm", ctx, int64(3), mock.Anything).Return(domain.ErrSlotHoldExpired).Once()

	err := service.Confirm(ctx, 3)

	assert.ErrorIs(t, err, domain.ErrSlotHoldExpired)
}

func TestCreateSlot_Validation(t *testing.T) {
	repo := &MockSlotRepository{}
	service := NewSlotService(repo, nil, 15*time.Minute)
	ctx := context.Background()

	future := time.Now().UTC().Add(24 * time.Hour)

	testCases := []struct {
		name  string
		input CreateSlotInput
	}{
		{
			name:  "start after end",
			input: CreateSlotInput{StartTime: future.Add(time.Hour), EndTime: future, IsOnline: true},
		},
		{
			name:  "start in the past",
			input: CreateSlotInput{StartTime: time.Now().Add(-time.Hour), EndTime: future, IsOnline: true},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			slot, err := service.CreateSlot(ctx, tc.input)
			assert.Error(t, err)
			assert.Nil(t, slot)
		})
	}
	repo.AssertNotCalled(t, "Create")
}

func TestCreateSlot_RejectsOverlap(t *testing.T) {
	repo := &MockSlotRepository{}
	service := NewSlotService(repo, nil, 15*time.Minute)
	ctx := context.Background()

	start := time.Now().UTC().Add(24 * time.Hour)
	end := start.Add(time.Hour)
	repo.On("HasOverlap", ctx, start, end, true).Return(true, nil).Once()

	slot, err := service.CreateSlot(ctx, CreateSlotInput{StartTime: start, EndTime: end, IsOnline: true})

	assert.Error(t, err)
	assert.Nil(t, slot)
	repo.AssertNotCalled(t, "Create")
}

func TestReleaseExpiredHolds_ReturnsCount(t *testing.T) {
	repo := &MockSlotRepository{}
	cache := &MockCache{}
	service := NewSlotService(repo, cache, 15*time.Minute)
	ctx := context.Background()

	repo.On("ReleaseExpiredHolds", ctx, mock.MatchedBy(func(cutoff time.Time) bool {
		age := time.Since(cutoff)
		return age > 14*time.Minute && age < 16*time.Minute
	})).Return(int64(2), nil).Once()
	cache.On("InvalidateSlots", ctx).Return(nil).Once()

	count, err := service.ReleaseExpiredHolds(ctx)

	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestReleaseExpiredHolds_NoMatches(t *testing.T) {
	repo := &MockSlotRepository{}
	cache := &MockCache{}
	service := NewSlotService(repo, cache, 15*time.Minute)
	ctx := context.Background()

	repo.On("ReleaseExpiredHolds", ctx, mock.Anything).Return(int64(0), nil).Once()

	count, err := service.ReleaseExpiredHolds(ctx)

	assert.NoError(t, err)
	assert.Equal(t, int64(0), count)
	cache.AssertNotCalled(t, "InvalidateSlots")
}
