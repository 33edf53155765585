package slots

import (
	"context"
	"errors"
	"time"

	"github.com/abriesk/psychobotV1/internal/domain"
	"github.com/abriesk/psychobotV1/internal/repository"
)

type SlotUseCase interface {
	ListAvailable(ctx context.Context, onlineOnly *bool, limit int, horizon time.Duration) ([]domain.Slot, error)
	GetByID(ctx context.Context, id int64) (*domain.Slot, error)
	Hold(ctx context.Context, id int64) error
	Confirm(ctx context.Context, id int64) error
	Release(ctx context.Context, id int64) error
	CreateSlot(ctx context.Context, input CreateSlotInput) (*domain.Slot, error)
	DeleteSlot(ctx context.Context, id int64) error
	ReleaseExpiredHolds(ctx context.Context) (int64, error)
}

// Cache is optional; a nil cache turns every call into a repository read.
type Cache interface {
	GetAvailableSlots(ctx context.Context, onlineOnly *bool) ([]domain.Slot, error)
	SetAvailableSlots(ctx context.Context, onlineOnly *bool, slots []domain.Slot) error
	InvalidateSlots(ctx context.Context) error
}

type SlotService struct {
	slots   repository.SlotRepository
	cache   Cache
	holdTTL time.Duration
}

type CreateSlotInput struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	IsOnline  bool      `json:"is_online"`
}

func NewSlotService(slots repository.SlotRepository, cache Cache, holdTTL time.Duration) *SlotService {
	return &SlotService{slots: slots, cache: cache, holdTTL: holdTTL}
}

// ListAvailable returns bookable future slots. A positive horizon bounds how
// far ahead the listing looks; only the unbounded listing is cached.
func (s *SlotService) ListAvailable(ctx context.Context, onlineOnly *bool, limit int, horizon time.Duration) ([]domain.Slot, error) {
	cacheable := s.cache != nil && limit <= 0 && horizon <= 0
	if cacheable {
		if cached, err := s.cache.GetAvailableSlots(ctx, onlineOnly); err == nil && cached != nil {
			return cached, nil
		}
	}

	var before time.Time
	if horizon > 0 {
		before = time.Now().UTC().Add(horizon)
	}
	slots, err := s.slots.ListAvailable(ctx, onlineOnly, before, limit)
	if err != nil {
		return nil, err
	}
	if cacheable {
		_ = s.cache.SetAvailableSlots(ctx, onlineOnly, slots)
	}
	return slots, nil
}

func (s *SlotService) GetByID(ctx context.Context, id int64) (*domain.Slot, error) {
	return s.slots.GetByID(ctx, id)
}

func (s *SlotService) Hold(ctx context.Context, id int64) error {
	if err := s.slots.Hold(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Confirm finalizes a hold into a booking. Holds older than the TTL are not
// confirmable; the sweeper reclaims them on its next pass.
func (s *SlotService) Confirm(ctx context.Context, id int64) error {
	heldAfter := time.Now().UTC().Add(-s.holdTTL)
	if err := s.slots.Confirm(ctx, id, heldAfter); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *SlotService) Release(ctx context.Context, id int64) error {
	if err := s.slots.Release(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *SlotService) CreateSlot(ctx context.Context, input CreateSlotInput) (*domain.Slot, error) {
	if !input.StartTime.Before(input.EndTime) {
		return nil, errors.New("slot start must be before end")
	}
	if input.StartTime.Before(time.Now().UTC()) {
		return nil, errors.New("slot must be in the future")
	}

	overlap, err := s.slots.HasOverlap(ctx, input.StartTime, input.EndTime, input.IsOnline)
	if err != nil {
		return nil, err
	}
	if overlap {
		return nil, errors.New("slot overlaps an existing slot")
	}

	slot := &domain.Slot{
		StartTime: input.StartTime.UTC(),
		EndTime:   input.EndTime.UTC(),
		IsOnline:  input.IsOnline,
	}
	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return slot, nil
}

func (s *SlotService) DeleteSlot(ctx context.Context, id int64) error {
	if err := s.slots.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// ReleaseExpiredHolds reclaims slots held longer than the hold TTL. Run by
// the worker on a fixed interval; returns the reclaimed count.
func (s *SlotService) ReleaseExpiredHolds(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.holdTTL)
	count, err := s.slots.ReleaseExpiredHolds(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.invalidate(ctx)
	}
	return count, nil
}

func (s *SlotService) invalidate(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.InvalidateSlots(ctx)
	}
}

var _ SlotUseCase = (*SlotService)(nil)
