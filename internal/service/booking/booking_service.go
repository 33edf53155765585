package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abriesk/psychobotV1/internal/domain"
	"github.com/abriesk/psychobotV1/internal/kafka"
	"github.com/abriesk/psychobotV1/internal/repository"
	"github.com/abriesk/psychobotV1/internal/service/slots"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingUseCase interface {
	CreateRequest(ctx context.Context, input CreateRequestInput) (*domain.Request, error)
	FinalizeSlotBooking(ctx context.Context, requestID, slotID int64) (*domain.Request, error)
	GetByToken(ctx context.Context, token string) (*domain.Request, error)
	ListRequests(ctx context.Context, status *domain.RequestStatus, limit int) ([]domain.Request, error)
	History(ctx context.Context, requestID int64) ([]domain.NegotiationEntry, error)
	AdminPropose(ctx context.Context, requestID int64, proposedTime string) (*domain.Request, error)
	AdminApprove(ctx context.Context, requestID int64) (*domain.Request, error)
	AdminReject(ctx context.Context, requestID int64) (*domain.Request, error)
	ClientAccept(ctx context.Context, requestID int64) (*domain.Request, error)
	ClientCounter(ctx context.Context, requestID int64, counterText string) (*domain.Request, error)
	Cancel(ctx context.Context, requestID int64) (*domain.Request, error)
	RejectStale(ctx context.Context) (int, error)
	EnqueueDueReminders(ctx context.Context) (int, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	requests      repository.RequestRepository
	negotiations  repository.NegotiationRepository
	notifications repository.NotificationRepository
	users         repository.UserRepository
	slots         slots.SlotUseCase
	producer      Producer
	eventsTopic   string
	autoConfirm   bool
	staleWindow   time.Duration
	logger        *zap.Logger
}

type CreateRequestInput struct {
	UserID        int64              `json:"user_id"`
	Language      string             `json:"language"`
	Type          domain.RequestType `json:"type"`
	SlotID        *int64             `json:"slot_id"`
	Onsite        *bool              `json:"onsite"`
	Timezone      string             `json:"timezone"`
	DesiredTime   string             `json:"desired_time"`
	Problem       string             `json:"problem"`
	PreferredComm string             `json:"preferred_comm"`
	AddressName   string             `json:"address_name"`
}

type BookingServiceOption func(*BookingService)

func WithAutoConfirm(enabled bool) BookingServiceOption {
	return func(s *BookingService) { s.autoConfirm = enabled }
}

func WithStaleWindow(window time.Duration) BookingServiceOption {
	return func(s *BookingService) { s.staleWindow = window }
}

func NewBookingService(
	requests repository.RequestRepository,
	negotiations repository.NegotiationRepository,
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	slotSvc slots.SlotUseCase,
	producer Producer,
	eventsTopic string,
	logger *zap.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		requests:      requests,
		negotiations:  negotiations,
		notifications: notifications,
		users:         users,
		slots:         slotSvc,
		producer:      producer,
		eventsTopic:   eventsTopic,
		staleWindow:   48 * time.Hour,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *BookingService) CreateRequest(ctx context.Context, input CreateRequestInput) (*domain.Request, error) {
	switch input.Type {
	case domain.RequestTypeWaitlist, domain.RequestTypeIndividual, domain.RequestTypeCouple:
	default:
		return nil, fmt.Errorf("unknown request type %q", input.Type)
	}
	if input.UserID == 0 {
		return nil, errors.New("user id is required")
	}

	if input.SlotID != nil {
		slot, err := s.slots.GetByID(ctx, *input.SlotID)
		if err != nil {
			return nil, err
		}
		if slot.Status != domain.SlotStatusHeld {
			return nil, domain.ErrSlotNotHeld
		}
	}

	if s.users != nil && input.Language != "" {
		if err := s.users.Upsert(ctx, &domain.User{ID: input.UserID, Language: input.Language}); err != nil {
			s.logger.Warn("failed to upsert user", zap.Int64("user_id", input.UserID), zap.Error(err))
		}
	}

	req := &domain.Request{
		Token:         uuid.NewString(),
		UserID:        input.UserID,
		Type:          input.Type,
		SlotID:        input.SlotID,
		Onsite:        input.Onsite,
		Timezone:      input.Timezone,
		DesiredTime:   input.DesiredTime,
		Problem:       input.Problem,
		PreferredComm: input.PreferredComm,
		AddressName:   input.AddressName,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	s.publish(ctx, "request_created", req)
	return req, nil
}

// FinalizeSlotBooking binds a previously held slot to the request. The slot
// must still be HELD and inside its hold TTL; a contention failure leaves the
// request without a slot and the caller must offer another one. With
// auto-confirm enabled the request goes straight to CONFIRMED.
func (s *BookingService) FinalizeSlotBooking(ctx context.Context, requestID, slotID int64) (*domain.Request, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status.Terminal() {
		return nil, domain.ErrRequestTerminal
	}

	if err := s.slots.Confirm(ctx, slotID); err != nil {
		return nil, err
	}
	if err := s.requests.BindSlot(ctx, requestID, slotID); err != nil {
		return nil, err
	}

	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "slot_booked", req)

	if !s.autoConfirm {
		return s.requests.GetByID(ctx, requestID)
	}

	start := slot.StartTime
	updated, err := s.requests.ConfirmWithFinalTime(ctx, requestID, start.Format(time.RFC3339), &start,
		domain.RequestStatusPending, domain.RequestStatusNegotiating)
	if err != nil {
		return nil, err
	}
	s.enqueue(ctx, updated, domain.NotificationConfirmation, "Your session is confirmed for "+updated.FinalTime, "")
	s.publish(ctx, "request_confirmed", updated)
	return updated, nil
}

func (s *BookingService) GetByToken(ctx context.Context, token string) (*domain.Request, error) {
	return s.requests.GetByToken(ctx, token)
}

func (s *BookingService) ListRequests(ctx context.Context, status *domain.RequestStatus, limit int) ([]domain.Request, error) {
	return s.requests.List(ctx, status, limit)
}

func (s *BookingService) History(ctx context.Context, requestID int64) ([]domain.NegotiationEntry, error) {
	return s.negotiations.ListByRequest(ctx, requestID)
}

func (s *BookingService) AdminPropose(ctx context.Context, requestID int64, proposedTime string) (*domain.Request, error) {
	if proposedTime == "" {
		return nil, errors.New("proposed time is required")
	}

	req, err := s.requests.Transition(ctx, requestID, domain.RequestStatusNegotiating,
		domain.RequestStatusPending, domain.RequestStatusNegotiating)
	if err != nil {
		return nil, err
	}

	entry := &domain.NegotiationEntry{RequestID: requestID, Sender: domain.SenderAdmin, Message: proposedTime}
	if err := s.negotiations.Append(ctx, entry); err != nil {
		return nil, err
	}

	s.enqueue(ctx, req, domain.NotificationProposal, "New time proposed: "+proposedTime, proposedTime)
	return req, nil
}

func (s *BookingService) AdminApprove(ctx context.Context, requestID int64) (*domain.Request, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status.Terminal() {
		return nil, domain.ErrRequestTerminal
	}

	finalTime := req.DesiredTime
	var scheduledAt *time.Time
	if req.SlotID != nil {
		slot, err := s.slots.GetByID(ctx, *req.SlotID)
		if err != nil {
			return nil, err
		}
		if slot.Status == domain.SlotStatusHeld {
			if err := s.slots.Confirm(ctx, slot.ID); err != nil {
				return nil, err
			}
		}
		start := slot.StartTime
		finalTime = start.Format(time.RFC3339)
		scheduledAt = &start
	}

	updated, err := s.requests.ConfirmWithFinalTime(ctx, requestID, finalTime, scheduledAt,
		domain.RequestStatusPending, domain.RequestStatusNegotiating)
	if err != nil {
		return nil, err
	}

	s.enqueue(ctx, updated, domain.NotificationConfirmation, "Your booking request was approved.", updated.FinalTime)
	s.publish(ctx, "request_confirmed", updated)
	return updated, nil
}

func (s *BookingService) AdminReject(ctx context.Context, requestID int64) (*domain.Request, error) {
	req, err := s.requests.Transition(ctx, requestID, domain.RequestStatusRejected,
		domain.RequestStatusPending, domain.RequestStatusNegotiating)
	if err != nil {
		return nil, err
	}

	s.releaseBoundSlot(ctx, req)
	s.enqueue(ctx, req, domain.NotificationRejection, "Unfortunately your booking request was declined.", "")
	s.publish(ctx, "request_rejected", req)
	return req, nil
}

// ClientAccept resolves against the most recent ADMIN proposal, no matter how
// many client counters were appended after it.
func (s *BookingService) ClientAccept(ctx context.Context, requestID int64) (*domain.Request, error) {
	proposal, err := s.negotiations.LatestBySender(ctx, requestID, domain.SenderAdmin)
	if err != nil {
		return nil, err
	}

	updated, err := s.requests.ConfirmWithFinalTime(ctx, requestID, proposal.Message, nil,
		domain.RequestStatusPending, domain.RequestStatusNegotiating)
	if err != nil {
		return nil, err
	}

	entry := &domain.NegotiationEntry{RequestID: requestID, Sender: domain.SenderClient, Message: "accepted"}
	if err := s.negotiations.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to record acceptance entry", zap.Int64("request_id", requestID), zap.Error(err))
	}

	s.publish(ctx, "request_confirmed", updated)
	return updated, nil
}

func (s *BookingService) ClientCounter(ctx context.Context, requestID int64, counterText string) (*domain.Request, error) {
	if counterText == "" {
		return nil, errors.New("counter text is required")
	}

	req, err := s.requests.Transition(ctx, requestID, domain.RequestStatusNegotiating,
		domain.RequestStatusPending, domain.RequestStatusNegotiating)
	if err != nil {
		return nil, err
	}

	entry := &domain.NegotiationEntry{RequestID: requestID, Sender: domain.SenderClient, Message: counterText}
	if err := s.negotiations.Append(ctx, entry); err != nil {
		return nil, err
	}

	s.publish(ctx, "request_countered", req)
	return req, nil
}

// Cancel is reentrant. The slot is released only when the request ends up
// CANCELED: a confirmed booking keeps its slot BOOKED, and canceling one is a
// no-op that returns the current row. The cancellation event is published
// once, by the call that performed the transition.
func (s *BookingService) Cancel(ctx context.Context, requestID int64) (*domain.Request, error) {
	req, transitioned, err := s.requests.Cancel(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if req.Status == domain.RequestStatusCanceled {
		s.releaseBoundSlot(ctx, req)
		if transitioned {
			s.publish(ctx, "request_canceled", req)
		}
	}
	return req, nil
}

// RejectStale auto-rejects requests stuck in PENDING longer than the stale
// window, with the same side effects as an admin rejection.
func (s *BookingService) RejectStale(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.staleWindow)
	stale, err := s.requests.ListPendingBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	rejected := 0
	for _, req := range stale {
		if _, err := s.AdminReject(ctx, req.ID); err != nil {
			s.logger.Warn("failed to auto-reject stale request", zap.Int64("request_id", req.ID), zap.Error(err))
			continue
		}
		rejected++
	}
	return rejected, nil
}

// EnqueueDueReminders queues 24h and 1h session reminders for confirmed
// slot-based requests, marking each flag so a reminder goes out once.
func (s *BookingService) EnqueueDueReminders(ctx context.Context) (int, error) {
	queued := 0
	windows := []struct {
		within time.Duration
		flag   string
		text   string
	}{
		{24 * time.Hour, "reminder_24h_sent", "Reminder: your session is tomorrow at "},
		{time.Hour, "reminder_1h_sent", "Reminder: your session starts within an hour, at "},
	}

	for _, w := range windows {
		due, err := s.requests.ListDueReminders(ctx, w.within, w.flag)
		if err != nil {
			return queued, err
		}
		for _, req := range due {
			s.enqueue(ctx, &req, domain.NotificationReminder, w.text+req.FinalTime, "")
			if err := s.requests.MarkReminderSent(ctx, req.ID, w.flag); err != nil {
				s.logger.Warn("failed to mark reminder sent", zap.Int64("request_id", req.ID), zap.Error(err))
				continue
			}
			queued++
		}
	}
	return queued, nil
}

func (s *BookingService) releaseBoundSlot(ctx context.Context, req *domain.Request) {
	if req.SlotID == nil {
		return
	}
	if err := s.slots.Release(ctx, *req.SlotID); err != nil {
		s.logger.Warn("failed to release slot", zap.Int64("slot_id", *req.SlotID), zap.Error(err))
	}
}

func (s *BookingService) enqueue(ctx context.Context, req *domain.Request, kind domain.NotificationType, message, proposedTime string) {
	if s.notifications == nil {
		return
	}
	n := &domain.PendingNotification{
		UserID:       req.UserID,
		RequestID:    &req.ID,
		Type:         kind,
		Message:      message,
		ProposedTime: proposedTime,
	}
	if err := s.notifications.Enqueue(ctx, n); err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.Int64("request_id", req.ID), zap.String("kind", string(kind)), zap.Error(err))
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, req *domain.Request) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:        eventType,
		Token:       req.Token,
		RequestID:   req.ID,
		UserID:      req.UserID,
		RequestType: string(req.Type),
		Status:      string(req.Status),
		SlotID:      req.SlotID,
		FinalTime:   req.FinalTime,
		OccurredAt:  time.Now().UTC(),
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, req.Token, event); err != nil {
		s.logger.Warn("failed to publish booking event",
			zap.String("type", eventType), zap.Int64("request_id", req.ID), zap.Error(err))
	}
}

var _ BookingUseCase = (*BookingService)(nil)
