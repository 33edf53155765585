package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/abriesk/psychobotV1/internal/chat"
	"github.com/abriesk/psychobotV1/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Enqueue(ctx context.Context, n *domain.PendingNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationRepository) FetchBatch(ctx context.Context, maxAttempts, limit int) ([]domain.PendingNotification, error) {
	args := m.Called(ctx, maxAttempts, limit)
	return args.Get(0).([]domain.PendingNotification), args.Error(1)
}

func (m *MockNotificationRepository) MarkAttempt(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockNotificationRepository) MarkSent(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockNotificationRepository) MarkFailed(ctx context.Context, id int64, errText string) error {
	args := m.Called(ctx, id, errText)
	return args.Error(0)
}

func (m *MockNotificationRepository) CountStuck(ctx context.Context, maxAttempts int) (int64, error) {
	args := m.Called(ctx, maxAttempts)
	return args.Get(0).(int64), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Upsert(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// fakeSender records sent messages and can fail selectively per chat id.
type fakeSender struct {
	sent    []chat.Message
	failFor map[int64]error
}

func (s *fakeSender) Send(ctx context.Context, msg chat.Message) error {
	if err, ok := s.failFor[msg.ChatID]; ok {
		return err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func requestID(id int64) *int64 {
	return &id
}

func TestDispatchBatch_MarksAttemptBeforeSend(t *testing.T) {
	repo := &MockNotificationRepository{}
	users := &MockUserRepository{}
	sender := &fakeSender{}
	d := NewDispatcher(repo, users, nil, sender, 3, 20, "ru", zap.NewNop())
	ctx := context.Background()

	items := []domain.PendingNotification{
		{ID: 1, UserID: 42, Type: domain.NotificationCustom, Message: "hello"},
	}
	repo.On("FetchBatch", ctx, 3, 20).Return(items, nil).Once()
	repo.On("MarkAttempt", ctx, int64(1)).Return(nil).Once()
	users.On("GetByID", ctx, int64(42)).Return(&domain.User{ID: 42, Language: "am"}, nil).Once()
	repo.On("MarkSent", ctx, int64(1)).Return(nil).Once()

	sent, err := d.DispatchBatch(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Len(t, sender.sent, 1)
	assert.Equal(t, "hello", sender.sent[0].Text)
	repo.AssertExpectations(t)
}

func TestDispatchBatch_FailureRecordedLoopContinues(t *testing.T) {
	repo := &MockNotificationRepository{}
	users := &MockUserRepository{}
	sender := &fakeSender{failFor: map[int64]error{42: errors.New("chat unreachable")}}
	d := NewDispatcher(repo, users, nil, sender, 3, 20, "ru", zap.NewNop())
	ctx := context.Background()

	items := []domain.PendingNotification{
		{ID: 1, UserID: 42, Type: domain.NotificationCustom, Message: "first"},
		{ID: 2, UserID: 43, Type: domain.NotificationCustom, Message: "second"},
	}
	repo.On("FetchBatch", ctx, 3, 20).Return(items, nil).Once()
	repo.On("MarkAttempt", ctx, int64(1)).Return(nil).Once()
	repo.On("MarkAttempt", ctx, int64(2)).Return(nil).Once()
	users.On("GetByID", ctx, mock.Anything).Return(nil, nil)
	repo.On("MarkFailed", ctx, int64(1), "chat unreachable").Return(nil).Once()
	repo.On("MarkSent", ctx, int64(2)).Return(nil).Once()

	sent, err := d.DispatchBatch(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Len(t, sender.sent, 1)
	assert.Equal(t, "second", sender.sent[0].Text)
	repo.AssertExpectations(t)
}

func TestDispatchBatch_FetchesWithConfiguredRetryBudget(t *testing.T) {
	repo := &MockNotificationRepository{}
	users := &MockUserRepository{}
	sender := &fakeSender{}
	d := NewDispatcher(repo, users, nil, sender, 5, 7, "ru", zap.NewNop())
	ctx := context.Background()

	// The attempts cap is enforced in the fetch query, so the configured
	// budget and batch size must reach the repository verbatim.
	repo.On("FetchBatch", ctx, 5, 7).Return([]domain.PendingNotification{}, nil).Once()

	sent, err := d.DispatchBatch(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 0, sent)
	repo.AssertExpectations(t)
}

func TestDispatchBatch_ProposalCarriesResponseControls(t *testing.T) {
	repo := &MockNotificationRepository{}
	users := &MockUserRepository{}
	sender := &fakeSender{}
	d := NewDispatcher(repo, users, nil, sender, 3, 20, "ru", zap.NewNop())
	ctx := context.Background()

	items := []domain.PendingNotification{
		{ID: 1, UserID: 42, RequestID: requestID(7), Type: domain.NotificationProposal, Message: "New time proposed: Tue 15:00", ProposedTime: "Tue 15:00"},
	}
	repo.On("FetchBatch", ctx, 3, 20).Return(items, nil).Once()
	repo.On("MarkAttempt", ctx, int64(1)).Return(nil).Once()
	users.On("GetByID", ctx, int64(42)).Return(nil, nil).Once()
	repo.On("MarkSent", ctx, int64(1)).Return(nil).Once()

	sent, err := d.DispatchBatch(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 1, sent)
	msg := sender.sent[0]
	assert.Len(t, msg.Buttons, 2)
	assert.Equal(t, "usr_yes_7", msg.Buttons[0][0].CallbackData)
	assert.Equal(t, "usr_counter_7", msg.Buttons[1][0].CallbackData)
}

func TestRender_KindShapes(t *testing.T) {
	confirmation := domain.PendingNotification{ID: 2, UserID: 42, Type: domain.NotificationConfirmation, Message: "confirmed"}
	msg, err := render(confirmation, "en")
	assert.NoError(t, err)
	assert.Empty(t, msg.Buttons)
	assert.Equal(t, "confirmed", msg.Text)

	custom := domain.PendingNotification{ID: 3, UserID: 42, Type: domain.NotificationCustom, Message: "<b>verbatim</b>"}
	msg, err = render(custom, "en")
	assert.NoError(t, err)
	assert.Equal(t, "<b>verbatim</b>", msg.Text)

	proposalWithoutRequest := domain.PendingNotification{ID: 4, UserID: 42, Type: domain.NotificationProposal, Message: "x"}
	_, err = render(proposalWithoutRequest, "en")
	assert.Error(t, err)

	unknown := domain.PendingNotification{ID: 5, UserID: 42, Type: "SMOKE_SIGNAL", Message: "x"}
	_, err = render(unknown, "en")
	assert.Error(t, err)
}

func TestRender_ButtonLabelsFollowLanguage(t *testing.T) {
	n := domain.PendingNotification{ID: 1, UserID: 42, RequestID: requestID(7), Type: domain.NotificationProposal, Message: "x"}

	ru, err := render(n, "ru")
	assert.NoError(t, err)
	en, err := render(n, "en")
	assert.NoError(t, err)
	fallback, err := render(n, "xx")
	assert.NoError(t, err)

	assert.NotEqual(t, ru.Buttons[0][0].Text, en.Buttons[0][0].Text)
	assert.Equal(t, en.Buttons[0][0].Text, fallback.Buttons[0][0].Text)
}

func TestOutboxService_EnqueueValidation(t *testing.T) {
	repo := &MockNotificationRepository{}
	service := NewOutboxService(repo, 3)
	ctx := context.Background()

	_, err := service.Enqueue(ctx, EnqueueInput{Message: "no user"})
	assert.Error(t, err)

	_, err = service.Enqueue(ctx, EnqueueInput{UserID: 42})
	assert.Error(t, err)

	_, err = service.Enqueue(ctx, EnqueueInput{UserID: 42, Message: "x", Type: "BOGUS"})
	assert.Error(t, err)

	repo.AssertNotCalled(t, "Enqueue")
}

func TestOutboxService_EnqueueDefaultsToCustom(t *testing.T) {
	repo := &MockNotificationRepository{}
	service := NewOutboxService(repo, 3)
	ctx := context.Background()

	repo.On("Enqueue", ctx, mock.MatchedBy(func(n *domain.PendingNotification) bool {
		return n.Type == domain.NotificationCustom && n.UserID == 42
	})).Return(nil).Once()

	n, err := service.Enqueue(ctx, EnqueueInput{UserID: 42, Message: "ad-hoc"})

	assert.NoError(t, err)
	assert.Equal(t, domain.NotificationCustom, n.Type)
	repo.AssertExpectations(t)
}

func TestStuckCount(t *testing.T) {
	repo := &MockNotificationRepository{}
	service := NewOutboxService(repo, 3)
	ctx := context.Background()

	repo.On("CountStuck", ctx, 3).Return(int64(4), nil).Once()

	count, err := service.StuckCount(ctx)

	assert.NoError(t, err)
	assert.Equal(t, int64(4), count)
}
