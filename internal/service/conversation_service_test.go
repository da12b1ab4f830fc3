package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/binaryblade24/marketplace-backend/internal/models"
	"github.com/binaryblade24/marketplace-backend/internal/pkg/apperror"
)

type mockConversationRepo struct {
	mock.Mock
}

func (m *mockConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *mockConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Conversation), args.Error(1)
}

func (m *mockConversationRepo) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, error) {
	args := m.Called(ctx, conversationID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *mockConversationRepo) CreateMessage(ctx context.Context, message *models.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

// captureHub собирает исходящие WebSocket события в канал.
type captureHub struct {
	sent chan sentEvent
}

type sentEvent struct {
	userID uuid.UUID
	event  string
}

func newCaptureHub() *captureHub {
	return &captureHub{sent: make(chan sentEvent, 1)}
}

func (h *captureHub) BroadcastToUser(userID uuid.UUID, event string, data interface{}) error {
	h.sent <- sentEvent{userID: userID, event: event}
	return nil
}

func (h *captureHub) wait(t *testing.T) sentEvent {
	t.Helper()
	select {
	case ev := <-h.sent:
		return ev
	case <-time.After(time.Second):
		t.Fatal("уведомление не отправлено")
		return sentEvent{}
	}
}

func TestConversationService_SendMessage_NotifiesRecipient(t *testing.T) {
	repo := new(mockConversationRepo)
	svc := NewConversationService(repo)
	hub := newCaptureHub()
	svc.SetHub(hub)

	conversationID := uuid.New()
	clientID := uuid.New()
	freelancerID := uuid.New()
	repo.On("GetByID", mock.Anything, conversationID).Return(&models.Conversation{
		ID:           conversationID,
		ClientID:     clientID,
		FreelancerID: freelancerID,
	}, nil)
	repo.On("CreateMessage", mock.Anything, mock.MatchedBy(func(msg *models.Message) bool {
		return msg.ConversationID == conversationID && msg.SenderID == clientID && msg.Content == "Добрый день"
	})).Return(nil)

	message, err := svc.SendMessage(context.Background(), clientID, conversationID, "  Добрый день  ")

	assert.NoError(t, err)
	assert.Equal(t, "Добрый день", message.Content)

	ev := hub.wait(t)
	assert.Equal(t, freelancerID, ev.userID)
	assert.Equal(t, models.EventMessageNew, ev.event)
	repo.AssertExpectations(t)
}

func TestConversationService_SendMessage_EmptyContent(t *testing.T) {
	repo := new(mockConversationRepo)
	svc := NewConversationService(repo)

	_, err := svc.SendMessage(context.Background(), uuid.New(), uuid.New(), "   ")

	assert.True(t, apperror.IsValidation(err))
	repo.AssertNotCalled(t, "CreateMessage")
}

func TestConversationService_SendMessage_StrangerForbidden(t *testing.T) {
	repo := new(mockConversationRepo)
	svc := NewConversationService(repo)

	conversationID := uuid.New()
	repo.On("GetByID", mock.Anything, conversationID).Return(&models.Conversation{
		ID:           conversationID,
		ClientID:     uuid.New(),
		FreelancerID: uuid.New(),
	}, nil)

	_, err := svc.SendMessage(context.Background(), uuid.New(), conversationID, "привет")

	assert.ErrorIs(t, err, apperror.ErrForbidden)
	repo.AssertNotCalled(t, "CreateMessage")
}

func TestConversationService_ListMessages_ClampsLimit(t *testing.T) {
	repo := new(mockConversationRepo)
	svc := NewConversationService(repo)

	conversationID := uuid.New()
	clientID := uuid.New()
	repo.On("GetByID", mock.Anything, conversationID).Return(&models.Conversation{
		ID:           conversationID,
		ClientID:     clientID,
		FreelancerID: uuid.New(),
	}, nil)
	repo.On("ListMessages", mock.Anything, conversationID, 50, 0).Return([]models.Message{}, nil)

	_, err := svc.ListMessages(context.Background(), clientID, conversationID, 1000, -5)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}
