package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/binaryblade24/marketplace-backend/internal/goroutine"
	"github.com/binaryblade24/marketplace-backend/internal/logger"
	"github.com/binaryblade24/marketplace-backend/internal/models"
	"github.com/binaryblade24/marketplace-backend/internal/pkg/apperror"
)

// ConversationRepository описывает взаимодействие сервиса с хранилищем диалогов.
type ConversationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, error)
	CreateMessage(ctx context.Context, message *models.Message) error
}

// ConversationService содержит бизнес-логику переписки клиента и фрилансера.
type ConversationService struct {
	repo ConversationRepository
	hub  WSNotifier
}

// NewConversationService создаёт новый сервис диалогов.
func NewConversationService(repo ConversationRepository) *ConversationService {
	return &ConversationService{repo: repo}
}

// SetHub устанавливает WebSocket hub для отправки уведомлений.
func (s *ConversationService) SetHub(hub WSNotifier) {
	s.hub = hub
}

// ListMy возвращает диалоги пользователя.
func (s *ConversationService) ListMy(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListMessages возвращает сообщения диалога его участнику.
func (s *ConversationService) ListMessages(ctx context.Context, userID, conversationID uuid.UUID, limit, offset int) ([]models.Message, error) {
	conversation, err := s.participantOnly(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListMessages(ctx, conversation.ID, limit, offset)
}

// SendMessage отправляет сообщение в диалог и уведомляет собеседника.
func (s *ConversationService) SendMessage(ctx context.Context, userID, conversationID uuid.UUID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "сообщение не может быть пустым")
	}

	conversation, err := s.participantOnly(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	message := &models.Message{
		ConversationID: conversation.ID,
		SenderID:       userID,
		Content:        content,
	}
	if err := s.repo.CreateMessage(ctx, message); err != nil {
		return nil, err
	}

	recipient := conversation.ClientID
	if userID == conversation.ClientID {
		recipient = conversation.FreelancerID
	}
	if s.hub != nil {
		goroutine.SafeGo(func() {
			if err := s.hub.BroadcastToUser(recipient, models.EventMessageNew, message); err != nil {
				logger.Log.WithError(err).Warn("не удалось отправить уведомление о сообщении")
			}
		})
	}

	return message, nil
}

func (s *ConversationService) participantOnly(ctx context.Context, userID, conversationID uuid.UUID) (*models.Conversation, error) {
	conversation, err := s.repo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conversation.ClientID != userID && conversation.FreelancerID != userID {
		return nil, apperror.ErrForbidden
	}
	return conversation, nil
}
