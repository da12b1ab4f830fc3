package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/binaryblade24/marketplace-backend/internal/models"
	"github.com/binaryblade24/marketplace-backend/internal/pkg/apperror"
)

type ConversationRepository struct {
	db *sqlx.DB
}

func NewConversationRepository(db *sqlx.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.GetContext(ctx, &conversation, `SELECT * FROM conversations WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "диалог не найден")
		}
		return nil, fmt.Errorf("conversation repository: get by id %w", err)
	}
	return &conversation, nil
}

// ListByUser возвращает диалоги, где пользователь выступает любой из сторон.
func (r *ConversationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := r.db.SelectContext(ctx, &conversations, `
		SELECT * FROM conversations
		WHERE client_id = $1 OR freelancer_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("conversation repository: list by user %w", err)
	}
	return conversations, nil
}

func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.SelectContext(ctx, &messages, `
		SELECT * FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`, conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("conversation repository: list messages %w", err)
	}
	return messages, nil
}

func (r *ConversationRepository) CreateMessage(ctx context.Context, message *models.Message) error {
	err := r.db.GetContext(ctx, message, `
		INSERT INTO messages (conversation_id, sender_id, content, is_system)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, message.ConversationID, message.SenderID, message.Content, message.IsSystem)
	if err != nil {
		return fmt.Errorf("conversation repository: create message %w", err)
	}
	return nil
}
