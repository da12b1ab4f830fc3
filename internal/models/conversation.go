package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation представляет диалог клиента и фрилансера по проекту.
// Создаётся автоматически при принятии предложения.
type Conversation struct {
	ID           uuid.UUID `db:"id" json:"id"`
	ProjectID    uuid.UUID `db:"project_id" json:"project_id"`
	ClientID     uuid.UUID `db:"client_id" json:"client_id"`
	FreelancerID uuid.UUID `db:"freelancer_id" json:"freelancer_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Message представляет сообщение внутри диалога. Системные сообщения
// создаются сервером, например при принятии предложения.
type Message struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ConversationID uuid.UUID `db:"conversation_id" json:"conversation_id"`
	SenderID       uuid.UUID `db:"sender_id" json:"sender_id"`
	Content        string    `db:"content" json:"content"`
	IsSystem       bool      `db:"is_system" json:"is_system"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
