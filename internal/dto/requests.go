package dto

import "github.com/google/uuid"

// RegisterRequest описывает данные регистрации.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Username string `json:"username" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// LoginRequest описывает данные входа.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest описывает обновление пары токенов.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// CreateProjectRequest описывает создаваемый проект.
type CreateProjectRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Budget      string `json:"budget" binding:"required"`
	ProjectType string `json:"project_type" binding:"required"`
}

// CreateProposalRequest описывает отклик на job-проект.
type CreateProposalRequest struct {
	ProjectID   uuid.UUID `json:"project_id" binding:"required"`
	CoverLetter string    `json:"cover_letter" binding:"required"`
}

// UpdateProposalStatusRequest описывает рассмотрение отклика.
type UpdateProposalStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// OrderItemRequest описывает одну позицию заказа.
type OrderItemRequest struct {
	ProjectID uuid.UUID `json:"project_id" binding:"required"`
	Tier      string    `json:"tier" binding:"required"`
}

// CreateOrderRequest описывает покупку gig-проектов.
type CreateOrderRequest struct {
	Items []OrderItemRequest `json:"items" binding:"required"`
}

// SendMessageRequest описывает сообщение в диалоге.
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}
