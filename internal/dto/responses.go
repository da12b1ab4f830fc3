package dto

import (
	"github.com/binaryblade24/marketplace-backend/internal/models"
)

// ErrorResponse стандартный ответ с ошибкой.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse стандартный успешный ответ.
type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// AuthResponse ответ на регистрацию, вход и обновление токенов.
type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
}

// EscrowResponse escrow заказа вместе с записями зачислений.
type EscrowResponse struct {
	*models.Escrow
	Ledger []models.LedgerEntry `json:"ledger,omitempty"`
}

// OrderPaidResponse результат оплаты заказа.
type OrderPaidResponse struct {
	Order  *models.Order  `json:"order"`
	Escrow *models.Escrow `json:"escrow"`
}
