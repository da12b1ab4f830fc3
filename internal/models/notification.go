package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// События уведомлений.
const (
	EventProposalAccepted = "proposal.accepted"
	EventProposalRejected = "proposal.rejected"
	EventOrderPaid        = "order.paid"
	EventEscrowReleased   = "escrow.released"
	EventEscrowRefunded   = "escrow.refunded"
	EventOrderCancelled   = "order.cancelled"
	EventMessageNew       = "message.new"
)

// Notification хранит событие для пользователя. Доставка идёт через
// WebSocket, запись в БД служит лентой уведомлений.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Type      string          `db:"type" json:"type"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
