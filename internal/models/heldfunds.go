package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Статусы удерживаемых средств. Единая машина состояний для Escrow
// (привязка к заказу) и Payment (привязка к проекту): held — единственное
// начальное состояние, released и refunded терминальны и взаимоисключающи.
const (
	HeldStatusPending  = "pending"
	HeldStatusHeld     = "held"
	HeldStatusReleased = "released"
	HeldStatusRefunded = "refunded"
)

// CanTransitionHeld проверяет допустимость перехода статуса удерживаемых
// средств. Статус монотонен: из терминального состояния выхода нет.
func CanTransitionHeld(from, to string) bool {
	transitions := map[string][]string{
		HeldStatusPending:  {HeldStatusHeld},
		HeldStatusHeld:     {HeldStatusReleased, HeldStatusRefunded},
		HeldStatusReleased: {},
		HeldStatusRefunded: {},
	}

	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Escrow удерживает средства по заказу до приёмки работы клиентом.
// Ровно один escrow на заказ; сумма равна total_amount заказа в момент оплаты.
type Escrow struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	OrderID    uuid.UUID       `db:"order_id" json:"order_id"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	Status     string          `db:"status" json:"status"`
	HeldAt     time.Time       `db:"held_at" json:"held_at"`
	ReleasedAt *time.Time      `db:"released_at" json:"released_at,omitempty"`
	RefundedAt *time.Time      `db:"refunded_at" json:"refunded_at,omitempty"`
}

// Payment удерживает средства по проекту при принятии предложения
// (job-сценарий). Та же машина состояний, что и у Escrow.
type Payment struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	UserID        uuid.UUID       `db:"user_id" json:"user_id"`
	ProjectID     uuid.UUID       `db:"project_id" json:"project_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	TransactionID string          `db:"transaction_id" json:"transaction_id"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	Status        string          `db:"status" json:"status"`
	ReleasedAt    *time.Time      `db:"released_at" json:"released_at,omitempty"`
	RefundedAt    *time.Time      `db:"refunded_at" json:"refunded_at,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// LedgerEntry фиксирует зачисление доли escrow конкретному фрилансеру
// при release: по одной записи на каждого фрилансера из позиций заказа.
type LedgerEntry struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EscrowID     uuid.UUID       `db:"escrow_id" json:"escrow_id"`
	FreelancerID uuid.UUID       `db:"freelancer_id" json:"freelancer_id"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
