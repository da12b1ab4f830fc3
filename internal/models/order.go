package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Тарифы (пакеты) позиции заказа.
const (
	TierSimple = "simple"
	TierMedium = "medium"
	TierExpert = "expert"
)

// tierMultipliers каноническая таблица множителей тарифов.
var tierMultipliers = map[string]decimal.Decimal{
	TierSimple: decimal.NewFromFloat(1.0),
	TierMedium: decimal.NewFromFloat(1.5),
	TierExpert: decimal.NewFromFloat(2.0),
}

// TierMultiplier возвращает множитель тарифа. Неизвестный тариф — ошибка
// валидации на границе, а не молчаливый дефолт.
func TierMultiplier(tier string) (decimal.Decimal, bool) {
	m, ok := tierMultipliers[tier]
	return m, ok
}

// Order описывает покупку клиентом одного или нескольких gig-проектов.
type Order struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	OrderNumber string          `db:"order_number" json:"order_number"`
	ClientID    uuid.UUID       `db:"client_id" json:"client_id"`
	Status      string          `db:"status" json:"status"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
	PaidAt      *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
	Items       []OrderItem     `db:"-" json:"items,omitempty"`
}

// OrderItem описывает позицию заказа: покупку одного gig по выбранному тарифу.
// base_price копируется из бюджета проекта в момент создания и дальше
// не зависит от изменений проекта.
type OrderItem struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	OrderID        uuid.UUID       `db:"order_id" json:"order_id"`
	ProjectID      uuid.UUID       `db:"project_id" json:"project_id"`
	FreelancerID   uuid.UUID       `db:"freelancer_id" json:"freelancer_id"`
	Tier           string          `db:"tier" json:"tier"`
	BasePrice      decimal.Decimal `db:"base_price" json:"base_price"`
	TierMultiplier decimal.Decimal `db:"tier_multiplier" json:"tier_multiplier"`
	FinalPrice     decimal.Decimal `db:"final_price" json:"final_price"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// NewOrderNumber генерирует публичный номер заказа вида
// ORD-YYYYMMDD-XXXXXXXX (8 символов hex в верхнем регистре).
// Формат стабилен: на него завязаны внешние интеграции.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}

// SumItems возвращает сумму final_price всех позиций заказа.
func SumItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.FinalPrice)
	}
	return total
}
