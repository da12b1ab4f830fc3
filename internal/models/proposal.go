package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Proposal представляет отклик фрилансера на job-проект.
// Ставка фиксирована и равна бюджету проекта: торг не предусмотрен.
// Пара (project_id, freelancer_id) уникальна на уровне БД.
type Proposal struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	ProjectID    uuid.UUID       `db:"project_id" json:"project_id"`
	FreelancerID uuid.UUID       `db:"freelancer_id" json:"freelancer_id"`
	CoverLetter  string          `db:"cover_letter" json:"cover_letter"`
	BidAmount    decimal.Decimal `db:"bid_amount" json:"bid_amount"`
	Status       string          `db:"status" json:"status"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// IsPending возвращает true, пока предложение не рассмотрено.
func (p *Proposal) IsPending() bool {
	return p.Status == ProposalStatusPending
}

// IsOwnedBy проверяет автора предложения.
func (p *Proposal) IsOwnedBy(userID uuid.UUID) bool {
	return p.FreelancerID == userID
}
