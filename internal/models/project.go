package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Project описывает размещённую работу: gig (услуга фрилансера)
// или job (задание клиента).
type Project struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	OwnerID     uuid.UUID       `db:"owner_id" json:"owner_id"`
	Title       string          `db:"title" json:"title"`
	Description string          `db:"description" json:"description"`
	Budget      decimal.Decimal `db:"budget" json:"budget"`
	Status      string          `db:"status" json:"status"`
	ProjectType string          `db:"project_type" json:"project_type"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// IsGig возвращает true для услуги, созданной фрилансером.
func (p *Project) IsGig() bool {
	return p.ProjectType == ProjectTypeGig
}

// IsJob возвращает true для задания, созданного клиентом.
func (p *Project) IsJob() bool {
	return p.ProjectType == ProjectTypeJob
}

// IsOwnedBy проверяет владельца проекта.
func (p *Project) IsOwnedBy(userID uuid.UUID) bool {
	return p.OwnerID == userID
}
