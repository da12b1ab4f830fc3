package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/binaryblade24/marketplace-backend/internal/models"
	"github.com/binaryblade24/marketplace-backend/internal/pkg/apperror"
)

// PaymentRepository описывает взаимодействие сервиса с хранилищем платежей.
type PaymentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetByProjectID(ctx context.Context, projectID uuid.UUID) (*models.Payment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error)
}

// PaymentService отдаёт историю платежей job-сценария.
// Переходы статусов платежа выполняются сервисами проектов и откликов,
// здесь остаются только чтения.
type PaymentService struct {
	repo     PaymentRepository
	projects ProjectGetter
}

// NewPaymentService создаёт новый сервис платежей.
func NewPaymentService(repo PaymentRepository, projects ProjectGetter) *PaymentService {
	return &PaymentService{repo: repo, projects: projects}
}

// ListMyPayments возвращает платежи текущего пользователя.
func (s *PaymentService) ListMyPayments(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	return s.repo.ListByUser(ctx, userID)
}

// GetByProject возвращает платёж по проекту. Доступен плательщику
// и владельцу проекта.
func (s *PaymentService) GetByProject(ctx context.Context, userID, projectID uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.GetByProjectID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if payment.UserID == userID {
		return payment, nil
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.IsOwnedBy(userID) {
		return nil, apperror.ErrForbidden
	}
	return payment, nil
}
