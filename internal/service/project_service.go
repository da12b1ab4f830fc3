package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/binaryblade24/marketplace-backend/internal/goroutine"
	"github.com/binaryblade24/marketplace-backend/internal/logger"
	"github.com/binaryblade24/marketplace-backend/internal/models"
	"github.com/binaryblade24/marketplace-backend/internal/pkg/apperror"
	"github.com/binaryblade24/marketplace-backend/internal/repository"
)

// ProjectRepository описывает взаимодействие сервиса с хранилищем проектов.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	List(ctx context.Context, filter repository.ProjectFilter) ([]models.Project, error)
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
}

// ProjectPaymentRepository завершает job-проект с освобождением платежа.
type ProjectPaymentRepository interface {
	CompleteProjectAndRelease(ctx context.Context, projectID uuid.UUID) (*models.Payment, error)
}

// AcceptedProposalGetter отдаёт принятый отклик проекта.
type AcceptedProposalGetter interface {
	GetAcceptedByProject(ctx context.Context, projectID uuid.UUID) (*models.Proposal, error)
}

// ProjectService содержит бизнес-логику каталога проектов.
type ProjectService struct {
	repo      ProjectRepository
	payments  ProjectPaymentRepository
	proposals AcceptedProposalGetter
	hub       WSNotifier
}

// NewProjectService создаёт новый сервис проектов.
func NewProjectService(repo ProjectRepository, payments ProjectPaymentRepository, proposals AcceptedProposalGetter) *ProjectService {
	return &ProjectService{repo: repo, payments: payments, proposals: proposals}
}

// SetHub устанавливает WebSocket hub для отправки уведомлений.
func (s *ProjectService) SetHub(hub WSNotifier) {
	s.hub = hub
}

// CreateProjectInput описывает создаваемый проект.
type CreateProjectInput struct {
	OwnerID     uuid.UUID
	Role        string
	Title       string
	Description string
	Budget      decimal.Decimal
	ProjectType string
}

// CreateProject создаёт gig или job. Gig публикуют фрилансеры,
// job — клиенты.
func (s *ProjectService) CreateProject(ctx context.Context, in CreateProjectInput) (*models.Project, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "заголовок проекта обязателен")
	}
	if !in.Budget.IsPositive() {
		return nil, apperror.New(apperror.ErrCodeValidation, "бюджет должен быть больше нуля")
	}
	if _, ok := models.ValidProjectTypes[in.ProjectType]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "тип проекта должен быть gig или job")
	}
	if in.ProjectType == models.ProjectTypeGig && in.Role != models.RoleFreelancer {
		return nil, apperror.New(apperror.ErrCodeForbidden, "gig может создать только фрилансер")
	}
	if in.ProjectType == models.ProjectTypeJob && in.Role != models.RoleClient {
		return nil, apperror.New(apperror.ErrCodeForbidden, "job может создать только клиент")
	}

	project := &models.Project{
		OwnerID:     in.OwnerID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Budget:      in.Budget,
		Status:      models.ProjectStatusOpen,
		ProjectType: in.ProjectType,
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// GetProject возвращает проект по идентификатору.
func (s *ProjectService) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return s.repo.GetByID(ctx, id)
}

// ListProjects возвращает каталог с фильтрами по типу и статусу.
func (s *ProjectService) ListProjects(ctx context.Context, filter repository.ProjectFilter) ([]models.Project, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}

// DeleteProject удаляет проект владельца. Проект, на который ссылаются
// заказы, защищён от удаления на уровне базы.
func (s *ProjectService) DeleteProject(ctx context.Context, userID, projectID uuid.UUID) error {
	return s.repo.Delete(ctx, projectID, userID)
}

// CompleteProject завершает job-проект и освобождает удержанный платёж
// исполнителю. Доступно владельцу проекта, пока проект в работе.
func (s *ProjectService) CompleteProject(ctx context.Context, userID, projectID uuid.UUID) (*models.Payment, error) {
	project, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.IsOwnedBy(userID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "завершить проект может только владелец")
	}

	payment, err := s.payments.CompleteProjectAndRelease(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if accepted, err := s.proposals.GetAcceptedByProject(ctx, projectID); err == nil {
		s.notifyRelease(accepted.FreelancerID, project, payment)
	}

	return payment, nil
}

func (s *ProjectService) notifyRelease(freelancerID uuid.UUID, project *models.Project, payment *models.Payment) {
	if s.hub == nil {
		return
	}
	goroutine.SafeGo(func() {
		err := s.hub.BroadcastToUser(freelancerID, models.EventEscrowReleased, map[string]interface{}{
			"project_id":    project.ID,
			"project_title": project.Title,
			"amount":        payment.Amount,
		})
		if err != nil {
			logger.Log.WithError(err).Warn("не удалось отправить уведомление о выплате")
		}
	})
}
