package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/binaryblade24/marketplace-backend/internal/goroutine"
	"github.com/binaryblade24/marketplace-backend/internal/logger"
	"github.com/binaryblade24/marketplace-backend/internal/models"
	"github.com/binaryblade24/marketplace-backend/internal/pkg/apperror"
	"github.com/binaryblade24/marketplace-backend/internal/repository"
)

// ProposalRepository описывает взаимодействие сервиса с хранилищем откликов.
type ProposalRepository interface {
	Create(ctx context.Context, proposal *models.Proposal) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Proposal, error)
	ListByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.Proposal, error)
	Reject(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	AcceptProposal(ctx context.Context, proposalID uuid.UUID) (*repository.AcceptResult, error)
}

// ProjectGetter отдаёт проект для проверок на стороне сервиса откликов.
type ProjectGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
}

// ProposalService содержит бизнес-логику откликов на job-проекты:
// подачу, рассмотрение и атомарное принятие с удержанием оплаты.
type ProposalService struct {
	repo     ProposalRepository
	projects ProjectGetter
	hub      WSNotifier
}

// NewProposalService создаёт новый сервис откликов.
func NewProposalService(repo ProposalRepository, projects ProjectGetter) *ProposalService {
	return &ProposalService{repo: repo, projects: projects}
}

// SetHub устанавливает WebSocket hub для отправки уведомлений.
func (s *ProposalService) SetHub(hub WSNotifier) {
	s.hub = hub
}

// CreateProposalInput описывает отклик фрилансера.
type CreateProposalInput struct {
	ProjectID    uuid.UUID
	FreelancerID uuid.UUID
	Role         string
	CoverLetter  string
}

// CreateProposal создаёт отклик на открытый job-проект. Ставка равна
// бюджету проекта. Повторный отклик того же фрилансера отклоняется.
func (s *ProposalService) CreateProposal(ctx context.Context, in CreateProposalInput) (*models.Proposal, error) {
	if in.Role != models.RoleFreelancer {
		return nil, apperror.New(apperror.ErrCodeForbidden, "откликаться могут только фрилансеры")
	}
	if strings.TrimSpace(in.CoverLetter) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "сопроводительное письмо обязательно")
	}

	project, err := s.projects.GetByID(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	if !project.IsJob() {
		return nil, apperror.New(apperror.ErrCodeValidation, "откликаться можно только на job-проекты")
	}
	if project.Status != models.ProjectStatusOpen {
		return nil, apperror.ErrProjectNotOpen
	}
	if project.IsOwnedBy(in.FreelancerID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "нельзя откликнуться на собственный проект")
	}

	proposal := &models.Proposal{
		ProjectID:    in.ProjectID,
		FreelancerID: in.FreelancerID,
		CoverLetter:  strings.TrimSpace(in.CoverLetter),
		BidAmount:    project.Budget,
	}
	if err := s.repo.Create(ctx, proposal); err != nil {
		return nil, err
	}

	return proposal, nil
}

// UpdateStatus рассматривает отклик: владелец проекта принимает
// или отклоняет его. Принятие атомарно переводит проект в работу,
// удерживает оплату и отклоняет конкурирующие отклики.
func (s *ProposalService) UpdateStatus(ctx context.Context, userID, proposalID uuid.UUID, status string) (*models.Proposal, error) {
	proposal, err := s.repo.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	project, err := s.projects.GetByID(ctx, proposal.ProjectID)
	if err != nil {
		return nil, err
	}
	if !project.IsOwnedBy(userID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "рассматривать отклики может только владелец проекта")
	}

	switch status {
	case models.ProposalStatusAccepted:
		result, err := s.repo.AcceptProposal(ctx, proposalID)
		if err != nil {
			return nil, err
		}
		s.notifyAccept(result)
		return result.Proposal, nil

	case models.ProposalStatusRejected:
		rejected, err := s.repo.Reject(ctx, proposalID)
		if err != nil {
			return nil, err
		}
		s.notify(rejected.FreelancerID, models.EventProposalRejected, map[string]interface{}{
			"proposal_id": rejected.ID,
			"project_id":  rejected.ProjectID,
		})
		return rejected, nil

	default:
		return nil, apperror.New(apperror.ErrCodeValidation, "статус должен быть accepted или rejected")
	}
}

// GetProposal возвращает отклик. Доступен автору и владельцу проекта.
func (s *ProposalService) GetProposal(ctx context.Context, userID, proposalID uuid.UUID) (*models.Proposal, error) {
	proposal, err := s.repo.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.IsOwnedBy(userID) {
		return proposal, nil
	}

	project, err := s.projects.GetByID(ctx, proposal.ProjectID)
	if err != nil {
		return nil, err
	}
	if !project.IsOwnedBy(userID) {
		return nil, apperror.ErrForbidden
	}
	return proposal, nil
}

// ListByProject возвращает отклики проекта его владельцу.
func (s *ProposalService) ListByProject(ctx context.Context, userID, projectID uuid.UUID) ([]models.Proposal, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.IsOwnedBy(userID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "отклики видит только владелец проекта")
	}
	return s.repo.ListByProject(ctx, projectID)
}

// ListMy возвращает отклики текущего фрилансера.
func (s *ProposalService) ListMy(ctx context.Context, freelancerID uuid.UUID) ([]models.Proposal, error) {
	return s.repo.ListByFreelancer(ctx, freelancerID)
}

// notifyAccept рассылает уведомления по итогам принятия отклика:
// победителю, а также всем авторам отклонённых откликов.
func (s *ProposalService) notifyAccept(result *repository.AcceptResult) {
	s.notify(result.Proposal.FreelancerID, models.EventProposalAccepted, map[string]interface{}{
		"proposal_id":     result.Proposal.ID,
		"project_id":      result.Project.ID,
		"project_title":   result.Project.Title,
		"conversation_id": result.ConversationID,
	})
	for _, rejected := range result.RejectedProposals {
		s.notify(rejected.FreelancerID, models.EventProposalRejected, map[string]interface{}{
			"proposal_id": rejected.ID,
			"project_id":  rejected.ProjectID,
		})
	}
}

func (s *ProposalService) notify(userID uuid.UUID, event string, data map[string]interface{}) {
	if s.hub == nil {
		return
	}
	goroutine.SafeGo(func() {
		if err := s.hub.BroadcastToUser(userID, event, data); err != nil {
			logger.Log.WithError(err).WithField("event", event).Warn("не удалось отправить уведомление")
		}
	})
}
