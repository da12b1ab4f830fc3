package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/binaryblade24/marketplace-backend/internal/models"
	"github.com/binaryblade24/marketplace-backend/internal/pkg/apperror"
	"github.com/binaryblade24/marketplace-backend/internal/repository"
)

type mockProjectRepo struct {
	mock.Mock
}

func (m *mockProjectRepo) Create(ctx context.Context, project *models.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *mockProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *mockProjectRepo) List(ctx context.Context, filter repository.ProjectFilter) ([]models.Project, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Project), args.Error(1)
}

func (m *mockProjectRepo) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

type mockProjectPayments struct {
	mock.Mock
}

func (m *mockProjectPayments) CompleteProjectAndRelease(ctx context.Context, projectID uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func newProjectService() (*ProjectService, *mockProjectRepo, *mockProjectPayments, *mockProposalRepo) {
	repo := new(mockProjectRepo)
	payments := new(mockProjectPayments)
	proposals := new(mockProposalRepo)
	return NewProjectService(repo, payments, proposals), repo, payments, proposals
}

func TestProjectService_CreateProject_RoleRules(t *testing.T) {
	svc, repo, _, _ := newProjectService()
	ctx := context.Background()

	repo.On("Create", ctx, mock.MatchedBy(func(p *models.Project) bool {
		return p.Status == models.ProjectStatusOpen && p.ProjectType == models.ProjectTypeGig
	})).Return(nil).Once()

	_, err := svc.CreateProject(ctx, CreateProjectInput{
		OwnerID:     uuid.New(),
		Role:        models.RoleFreelancer,
		Title:       "Логотип за день",
		Budget:      decimal.NewFromFloat(100),
		ProjectType: models.ProjectTypeGig,
	})
	assert.NoError(t, err)

	_, err = svc.CreateProject(ctx, CreateProjectInput{
		OwnerID:     uuid.New(),
		Role:        models.RoleClient,
		Title:       "Логотип за день",
		Budget:      decimal.NewFromFloat(100),
		ProjectType: models.ProjectTypeGig,
	})
	assert.True(t, apperror.IsForbidden(err))

	_, err = svc.CreateProject(ctx, CreateProjectInput{
		OwnerID:     uuid.New(),
		Role:        models.RoleFreelancer,
		Title:       "Нужен сайт",
		Budget:      decimal.NewFromFloat(1000),
		ProjectType: models.ProjectTypeJob,
	})
	assert.True(t, apperror.IsForbidden(err))
	repo.AssertExpectations(t)
}

func TestProjectService_CreateProject_Validation(t *testing.T) {
	svc, repo, _, _ := newProjectService()
	ctx := context.Background()

	_, err := svc.CreateProject(ctx, CreateProjectInput{
		OwnerID: uuid.New(), Role: models.RoleClient, Title: "  ",
		Budget: decimal.NewFromFloat(100), ProjectType: models.ProjectTypeJob,
	})
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.CreateProject(ctx, CreateProjectInput{
		OwnerID: uuid.New(), Role: models.RoleClient, Title: "Нужен сайт",
		Budget: decimal.Zero, ProjectType: models.ProjectTypeJob,
	})
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.CreateProject(ctx, CreateProjectInput{
		OwnerID: uuid.New(), Role: models.RoleClient, Title: "Нужен сайт",
		Budget: decimal.NewFromFloat(100), ProjectType: "contest",
	})
	assert.True(t, apperror.IsValidation(err))
	repo.AssertNotCalled(t, "Create")
}

func TestProjectService_ListProjects_ClampsLimit(t *testing.T) {
	svc, repo, _, _ := newProjectService()
	ctx := context.Background()

	repo.On("List", ctx, repository.ProjectFilter{Limit: 20}).Return([]models.Project{}, nil)

	_, err := svc.ListProjects(ctx, repository.ProjectFilter{Limit: 500, Offset: -3})
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestProjectService_CompleteProject_OwnerOnly(t *testing.T) {
	svc, repo, payments, _ := newProjectService()
	ctx := context.Background()

	project := openJob(uuid.New())
	project.Status = models.ProjectStatusInProgress
	repo.On("GetByID", ctx, project.ID).Return(project, nil)

	_, err := svc.CompleteProject(ctx, uuid.New(), project.ID)
	assert.True(t, apperror.IsForbidden(err))
	payments.AssertNotCalled(t, "CompleteProjectAndRelease")
}

func TestProjectService_CompleteProject_ReleasesPayment(t *testing.T) {
	svc, repo, payments, proposals := newProjectService()
	ctx := context.Background()
	ownerID := uuid.New()

	project := openJob(ownerID)
	project.Status = models.ProjectStatusInProgress
	repo.On("GetByID", ctx, project.ID).Return(project, nil)

	released := &models.Payment{ID: uuid.New(), Status: models.HeldStatusReleased,
		Amount: project.Budget}
	payments.On("CompleteProjectAndRelease", ctx, project.ID).Return(released, nil)
	proposals.On("GetAcceptedByProject", ctx, project.ID).Return(&models.Proposal{
		ID: uuid.New(), ProjectID: project.ID, FreelancerID: uuid.New(),
		Status: models.ProposalStatusAccepted,
	}, nil)

	payment, err := svc.CompleteProject(ctx, ownerID, project.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.HeldStatusReleased, payment.Status)
	payments.AssertExpectations(t)
}
