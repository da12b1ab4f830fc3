package service

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/binaryblade24/marketplace-backend/internal/logger"
	"github.com/binaryblade24/marketplace-backend/internal/models"
	"github.com/binaryblade24/marketplace-backend/internal/pkg/apperror"
	"github.com/binaryblade24/marketplace-backend/internal/repository"
)

func TestMain(m *testing.M) {
	logger.Init("error")
	os.Exit(m.Run())
}

type mockOrderRepo struct {
	mock.Mock
}

func (m *mockOrderRepo) CreateWithItems(ctx context.Context, clientID uuid.UUID, specs []repository.ItemSpec) (*models.Order, error) {
	args := m.Called(ctx, clientID, specs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *mockOrderRepo) GetByIDWithItems(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *mockOrderRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Order), args.Error(1)
}

type mockEscrowRepo struct {
	mock.Mock
}

func (m *mockEscrowRepo) MarkPaid(ctx context.Context, orderID uuid.UUID) (*models.Order, *models.Escrow, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.Order), args.Get(1).(*models.Escrow), args.Error(2)
}

func (m *mockEscrowRepo) ReleaseAndComplete(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *mockEscrowRepo) RefundAndMark(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *mockEscrowRepo) CancelPending(ctx context.Context, orderID uuid.UUID) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *mockEscrowRepo) CancelOrphanPaid(ctx context.Context, orderID uuid.UUID) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *mockEscrowRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *mockEscrowRepo) ListLedgerEntries(ctx context.Context, escrowID uuid.UUID) ([]models.LedgerEntry, error) {
	args := m.Called(ctx, escrowID)
	return args.Get(0).([]models.LedgerEntry), args.Error(1)
}

func newOrderService() (*OrderService, *mockOrderRepo, *mockEscrowRepo) {
	repo := new(mockOrderRepo)
	escrow := new(mockEscrowRepo)
	return NewOrderService(repo, escrow), repo, escrow
}

func TestOrderService_CreateOrder_Success(t *testing.T) {
	svc, repo, _ := newOrderService()
	ctx := context.Background()
	clientID := uuid.New()
	projectID := uuid.New()

	expected := &models.Order{ID: uuid.New(), ClientID: clientID, TotalAmount: decimal.NewFromFloat(150)}
	repo.On("CreateWithItems", ctx, clientID, []repository.ItemSpec{{ProjectID: projectID, Tier: models.TierMedium}}).
		Return(expected, nil)

	order, err := svc.CreateOrder(ctx, clientID, models.RoleClient, []OrderItemInput{{ProjectID: projectID, Tier: models.TierMedium}})
	assert.NoError(t, err)
	assert.Equal(t, expected, order)
	repo.AssertExpectations(t)
}

func TestOrderService_CreateOrder_FreelancerForbidden(t *testing.T) {
	svc, repo, _ := newOrderService()

	_, err := svc.CreateOrder(context.Background(), uuid.New(), models.RoleFreelancer,
		[]OrderItemInput{{ProjectID: uuid.New(), Tier: models.TierSimple}})
	assert.True(t, apperror.IsForbidden(err))
	repo.AssertNotCalled(t, "CreateWithItems")
}

func TestOrderService_CreateOrder_EmptyItems(t *testing.T) {
	svc, _, _ := newOrderService()

	_, err := svc.CreateOrder(context.Background(), uuid.New(), models.RoleClient, nil)
	assert.True(t, apperror.IsValidation(err))
}

func TestOrderService_CreateOrder_UnknownTier(t *testing.T) {
	svc, repo, _ := newOrderService()

	_, err := svc.CreateOrder(context.Background(), uuid.New(), models.RoleClient,
		[]OrderItemInput{{ProjectID: uuid.New(), Tier: "premium"}})
	assert.True(t, apperror.IsValidation(err))
	repo.AssertNotCalled(t, "CreateWithItems")
}

func TestOrderService_MarkPaid_Success(t *testing.T) {
	svc, repo, escrow := newOrderService()
	ctx := context.Background()
	clientID := uuid.New()
	orderID := uuid.New()

	order := &models.Order{ID: orderID, ClientID: clientID, Status: models.OrderStatusPending,
		TotalAmount: decimal.NewFromFloat(200)}
	repo.On("GetByIDWithItems", ctx, orderID).Return(order, nil)

	paid := &models.Order{ID: orderID, ClientID: clientID, Status: models.OrderStatusPaid,
		TotalAmount: decimal.NewFromFloat(200)}
	held := &models.Escrow{ID: uuid.New(), OrderID: orderID, Status: models.HeldStatusHeld,
		Amount: decimal.NewFromFloat(200)}
	escrow.On("MarkPaid", ctx, orderID).Return(paid, held, nil)

	gotOrder, gotEscrow, err := svc.MarkPaid(ctx, clientID, orderID)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, gotOrder.Status)
	assert.Equal(t, models.HeldStatusHeld, gotEscrow.Status)
	assert.True(t, paid.TotalAmount.Equal(gotEscrow.Amount))
	escrow.AssertExpectations(t)
}

func TestOrderService_MarkPaid_NotOwner(t *testing.T) {
	svc, repo, escrow := newOrderService()
	ctx := context.Background()
	orderID := uuid.New()

	order := &models.Order{ID: orderID, ClientID: uuid.New(), Status: models.OrderStatusPending}
	repo.On("GetByIDWithItems", ctx, orderID).Return(order, nil)

	_, _, err := svc.MarkPaid(ctx, uuid.New(), orderID)
	assert.True(t, apperror.IsForbidden(err))
	escrow.AssertNotCalled(t, "MarkPaid")
}

func TestOrderService_ReleasePayment_SecondCallConflicts(t *testing.T) {
	svc, repo, escrow := newOrderService()
	ctx := context.Background()
	clientID := uuid.New()
	orderID := uuid.New()

	order := &models.Order{ID: orderID, ClientID: clientID, Status: models.OrderStatusPaid}
	repo.On("GetByIDWithItems", ctx, orderID).Return(order, nil)

	released := &models.Escrow{ID: uuid.New(), OrderID: orderID, Status: models.HeldStatusReleased}
	escrow.On("ReleaseAndComplete", ctx, orderID).
		Return(released, nil).Once()
	escrow.On("ReleaseAndComplete", ctx, orderID).
		Return(nil, apperror.New(apperror.ErrCodeInvalidTransition, "средства уже освобождены или возвращены")).Once()

	first, err := svc.ReleasePayment(ctx, clientID, orderID)
	assert.NoError(t, err)
	assert.Equal(t, models.HeldStatusReleased, first.Status)

	_, err = svc.ReleasePayment(ctx, clientID, orderID)
	assert.True(t, apperror.IsInvalidTransition(err))
	escrow.AssertExpectations(t)
}

func TestOrderService_CancelOrder_Pending(t *testing.T) {
	svc, repo, escrow := newOrderService()
	ctx := context.Background()
	clientID := uuid.New()
	orderID := uuid.New()

	pending := &models.Order{ID: orderID, ClientID: clientID, Status: models.OrderStatusPending}
	cancelled := &models.Order{ID: orderID, ClientID: clientID, Status: models.OrderStatusCancelled}
	repo.On("GetByIDWithItems", ctx, orderID).Return(pending, nil).Once()
	escrow.On("CancelPending", ctx, orderID).Return(nil)
	repo.On("GetByIDWithItems", ctx, orderID).Return(cancelled, nil).Once()

	order, err := svc.CancelOrder(ctx, clientID, orderID)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)
	escrow.AssertNotCalled(t, "RefundAndMark")
}

func TestOrderService_CancelOrder_PaidRefunds(t *testing.T) {
	svc, repo, escrow := newOrderService()
	ctx := context.Background()
	clientID := uuid.New()
	orderID := uuid.New()

	paid := &models.Order{ID: orderID, ClientID: clientID, Status: models.OrderStatusPaid,
		TotalAmount: decimal.NewFromFloat(300)}
	refunded := &models.Order{ID: orderID, ClientID: clientID, Status: models.OrderStatusRefunded}
	repo.On("GetByIDWithItems", ctx, orderID).Return(paid, nil).Once()

	held := &models.Escrow{ID: uuid.New(), OrderID: orderID, Status: models.HeldStatusHeld}
	escrow.On("GetByOrderID", ctx, orderID).Return(held, nil)
	escrow.On("RefundAndMark", ctx, orderID).
		Return(&models.Escrow{ID: held.ID, OrderID: orderID, Status: models.HeldStatusRefunded}, nil)
	repo.On("GetByIDWithItems", ctx, orderID).Return(refunded, nil).Once()

	order, err := svc.CancelOrder(ctx, clientID, orderID)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusRefunded, order.Status)
	escrow.AssertExpectations(t)
}

func TestOrderService_CancelOrder_PaidWithoutEscrow(t *testing.T) {
	svc, repo, escrow := newOrderService()
	ctx := context.Background()
	clientID := uuid.New()
	orderID := uuid.New()

	paid := &models.Order{ID: orderID, ClientID: clientID, Status: models.OrderStatusPaid}
	cancelled := &models.Order{ID: orderID, ClientID: clientID, Status: models.OrderStatusCancelled}
	repo.On("GetByIDWithItems", ctx, orderID).Return(paid, nil).Once()
	escrow.On("GetByOrderID", ctx, orderID).Return(nil, apperror.ErrEscrowNotFound)
	escrow.On("CancelOrphanPaid", ctx, orderID).Return(nil)
	repo.On("GetByIDWithItems", ctx, orderID).Return(cancelled, nil).Once()

	order, err := svc.CancelOrder(ctx, clientID, orderID)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)
	escrow.AssertNotCalled(t, "RefundAndMark")
	escrow.AssertExpectations(t)
}

func TestOrderService_CancelOrder_FreelancerParty(t *testing.T) {
	svc, repo, escrow := newOrderService()
	ctx := context.Background()
	freelancerID := uuid.New()
	orderID := uuid.New()

	pending := &models.Order{ID: orderID, ClientID: uuid.New(), Status: models.OrderStatusPending,
		Items: []models.OrderItem{{FreelancerID: freelancerID}}}
	cancelled := &models.Order{ID: orderID, ClientID: pending.ClientID, Status: models.OrderStatusCancelled}
	repo.On("GetByIDWithItems", ctx, orderID).Return(pending, nil).Once()
	escrow.On("CancelPending", ctx, orderID).Return(nil)
	repo.On("GetByIDWithItems", ctx, orderID).Return(cancelled, nil).Once()

	order, err := svc.CancelOrder(ctx, freelancerID, orderID)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)
}

func TestOrderService_CancelOrder_StrangerForbidden(t *testing.T) {
	svc, repo, escrow := newOrderService()
	ctx := context.Background()
	orderID := uuid.New()

	pending := &models.Order{ID: orderID, ClientID: uuid.New(), Status: models.OrderStatusPending,
		Items: []models.OrderItem{{FreelancerID: uuid.New()}}}
	repo.On("GetByIDWithItems", ctx, orderID).Return(pending, nil)

	_, err := svc.CancelOrder(ctx, uuid.New(), orderID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	escrow.AssertNotCalled(t, "CancelPending")
}

func TestOrderService_CancelOrder_Completed(t *testing.T) {
	svc, repo, escrow := newOrderService()
	ctx := context.Background()
	clientID := uuid.New()
	orderID := uuid.New()

	done := &models.Order{ID: orderID, ClientID: clientID, Status: models.OrderStatusCompleted}
	repo.On("GetByIDWithItems", ctx, orderID).Return(done, nil)

	_, err := svc.CancelOrder(ctx, clientID, orderID)
	assert.True(t, apperror.IsInvalidTransition(err))
	escrow.AssertNotCalled(t, "CancelPending")
	escrow.AssertNotCalled(t, "RefundAndMark")
}

func TestOrderService_GetOrder_PartyOnly(t *testing.T) {
	svc, repo, _ := newOrderService()
	ctx := context.Background()
	clientID := uuid.New()
	freelancerID := uuid.New()
	orderID := uuid.New()

	order := &models.Order{ID: orderID, ClientID: clientID, Items: []models.OrderItem{
		{FreelancerID: freelancerID},
	}}
	repo.On("GetByIDWithItems", ctx, orderID).Return(order, nil)

	_, err := svc.GetOrder(ctx, clientID, orderID)
	assert.NoError(t, err)

	_, err = svc.GetOrder(ctx, freelancerID, orderID)
	assert.NoError(t, err)

	_, err = svc.GetOrder(ctx, uuid.New(), orderID)
	assert.True(t, apperror.IsForbidden(err))
}
