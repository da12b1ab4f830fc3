package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/binaryblade24/marketplace-backend/internal/goroutine"
	"github.com/binaryblade24/marketplace-backend/internal/logger"
	"github.com/binaryblade24/marketplace-backend/internal/models"
	"github.com/binaryblade24/marketplace-backend/internal/pkg/apperror"
	"github.com/binaryblade24/marketplace-backend/internal/repository"
)

// WSNotifier интерфейс для отправки WebSocket уведомлений.
type WSNotifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data interface{}) error
}

// OrderRepository описывает взаимодействие сервиса с хранилищем заказов.
type OrderRepository interface {
	CreateWithItems(ctx context.Context, clientID uuid.UUID, specs []repository.ItemSpec) (*models.Order, error)
	GetByIDWithItems(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error)
}

// EscrowRepository описывает операции над удержанными средствами заказа.
type EscrowRepository interface {
	MarkPaid(ctx context.Context, orderID uuid.UUID) (*models.Order, *models.Escrow, error)
	ReleaseAndComplete(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error)
	RefundAndMark(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error)
	CancelPending(ctx context.Context, orderID uuid.UUID) error
	CancelOrphanPaid(ctx context.Context, orderID uuid.UUID) error
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error)
	ListLedgerEntries(ctx context.Context, escrowID uuid.UUID) ([]models.LedgerEntry, error)
}

// OrderService содержит бизнес-логику покупки gig-проектов:
// создание заказа, оплату с удержанием средств, release и отмену.
type OrderService struct {
	repo   OrderRepository
	escrow EscrowRepository
	hub    WSNotifier
}

// NewOrderService создаёт новый сервис заказов.
func NewOrderService(repo OrderRepository, escrow EscrowRepository) *OrderService {
	return &OrderService{repo: repo, escrow: escrow}
}

// SetHub устанавливает WebSocket hub для отправки уведомлений.
func (s *OrderService) SetHub(hub WSNotifier) {
	s.hub = hub
}

// OrderItemInput описывает одну позицию при создании заказа.
type OrderItemInput struct {
	ProjectID uuid.UUID
	Tier      string
}

// CreateOrder создаёт заказ на один или несколько gig-проектов.
// Тарифы проверяются до обращения к базе: заказ с неизвестным тарифом
// не создаётся даже частично.
func (s *OrderService) CreateOrder(ctx context.Context, clientID uuid.UUID, role string, items []OrderItemInput) (*models.Order, error) {
	if role != models.RoleClient {
		return nil, apperror.New(apperror.ErrCodeForbidden, "заказы могут создавать только клиенты")
	}
	if len(items) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "заказ должен содержать хотя бы одну позицию")
	}

	specs := make([]repository.ItemSpec, 0, len(items))
	for _, item := range items {
		if item.ProjectID == uuid.Nil {
			return nil, apperror.New(apperror.ErrCodeValidation, "не указан проект позиции")
		}
		if _, ok := models.TierMultiplier(item.Tier); !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, "тариф должен быть simple, medium или expert")
		}
		specs = append(specs, repository.ItemSpec{ProjectID: item.ProjectID, Tier: item.Tier})
	}

	return s.repo.CreateWithItems(ctx, clientID, specs)
}

// GetOrder возвращает заказ с позициями. Доступен только сторонам заказа:
// клиенту либо фрилансеру одной из позиций.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.GetByIDWithItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !s.isParty(order, userID) {
		return nil, apperror.ErrForbidden
	}
	return order, nil
}

// ListMyOrders возвращает заказы пользователя с обеих сторон сделки.
func (s *OrderService) ListMyOrders(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// MarkPaid фиксирует оплату заказа: pending → paid, средства уходят
// в escrow на полную сумму заказа. Фрилансеры позиций получают уведомление.
func (s *OrderService) MarkPaid(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, *models.Escrow, error) {
	order, err := s.repo.GetByIDWithItems(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order.ClientID != userID {
		return nil, nil, apperror.ErrForbidden
	}

	paid, escrow, err := s.escrow.MarkPaid(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	paid.Items = order.Items

	s.notifyFreelancers(order.Items, models.EventOrderPaid, map[string]interface{}{
		"order_id":     paid.ID,
		"order_number": paid.OrderNumber,
	})

	return paid, escrow, nil
}

// ReleasePayment освобождает средства escrow фрилансерам и завершает заказ.
// Доступно только клиенту заказа. Повторный вызов получает конфликт:
// машина состояний удержания монотонна.
func (s *OrderService) ReleasePayment(ctx context.Context, userID, orderID uuid.UUID) (*models.Escrow, error) {
	order, err := s.repo.GetByIDWithItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ClientID != userID {
		return nil, apperror.ErrForbidden
	}

	escrow, err := s.escrow.ReleaseAndComplete(ctx, orderID)
	if err != nil {
		return nil, err
	}

	for freelancerID, amount := range itemTotals(order.Items) {
		s.notify(freelancerID, models.EventEscrowReleased, map[string]interface{}{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
			"amount":       amount,
		})
	}

	return escrow, nil
}

// CancelOrder отменяет заказ. Доступен обеим сторонам: клиенту и
// фрилансеру любой из позиций. Маршрут зависит от текущего состояния:
// неоплаченный заказ просто отменяется, оплаченный возвращает средства
// клиенту через refund, а оплаченный заказ без escrow отменяется
// защитным путём с записью в журнал для ручной сверки.
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.GetByIDWithItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !s.isParty(order, userID) {
		return nil, apperror.ErrForbidden
	}

	switch order.Status {
	case models.OrderStatusPending:
		if err := s.escrow.CancelPending(ctx, orderID); err != nil {
			return nil, err
		}
		s.notifyFreelancers(order.Items, models.EventOrderCancelled, map[string]interface{}{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
		})

	case models.OrderStatusPaid, models.OrderStatusInProgress:
		_, err := s.escrow.GetByOrderID(ctx, orderID)
		switch {
		case err == nil:
			if _, err := s.escrow.RefundAndMark(ctx, orderID); err != nil {
				return nil, err
			}
			s.notify(order.ClientID, models.EventEscrowRefunded, map[string]interface{}{
				"order_id":     order.ID,
				"order_number": order.OrderNumber,
				"amount":       order.TotalAmount,
			})
			s.notifyFreelancers(order.Items, models.EventOrderCancelled, map[string]interface{}{
				"order_id":     order.ID,
				"order_number": order.OrderNumber,
			})
		case apperror.IsNotFound(err):
			// Оплаченный заказ без escrow: при корректной работе сюда
			// попасть нельзя. Отменяем и оставляем след для ручной сверки.
			logger.Log.WithField("order_id", orderID).
				Warn("оплаченный заказ без escrow, отмена требует ручной сверки средств")
			if err := s.escrow.CancelOrphanPaid(ctx, orderID); err != nil {
				return nil, err
			}
		default:
			return nil, err
		}

	default:
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "заказ нельзя отменить в текущем статусе")
	}

	return s.repo.GetByIDWithItems(ctx, orderID)
}

// GetEscrow возвращает escrow заказа вместе с записями зачислений.
// Доступен сторонам заказа.
func (s *OrderService) GetEscrow(ctx context.Context, userID, orderID uuid.UUID) (*models.Escrow, []models.LedgerEntry, error) {
	order, err := s.repo.GetByIDWithItems(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if !s.isParty(order, userID) {
		return nil, nil, apperror.ErrForbidden
	}

	escrow, err := s.escrow.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	entries, err := s.escrow.ListLedgerEntries(ctx, escrow.ID)
	if err != nil {
		return nil, nil, err
	}
	return escrow, entries, nil
}

// isParty проверяет причастность пользователя к заказу.
func (s *OrderService) isParty(order *models.Order, userID uuid.UUID) bool {
	if order.ClientID == userID {
		return true
	}
	for _, item := range order.Items {
		if item.FreelancerID == userID {
			return true
		}
	}
	return false
}

// itemTotals агрегирует суммы позиций по фрилансерам.
func itemTotals(items []models.OrderItem) map[uuid.UUID]decimal.Decimal {
	totals := make(map[uuid.UUID]decimal.Decimal)
	for _, item := range items {
		totals[item.FreelancerID] = totals[item.FreelancerID].Add(item.FinalPrice)
	}
	return totals
}

// notify отправляет уведомление пользователю после фиксации изменений.
// Сбой доставки не влияет на результат операции.
func (s *OrderService) notify(userID uuid.UUID, event string, data map[string]interface{}) {
	if s.hub == nil {
		return
	}
	goroutine.SafeGo(func() {
		if err := s.hub.BroadcastToUser(userID, event, data); err != nil {
			logger.Log.WithError(err).WithField("event", event).Warn("не удалось отправить уведомление")
		}
	})
}

// notifyFreelancers уведомляет каждого фрилансера из позиций по одному разу.
func (s *OrderService) notifyFreelancers(items []models.OrderItem, event string, data map[string]interface{}) {
	seen := make(map[uuid.UUID]struct{})
	for _, item := range items {
		if _, ok := seen[item.FreelancerID]; ok {
			continue
		}
		seen[item.FreelancerID] = struct{}{}
		s.notify(item.FreelancerID, event, data)
	}
}
