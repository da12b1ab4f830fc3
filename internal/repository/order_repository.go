package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/binaryblade24/marketplace-backend/internal/models"
	"github.com/binaryblade24/marketplace-backend/internal/pkg/apperror"
)

// ItemSpec описывает одну позицию при создании заказа: какой gig и какой тариф.
type ItemSpec struct {
	ProjectID uuid.UUID
	Tier      string
}

type OrderRepository struct {
	db *sqlx.DB
}

func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateWithItems создаёт заказ вместе с позициями в одной транзакции.
// Если хоть один проект не найден или не является gig, транзакция
// откатывается целиком: пустой заказ в базе не остаётся.
func (r *OrderRepository) CreateWithItems(ctx context.Context, clientID uuid.UUID, specs []ItemSpec) (*models.Order, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	order := &models.Order{
		OrderNumber: models.NewOrderNumber(time.Now()),
		ClientID:    clientID,
		Status:      models.OrderStatusPending,
		TotalAmount: decimal.Zero,
	}

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO orders (order_number, client_id, status, total_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, order.OrderNumber, order.ClientID, order.Status, order.TotalAmount).
		Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("order repository: create order %w", err)
	}

	for _, spec := range specs {
		var project models.Project
		err = tx.GetContext(ctx, &project, `SELECT * FROM projects WHERE id = $1`, spec.ProjectID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, apperror.Wrap(err, apperror.ErrCodeNotFound,
					fmt.Sprintf("проект %s не найден", spec.ProjectID))
			}
			return nil, fmt.Errorf("order repository: load project %w", err)
		}
		if !project.IsGig() {
			return nil, apperror.New(apperror.ErrCodeValidation,
				fmt.Sprintf("проект %s не является gig и не может быть куплен", spec.ProjectID))
		}

		// Тариф валидируется на границе; здесь остаётся лишь формальная
		// проверка закрытого перечисления.
		multiplier, ok := models.TierMultiplier(spec.Tier)
		if !ok {
			return nil, apperror.New(apperror.ErrCodeValidation,
				fmt.Sprintf("неизвестный тариф %q", spec.Tier))
		}

		item := models.OrderItem{
			OrderID:        order.ID,
			ProjectID:      project.ID,
			FreelancerID:   project.OwnerID,
			Tier:           spec.Tier,
			BasePrice:      project.Budget,
			TierMultiplier: multiplier,
			FinalPrice:     project.Budget.Mul(multiplier),
		}

		err = tx.QueryRowxContext(ctx, `
			INSERT INTO order_items (order_id, project_id, freelancer_id, tier, base_price, tier_multiplier, final_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at
		`, item.OrderID, item.ProjectID, item.FreelancerID, item.Tier,
			item.BasePrice, item.TierMultiplier, item.FinalPrice).
			Scan(&item.ID, &item.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("order repository: create item %w", err)
		}

		order.Items = append(order.Items, item)
	}

	// total_amount — инвариант: всегда сумма final_price позиций.
	order.TotalAmount = models.SumItems(order.Items)
	_, err = tx.ExecContext(ctx, `UPDATE orders SET total_amount = $2, updated_at = NOW() WHERE id = $1`,
		order.ID, order.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("order repository: update total %w", err)
	}

	return order, tx.Commit()
}

// GetByID возвращает заказ без позиций.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.GetContext(ctx, &order, `SELECT * FROM orders WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrOrderNotFound
		}
		return nil, fmt.Errorf("order repository: get by id %w", err)
	}
	return &order, nil
}

// GetByIDWithItems возвращает заказ вместе с позициями.
func (r *OrderRepository) GetByIDWithItems(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := r.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

// ListItems возвращает позиции заказа.
func (r *OrderRepository) ListItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.SelectContext(ctx, &items,
		`SELECT * FROM order_items WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("order repository: list items %w", err)
	}
	return items, nil
}

// ListByUser возвращает заказы, где пользователь является клиентом либо
// фрилансером хотя бы одной позиции.
func (r *OrderRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.SelectContext(ctx, &orders, `
		SELECT DISTINCT o.* FROM orders o
		LEFT JOIN order_items i ON i.order_id = o.id
		WHERE o.client_id = $1 OR i.freelancer_id = $1
		ORDER BY o.created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("order repository: list by user %w", err)
	}
	return orders, nil
}

// RecomputeTotal пересчитывает total_amount как сумму позиций.
// Идемпотентна: безопасно вызывать после любой мутации позиций.
func (r *OrderRepository) RecomputeTotal(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRowxContext(ctx, `
		UPDATE orders SET
			total_amount = (SELECT COALESCE(SUM(final_price), 0) FROM order_items WHERE order_id = $1),
			updated_at = NOW()
		WHERE id = $1
		RETURNING total_amount
	`, orderID).Scan(&total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, apperror.ErrOrderNotFound
		}
		return decimal.Zero, fmt.Errorf("order repository: recompute total %w", err)
	}
	return total, nil
}
