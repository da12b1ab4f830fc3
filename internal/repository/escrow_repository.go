package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/binaryblade24/marketplace-backend/internal/models"
	"github.com/binaryblade24/marketplace-backend/internal/pkg/apperror"
)

// EscrowRepository реализует машину состояний удержания средств по заказу:
// held → released | refunded. Все многосущностные переходы выполняются
// в одной транзакции с условными UPDATE, поэтому гонки двух конкурентных
// запросов разрешаются на уровне базы: проигравший получает типизированную
// ошибку недопустимого перехода, а не второй side effect.
type EscrowRepository struct {
	db *sqlx.DB
}

func NewEscrowRepository(db *sqlx.DB) *EscrowRepository {
	return &EscrowRepository{db: db}
}

// MarkPaid переводит заказ pending → paid и создаёт escrow на сумму заказа.
// Повторное создание escrow исключено: ON CONFLICT DO NOTHING сохраняет
// инвариант "один escrow на заказ".
func (r *EscrowRepository) MarkPaid(ctx context.Context, orderID uuid.UUID) (*models.Order, *models.Escrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var order models.Order
	err = tx.GetContext(ctx, &order, `
		UPDATE orders SET status = $2, paid_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING *
	`, orderID, models.OrderStatusPaid, models.OrderStatusPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, r.classifyOrderConflict(ctx, tx, orderID, "заказ уже оплачен или отменён")
		}
		return nil, nil, fmt.Errorf("escrow repository: mark paid %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO escrow (order_id, amount, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id) DO NOTHING
	`, orderID, order.TotalAmount, models.HeldStatusHeld)
	if err != nil {
		return nil, nil, fmt.Errorf("escrow repository: create escrow %w", err)
	}

	var escrow models.Escrow
	if err := tx.GetContext(ctx, &escrow, `SELECT * FROM escrow WHERE order_id = $1`, orderID); err != nil {
		return nil, nil, fmt.Errorf("escrow repository: load escrow %w", err)
	}

	return &order, &escrow, tx.Commit()
}

// ReleaseAndComplete освобождает средства фрилансерам и завершает заказ.
// Переход held → released условный: второй конкурентный вызов не найдёт
// строку в статусе held и получит отказ без изменения состояния.
// Для каждого фрилансера из позиций заказа создаётся отдельная запись
// зачисления на сумму его позиций.
func (r *EscrowRepository) ReleaseAndComplete(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var escrow models.Escrow
	err = tx.GetContext(ctx, &escrow, `
		UPDATE escrow SET status = $2, released_at = NOW()
		WHERE order_id = $1 AND status = $3
		RETURNING *
	`, orderID, models.HeldStatusReleased, models.HeldStatusHeld)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.classifyEscrowConflict(ctx, tx, orderID, "средства уже освобождены или возвращены")
		}
		return nil, fmt.Errorf("escrow repository: release %w", err)
	}

	// Разнесение по фрилансерам: по одной записи на каждого исполнителя.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO escrow_ledger (escrow_id, freelancer_id, amount)
		SELECT $1, freelancer_id, SUM(final_price)
		FROM order_items WHERE order_id = $2
		GROUP BY freelancer_id
	`, escrow.ID, orderID)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: ledger fan-out %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ($3, $4)
	`, orderID, models.OrderStatusCompleted, models.OrderStatusPaid, models.OrderStatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: complete order %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("escrow repository: complete order rows affected %w", err)
	}
	if affected == 0 {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "заказ не находится в оплаченном состоянии")
	}

	return &escrow, tx.Commit()
}

// RefundAndMark возвращает средства клиенту и переводит заказ в refunded.
func (r *EscrowRepository) RefundAndMark(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var escrow models.Escrow
	err = tx.GetContext(ctx, &escrow, `
		UPDATE escrow SET status = $2, refunded_at = NOW()
		WHERE order_id = $1 AND status = $3
		RETURNING *
	`, orderID, models.HeldStatusRefunded, models.HeldStatusHeld)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.classifyEscrowConflict(ctx, tx, orderID, "средства уже освобождены или возвращены")
		}
		return nil, fmt.Errorf("escrow repository: refund %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ($3, $4)
	`, orderID, models.OrderStatusRefunded, models.OrderStatusPaid, models.OrderStatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: mark refunded %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("escrow repository: mark refunded rows affected %w", err)
	}
	if affected == 0 {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "заказ не находится в оплаченном состоянии")
	}

	return &escrow, tx.Commit()
}

// CancelPending отменяет неоплаченный заказ: средства не удерживались,
// escrow не участвует.
func (r *EscrowRepository) CancelPending(ctx context.Context, orderID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`, orderID, models.OrderStatusCancelled, models.OrderStatusPending)
	if err != nil {
		return fmt.Errorf("escrow repository: cancel pending %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("escrow repository: cancel pending rows affected %w", err)
	}
	if affected == 0 {
		return apperror.New(apperror.ErrCodeInvalidTransition, "заказ уже не в статусе ожидания оплаты")
	}
	return nil
}

// CancelOrphanPaid отменяет оплаченный заказ без escrow. Такого состояния
// при корректной работе быть не должно: это защитный путь, после которого
// требуется ручная сверка.
func (r *EscrowRepository) CancelOrphanPaid(ctx context.Context, orderID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $2, updated_at = NOW()
		WHERE id = $1
		  AND status IN ($3, $4)
		  AND NOT EXISTS (SELECT 1 FROM escrow WHERE order_id = $1)
	`, orderID, models.OrderStatusCancelled, models.OrderStatusPaid, models.OrderStatusInProgress)
	if err != nil {
		return fmt.Errorf("escrow repository: cancel orphan paid %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("escrow repository: cancel orphan paid rows affected %w", err)
	}
	if affected == 0 {
		return apperror.New(apperror.ErrCodeInvalidTransition, "заказ не находится в оплаченном состоянии без escrow")
	}
	return nil
}

// GetByOrderID возвращает escrow по заказу.
func (r *EscrowRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error) {
	var escrow models.Escrow
	err := r.db.GetContext(ctx, &escrow, `SELECT * FROM escrow WHERE order_id = $1`, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrEscrowNotFound
		}
		return nil, fmt.Errorf("escrow repository: get by order %w", err)
	}
	return &escrow, nil
}

// ListLedgerEntries возвращает записи зачислений по escrow.
func (r *EscrowRepository) ListLedgerEntries(ctx context.Context, escrowID uuid.UUID) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.SelectContext(ctx, &entries,
		`SELECT * FROM escrow_ledger WHERE escrow_id = $1 ORDER BY created_at`, escrowID)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: list ledger %w", err)
	}
	return entries, nil
}

// classifyOrderConflict выясняет причину несработавшего условного UPDATE
// заказа: заказа нет вовсе или он в недопустимом статусе.
func (r *EscrowRepository) classifyOrderConflict(ctx context.Context, tx *sqlx.Tx, orderID uuid.UUID, message string) error {
	var status string
	err := tx.GetContext(ctx, &status, `SELECT status FROM orders WHERE id = $1`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("escrow repository: classify order conflict %w", err)
	}
	return apperror.New(apperror.ErrCodeInvalidTransition, message)
}

// classifyEscrowConflict аналогично различает "escrow не существует"
// и "escrow уже в терминальном статусе".
func (r *EscrowRepository) classifyEscrowConflict(ctx context.Context, tx *sqlx.Tx, orderID uuid.UUID, message string) error {
	var status string
	err := tx.GetContext(ctx, &status, `SELECT status FROM escrow WHERE order_id = $1`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.ErrEscrowNotFound
	}
	if err != nil {
		return fmt.Errorf("escrow repository: classify escrow conflict %w", err)
	}
	return apperror.New(apperror.ErrCodeInvalidTransition, message)
}
