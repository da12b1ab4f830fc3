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

type PaymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.GetContext(ctx, &payment, `SELECT * FROM payments WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "платёж не найден")
		}
		return nil, fmt.Errorf("payment repository: get by id %w", err)
	}
	return &payment, nil
}

func (r *PaymentRepository) GetByProjectID(ctx context.Context, projectID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.GetContext(ctx, &payment,
		`SELECT * FROM payments WHERE project_id = $1 ORDER BY created_at DESC LIMIT 1`, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "платёж по проекту не найден")
		}
		return nil, fmt.Errorf("payment repository: get by project %w", err)
	}
	return &payment, nil
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.SelectContext(ctx, &payments,
		`SELECT * FROM payments WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("payment repository: list by user %w", err)
	}
	return payments, nil
}

// Release переводит платёж held → released. Условный UPDATE защищает
// от повторного освобождения.
func (r *PaymentRepository) Release(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return r.transition(ctx, id, models.HeldStatusReleased, "released_at")
}

// Refund переводит платёж held → refunded.
func (r *PaymentRepository) Refund(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return r.transition(ctx, id, models.HeldStatusRefunded, "refunded_at")
}

// CompleteProjectAndRelease завершает job-проект и освобождает удержанный
// платёж исполнителю одной транзакцией. Оба перехода условные, поэтому
// повторный вызов не освободит средства второй раз.
func (r *PaymentRepository) CompleteProjectAndRelease(ctx context.Context, projectID uuid.UUID) (*models.Payment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE projects SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`, projectID, models.ProjectStatusCompleted, models.ProjectStatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("payment repository: complete project %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("payment repository: complete project rows affected %w", err)
	}
	if affected == 0 {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "проект не находится в работе")
	}

	var payment models.Payment
	err = tx.GetContext(ctx, &payment, `
		UPDATE payments SET status = $2, released_at = NOW(), updated_at = NOW()
		WHERE project_id = $1 AND status = $3
		RETURNING *
	`, projectID, models.HeldStatusReleased, models.HeldStatusHeld)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.New(apperror.ErrCodeInvalidTransition, "платёж по проекту не находится в удержании")
		}
		return nil, fmt.Errorf("payment repository: release on complete %w", err)
	}

	return &payment, tx.Commit()
}

func (r *PaymentRepository) transition(ctx context.Context, id uuid.UUID, to, tsColumn string) (*models.Payment, error) {
	var payment models.Payment
	query := fmt.Sprintf(`
		UPDATE payments SET status = $2, %s = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING *
	`, tsColumn)
	err := r.db.GetContext(ctx, &payment, query, id, to, models.HeldStatusHeld)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.New(apperror.ErrCodeInvalidTransition, "платёж не находится в удержании")
		}
		return nil, fmt.Errorf("payment repository: transition %w", err)
	}
	return &payment, nil
}
