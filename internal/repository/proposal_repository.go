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

type ProposalRepository struct {
	db *sqlx.DB
}

func NewProposalRepository(db *sqlx.DB) *ProposalRepository {
	return &ProposalRepository{db: db}
}

// Create сохраняет отклик. Повторный отклик того же фрилансера на проект
// отсекается уникальным индексом (project_id, freelancer_id).
func (r *ProposalRepository) Create(ctx context.Context, proposal *models.Proposal) error {
	err := r.db.GetContext(ctx, proposal, `
		INSERT INTO proposals (project_id, freelancer_id, cover_letter, bid_amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, proposal.ProjectID, proposal.FreelancerID, proposal.CoverLetter, proposal.BidAmount, models.ProposalStatusPending)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ErrDuplicateProposal
		}
		return fmt.Errorf("proposal repository: create %w", err)
	}
	return nil
}

func (r *ProposalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	var proposal models.Proposal
	err := r.db.GetContext(ctx, &proposal, `SELECT * FROM proposals WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrProposalNotFound
		}
		return nil, fmt.Errorf("proposal repository: get by id %w", err)
	}
	return &proposal, nil
}

func (r *ProposalRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Proposal, error) {
	var proposals []models.Proposal
	err := r.db.SelectContext(ctx, &proposals,
		`SELECT * FROM proposals WHERE project_id = $1 ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("proposal repository: list by project %w", err)
	}
	return proposals, nil
}

func (r *ProposalRepository) ListByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.Proposal, error) {
	var proposals []models.Proposal
	err := r.db.SelectContext(ctx, &proposals,
		`SELECT * FROM proposals WHERE freelancer_id = $1 ORDER BY created_at DESC`, freelancerID)
	if err != nil {
		return nil, fmt.Errorf("proposal repository: list by freelancer %w", err)
	}
	return proposals, nil
}

// GetAcceptedByProject возвращает принятый отклик по проекту.
func (r *ProposalRepository) GetAcceptedByProject(ctx context.Context, projectID uuid.UUID) (*models.Proposal, error) {
	var proposal models.Proposal
	err := r.db.GetContext(ctx, &proposal,
		`SELECT * FROM proposals WHERE project_id = $1 AND status = $2`,
		projectID, models.ProposalStatusAccepted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrProposalNotFound
		}
		return nil, fmt.Errorf("proposal repository: get accepted %w", err)
	}
	return &proposal, nil
}

// Reject переводит отклик pending → rejected. Уже рассмотренный отклик
// повторно не отклоняется.
func (r *ProposalRepository) Reject(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	var proposal models.Proposal
	err := r.db.GetContext(ctx, &proposal, `
		UPDATE proposals SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING *
	`, id, models.ProposalStatusRejected, models.ProposalStatusPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.New(apperror.ErrCodeInvalidTransition, "отклик уже рассмотрен")
		}
		return nil, fmt.Errorf("proposal repository: reject %w", err)
	}
	return &proposal, nil
}

// AcceptResult агрегирует результат принятия отклика для уведомлений
// после коммита.
type AcceptResult struct {
	Proposal          *models.Proposal
	Project           *models.Project
	Payment           *models.Payment
	ConversationID    uuid.UUID
	RejectedProposals []models.Proposal
}

// AcceptProposal атомарно принимает отклик: блокирует проект FOR UPDATE,
// проверяет статусы отклика и проекта, переводит проект open → in_progress,
// удерживает оплату на сумму ставки, отклоняет остальные отклики и создаёт
// диалог клиента с фрилансером. Любая ошибка откатывает всю транзакцию,
// конкурентное принятие по тому же проекту проигрывает на блокировке строки.
//
// Порядок блокировок фиксирован: сначала проект, затем отклики. Строки
// откликов трогаются только под блокировкой проекта, поэтому два
// конкурентных принятия не образуют цикл блокировок.
func (r *ProposalRepository) AcceptProposal(ctx context.Context, proposalID uuid.UUID) (*AcceptResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var projectID uuid.UUID
	err = tx.GetContext(ctx, &projectID, `SELECT project_id FROM proposals WHERE id = $1`, proposalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrProposalNotFound
		}
		return nil, fmt.Errorf("proposal repository: find proposal %w", err)
	}

	var project models.Project
	err = tx.GetContext(ctx, &project, `SELECT * FROM projects WHERE id = $1 FOR UPDATE`, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrProjectNotFound
		}
		return nil, fmt.Errorf("proposal repository: lock project %w", err)
	}
	if project.Status != models.ProjectStatusOpen {
		return nil, apperror.ErrProjectNotOpen
	}

	var proposal models.Proposal
	err = tx.GetContext(ctx, &proposal, `SELECT * FROM proposals WHERE id = $1 FOR UPDATE`, proposalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrProposalNotFound
		}
		return nil, fmt.Errorf("proposal repository: lock proposal %w", err)
	}
	if proposal.Status != models.ProposalStatusPending {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "отклик уже рассмотрен")
	}

	err = tx.GetContext(ctx, &proposal, `
		UPDATE proposals SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`, proposalID, models.ProposalStatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("proposal repository: accept %w", err)
	}

	err = tx.GetContext(ctx, &project, `
		UPDATE projects SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING *
	`, project.ID, models.ProjectStatusInProgress, models.ProjectStatusOpen)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrProjectNotOpen
		}
		return nil, fmt.Errorf("proposal repository: take project %w", err)
	}

	payment := &models.Payment{
		UserID:        project.OwnerID,
		ProjectID:     project.ID,
		Amount:        proposal.BidAmount,
		Status:        models.HeldStatusHeld,
		TransactionID: fmt.Sprintf("TXN-%s-%s", project.ID, proposal.ID),
		PaymentMethod: "stripe",
	}
	err = tx.GetContext(ctx, payment, `
		INSERT INTO payments (user_id, project_id, amount, status, transaction_id, payment_method)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, payment.UserID, payment.ProjectID, payment.Amount, payment.Status, payment.TransactionID, payment.PaymentMethod)
	if err != nil {
		return nil, fmt.Errorf("proposal repository: hold payment %w", err)
	}

	var rejected []models.Proposal
	err = tx.SelectContext(ctx, &rejected, `
		UPDATE proposals SET status = $2, updated_at = NOW()
		WHERE project_id = $1 AND id <> $3 AND status = $4
		RETURNING *
	`, project.ID, models.ProposalStatusRejected, proposal.ID, models.ProposalStatusPending)
	if err != nil {
		return nil, fmt.Errorf("proposal repository: reject competitors %w", err)
	}

	conversationID, err := r.ensureConversation(ctx, tx, &project, proposal.FreelancerID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &AcceptResult{
		Proposal:          &proposal,
		Project:           &project,
		Payment:           payment,
		ConversationID:    conversationID,
		RejectedProposals: rejected,
	}, nil
}

// ensureConversation создаёт диалог по проекту, если его ещё нет,
// и кладёт в новый диалог стартовое системное сообщение.
func (r *ProposalRepository) ensureConversation(ctx context.Context, tx *sqlx.Tx, project *models.Project, freelancerID uuid.UUID) (uuid.UUID, error) {
	var conversationID uuid.UUID
	err := tx.GetContext(ctx, &conversationID, `
		SELECT id FROM conversations
		WHERE project_id = $1 AND client_id = $2 AND freelancer_id = $3
	`, project.ID, project.OwnerID, freelancerID)
	if err == nil {
		return conversationID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("proposal repository: find conversation %w", err)
	}

	err = tx.GetContext(ctx, &conversationID, `
		INSERT INTO conversations (project_id, client_id, freelancer_id)
		VALUES ($1, $2, $3)
		RETURNING id
	`, project.ID, project.OwnerID, freelancerID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("proposal repository: create conversation %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, sender_id, content, is_system)
		VALUES ($1, $2, $3, TRUE)
	`, conversationID, project.OwnerID,
		fmt.Sprintf("Поздравляем! Отклик принят, работа над проектом %q началась.", project.Title))
	if err != nil {
		return uuid.Nil, fmt.Errorf("proposal repository: system message %w", err)
	}
	return conversationID, nil
}
