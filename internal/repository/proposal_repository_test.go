package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/binaryblade24/marketplace-backend/internal/models"
	"github.com/binaryblade24/marketplace-backend/internal/pkg/apperror"
)

func projectRows(projectID, ownerID uuid.UUID, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "owner_id", "title", "description", "budget", "status", "project_type", "created_at", "updated_at"}).
		AddRow(projectID.String(), ownerID.String(), "Лендинг", "Сверстать лендинг", "500", status, models.ProjectTypeJob, now, now)
}

func proposalRows(proposalID, projectID, freelancerID uuid.UUID, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "project_id", "freelancer_id", "cover_letter", "bid_amount", "status", "created_at", "updated_at"}).
		AddRow(proposalID.String(), projectID.String(), freelancerID.String(), "Возьмусь за неделю", "450", status, now, now)
}

func paymentRows(ownerID, projectID, proposalID uuid.UUID) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "user_id", "project_id", "amount", "transaction_id", "payment_method", "status", "released_at", "refunded_at", "created_at", "updated_at"}).
		AddRow(uuid.NewString(), ownerID.String(), projectID.String(), "450",
			fmt.Sprintf("TXN-%s-%s", projectID, proposalID), "stripe", models.HeldStatusHeld, nil, nil, now, now)
}

// Полный сценарий принятия. Ожидания sqlmock упорядочены, поэтому тест
// фиксирует и порядок блокировок: строка проекта берётся FOR UPDATE раньше
// строки отклика, все конкурентные принятия по проекту сериализуются на ней.
func TestProposalRepository_AcceptProposal_Success(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProposalRepository(db)

	proposalID := uuid.New()
	projectID := uuid.New()
	ownerID := uuid.New()
	freelancerID := uuid.New()
	conversationID := uuid.New()
	loserID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT project_id FROM proposals WHERE id = \$1`).
		WithArgs(proposalID).
		WillReturnRows(sqlmock.NewRows([]string{"project_id"}).AddRow(projectID.String()))
	mock.ExpectQuery(`SELECT \* FROM projects WHERE id = \$1 FOR UPDATE`).
		WithArgs(projectID).
		WillReturnRows(projectRows(projectID, ownerID, models.ProjectStatusOpen))
	mock.ExpectQuery(`SELECT \* FROM proposals WHERE id = \$1 FOR UPDATE`).
		WithArgs(proposalID).
		WillReturnRows(proposalRows(proposalID, projectID, freelancerID, models.ProposalStatusPending))
	mock.ExpectQuery(`UPDATE proposals SET status = \$2, updated_at = NOW\(\) WHERE id = \$1`).
		WithArgs(proposalID, models.ProposalStatusAccepted).
		WillReturnRows(proposalRows(proposalID, projectID, freelancerID, models.ProposalStatusAccepted))
	mock.ExpectQuery(`UPDATE projects SET status = \$2, updated_at = NOW\(\) WHERE id = \$1 AND status = \$3`).
		WithArgs(projectID, models.ProjectStatusInProgress, models.ProjectStatusOpen).
		WillReturnRows(projectRows(projectID, ownerID, models.ProjectStatusInProgress))
	mock.ExpectQuery(`INSERT INTO payments`).
		WillReturnRows(paymentRows(ownerID, projectID, proposalID))
	mock.ExpectQuery(`UPDATE proposals SET status = \$2, updated_at = NOW\(\) WHERE project_id = \$1 AND id <> \$3`).
		WithArgs(projectID, models.ProposalStatusRejected, proposalID, models.ProposalStatusPending).
		WillReturnRows(proposalRows(uuid.New(), projectID, loserID, models.ProposalStatusRejected))
	mock.ExpectQuery(`SELECT id FROM conversations`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO conversations`).
		WithArgs(projectID, ownerID, freelancerID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(conversationID.String()))
	mock.ExpectExec(`INSERT INTO messages`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := repo.AcceptProposal(context.Background(), proposalID)

	assert.NoError(t, err)
	assert.Equal(t, models.ProposalStatusAccepted, res.Proposal.Status)
	assert.Equal(t, models.ProjectStatusInProgress, res.Project.Status)
	assert.Equal(t, models.HeldStatusHeld, res.Payment.Status)
	assert.Equal(t, conversationID, res.ConversationID)
	assert.Len(t, res.RejectedProposals, 1)
	assert.Equal(t, models.ProposalStatusRejected, res.RejectedProposals[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Проигравший конкурентного принятия видит проект уже не в статусе open
// и падает типизированной ошибкой до каких-либо изменений.
func TestProposalRepository_AcceptProposal_ProjectNoLongerOpen(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProposalRepository(db)
	proposalID := uuid.New()
	projectID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT project_id FROM proposals WHERE id = \$1`).
		WithArgs(proposalID).
		WillReturnRows(sqlmock.NewRows([]string{"project_id"}).AddRow(projectID.String()))
	mock.ExpectQuery(`SELECT \* FROM projects WHERE id = \$1 FOR UPDATE`).
		WithArgs(projectID).
		WillReturnRows(projectRows(projectID, uuid.New(), models.ProjectStatusInProgress))
	mock.ExpectRollback()

	_, err := repo.AcceptProposal(context.Background(), proposalID)

	assert.ErrorIs(t, err, apperror.ErrProjectNotOpen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProposalRepository_AcceptProposal_AlreadyReviewed(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProposalRepository(db)
	proposalID := uuid.New()
	projectID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT project_id FROM proposals WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"project_id"}).AddRow(projectID.String()))
	mock.ExpectQuery(`SELECT \* FROM projects WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(projectRows(projectID, uuid.New(), models.ProjectStatusOpen))
	mock.ExpectQuery(`SELECT \* FROM proposals WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(proposalRows(proposalID, projectID, uuid.New(), models.ProposalStatusAccepted))
	mock.ExpectRollback()

	_, err := repo.AcceptProposal(context.Background(), proposalID)

	assert.True(t, apperror.IsInvalidTransition(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProposalRepository_AcceptProposal_ProposalNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProposalRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT project_id FROM proposals WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"project_id"}))
	mock.ExpectRollback()

	_, err := repo.AcceptProposal(context.Background(), uuid.New())

	assert.ErrorIs(t, err, apperror.ErrProposalNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
