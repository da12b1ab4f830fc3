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

type ProjectRepository struct {
	db *sqlx.DB
}

func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create сохраняет новый проект (gig или job).
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO projects (owner_id, title, description, budget, status, project_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		project.OwnerID, project.Title, project.Description,
		project.Budget, project.Status, project.ProjectType,
	).Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("project repository: create %w", err)
	}
	return nil
}

// GetByID возвращает проект по идентификатору.
func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := r.db.GetContext(ctx, &project, `SELECT * FROM projects WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrProjectNotFound
		}
		return nil, fmt.Errorf("project repository: get by id %w", err)
	}
	return &project, nil
}

// ProjectFilter задаёт фильтры каталога проектов.
type ProjectFilter struct {
	ProjectType string
	Status      string
	OwnerID     uuid.UUID
	Limit       int
	Offset      int
}

// List возвращает проекты с фильтрацией по типу, статусу и владельцу.
func (r *ProjectRepository) List(ctx context.Context, filter ProjectFilter) ([]models.Project, error) {
	query := `SELECT * FROM projects WHERE 1=1`
	args := []interface{}{}

	if filter.ProjectType != "" {
		args = append(args, filter.ProjectType)
		query += fmt.Sprintf(" AND project_type = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.OwnerID != uuid.Nil {
		args = append(args, filter.OwnerID)
		query += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}

	args = append(args, filter.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, query, args...); err != nil {
		return nil, fmt.Errorf("project repository: list %w", err)
	}
	return projects, nil
}

// Delete удаляет проект владельца. Проект защищён от удаления, пока на него
// ссылаются позиции заказов или предложения (RESTRICT на уровне схемы).
func (r *ProjectRepository) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.New(apperror.ErrCodeConflict, "нельзя удалить проект, на который ссылаются заказы или предложения")
		}
		return fmt.Errorf("project repository: delete %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("project repository: delete rows affected %w", err)
	}
	if affected == 0 {
		return apperror.ErrProjectNotFound
	}
	return nil
}
