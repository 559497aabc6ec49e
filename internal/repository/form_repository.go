package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/formhive/formhive-api/internal/models"
)

// FormRepository manages persistence for form documents.
type FormRepository struct {
	db *sqlx.DB
}

// NewFormRepository constructs a new repository.
func NewFormRepository(db *sqlx.DB) *FormRepository {
	return &FormRepository{db: db}
}

// FindByID loads a single form.
func (r *FormRepository) FindByID(ctx context.Context, id string) (*models.Form, error) {
	query := `SELECT id, title, description, creator_id, fields, settings, folder_name, created_at, updated_at
FROM forms WHERE id = $1 LIMIT 1`
	var form models.Form
	if err := r.db.GetContext(ctx, &form, query, id); err != nil {
		return nil, err
	}
	return &form, nil
}

// List returns forms per provided filter, newest first.
func (r *FormRepository) List(ctx context.Context, filter models.FormFilter) ([]models.Form, int, error) {
	base := "FROM forms"
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.CreatorID != "" {
		where = append(where, fmt.Sprintf("creator_id = $%d", len(args)+1))
		args = append(args, filter.CreatorID)
	}
	if filter.FolderName != "" {
		where = append(where, fmt.Sprintf("folder_name = $%d", len(args)+1))
		args = append(args, filter.FolderName)
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("title ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, title, description, creator_id, fields, settings, folder_name, created_at, updated_at
%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, base, whereClause, size, offset)
	var forms []models.Form
	if err := r.db.SelectContext(ctx, &forms, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list forms: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count forms: %w", err)
	}
	return forms, total, nil
}

// Create inserts a new form.
func (r *FormRepository) Create(ctx context.Context, form *models.Form) error {
	if form.ID == "" {
		form.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	form.CreatedAt = now
	form.UpdatedAt = now
	query := `INSERT INTO forms (id, title, description, creator_id, fields, settings, folder_name, created_at, updated_at)
VALUES (:id, :title, :description, :creator_id, :fields, :settings, :folder_name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, form); err != nil {
		return fmt.Errorf("create form: %w", err)
	}
	return nil
}

// Update replaces the mutable columns of an existing form.
func (r *FormRepository) Update(ctx context.Context, form *models.Form) error {
	form.UpdatedAt = time.Now().UTC()
	query := `UPDATE forms SET title = :title, description = :description, fields = :fields, settings = :settings, folder_name = :folder_name, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, form); err != nil {
		return fmt.Errorf("update form: %w", err)
	}
	return nil
}

// Delete removes a form.
func (r *FormRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM forms WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete form: %w", err)
	}
	return nil
}
