package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/learnpath-api/internal/models"
)

const liveClassColumns = `id, title, description, stack, location, class_link, start_at, end_at, created_at, updated_at`

// ClassRepository manages persistence for live classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// Create inserts a new live class.
func (r *ClassRepository) Create(ctx context.Context, class *models.LiveClass) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	const query = `INSERT INTO live_classes (id, title, description, stack, location, class_link, start_at, end_at, created_at, updated_at)
        VALUES (:id, :title, :description, :stack, :location, :class_link, :start_at, :end_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create live class: %w", err)
	}
	return nil
}

// FindByID fetches a live class by ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.LiveClass, error) {
	var class models.LiveClass
	if err := r.db.GetContext(ctx, &class, "SELECT "+liveClassColumns+" FROM live_classes WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &class, nil
}

// ListUpcoming returns classes starting at or after filter.From, soonest first.
func (r *ClassRepository) ListUpcoming(ctx context.Context, filter models.ClassFilter) ([]models.LiveClass, int, error) {
	where := "WHERE start_at >= $1"
	args := []interface{}{filter.From}
	if filter.Stack != "" {
		where += " AND stack = $2"
		args = append(args, filter.Stack)
	}
	filter.Normalize(100)

	query := fmt.Sprintf("SELECT %s FROM live_classes %s ORDER BY start_at ASC LIMIT %d OFFSET %d", liveClassColumns, where, filter.PageSize, filter.Offset())
	var classes []models.LiveClass
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list live classes: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM live_classes "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count live classes: %w", err)
	}
	return classes, total, nil
}

// Update persists class if the row still carries the updated_at value the
// caller read. It returns ErrStaleWrite otherwise.
func (r *ClassRepository) Update(ctx context.Context, class *models.LiveClass) error {
	prev := class.UpdatedAt
	next := time.Now().UTC()
	const query = `UPDATE live_classes SET title = $2, description = $3, stack = $4, location = $5, class_link = $6, start_at = $7, end_at = $8, updated_at = $9
        WHERE id = $1 AND updated_at = $10`
	res, err := r.db.ExecContext(ctx, query, class.ID, class.Title, class.Description, class.Stack, class.Location, class.ClassLink, class.StartAt, class.EndAt, next, prev)
	if err != nil {
		return fmt.Errorf("update live class: %w", err)
	}
	if err := expectOneRow(res, ErrStaleWrite); err != nil {
		return err
	}
	class.UpdatedAt = next
	return nil
}

// Delete removes a live class. It returns sql.ErrNoRows when nothing matched.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM live_classes WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete live class: %w", err)
	}
	return expectOneRow(res, sql.ErrNoRows)
}
