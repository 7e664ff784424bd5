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

const recordedClassColumns = `id, title, description, class_date, stack, video_link, created_at, updated_at`

// RecordedClassRepository manages persistence for recorded classes.
type RecordedClassRepository struct {
	db *sqlx.DB
}

// NewRecordedClassRepository constructs a RecordedClassRepository.
func NewRecordedClassRepository(db *sqlx.DB) *RecordedClassRepository {
	return &RecordedClassRepository{db: db}
}

// Create inserts a recorded class.
func (r *RecordedClassRepository) Create(ctx context.Context, class *models.RecordedClass) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	const query = `INSERT INTO recorded_classes (id, title, description, class_date, stack, video_link, created_at, updated_at)
        VALUES (:id, :title, :description, :class_date, :stack, :video_link, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return classify("create recorded class", err)
	}
	return nil
}

// FindByID fetches a recorded class by ID.
func (r *RecordedClassRepository) FindByID(ctx context.Context, id string) (*models.RecordedClass, error) {
	var class models.RecordedClass
	if err := r.db.GetContext(ctx, &class, "SELECT "+recordedClassColumns+" FROM recorded_classes WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &class, nil
}

// ExistsVideoLink checks whether link is already used by another recording of
// the same stack.
func (r *RecordedClassRepository) ExistsVideoLink(ctx context.Context, stack, link, excludeID string) (bool, error) {
	query := "SELECT 1 FROM recorded_classes WHERE stack = $1 AND video_link = $2"
	args := []interface{}{stack, link}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check video link: %w", err)
	}
	return true, nil
}

// List returns recordings newest first, optionally for one stack.
func (r *RecordedClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.RecordedClass, int, error) {
	where := ""
	args := []interface{}{}
	if filter.Stack != "" {
		where = " WHERE stack = $1"
		args = append(args, filter.Stack)
	}
	filter.Normalize(100)

	query := fmt.Sprintf("SELECT %s FROM recorded_classes%s ORDER BY class_date DESC, created_at DESC LIMIT %d OFFSET %d", recordedClassColumns, where, filter.PageSize, filter.Offset())
	var classes []models.RecordedClass
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list recorded classes: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM recorded_classes"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count recorded classes: %w", err)
	}
	return classes, total, nil
}

// Update overwrites the mutable fields of a recorded class.
func (r *RecordedClassRepository) Update(ctx context.Context, class *models.RecordedClass) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE recorded_classes SET title = :title, description = :description, class_date = :class_date, stack = :stack, video_link = :video_link, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, class)
	if err != nil {
		return classify("update recorded class", err)
	}
	return expectOneRow(res, sql.ErrNoRows)
}

// Delete removes a recorded class. It returns sql.ErrNoRows when nothing matched.
func (r *RecordedClassRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM recorded_classes WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete recorded class: %w", err)
	}
	return expectOneRow(res, sql.ErrNoRows)
}
