package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/learnpath-api/internal/models"
)

const (
	learningPathColumns = `id, stack, instructor, created_at, updated_at`
	lessonColumns       = `id, learning_path_id, week, title, description, completed, created_at, updated_at`
	insertLesson        = `INSERT INTO lessons (id, learning_path_id, week, title, description, completed, created_at, updated_at)
        VALUES (:id, :learning_path_id, :week, :title, :description, :completed, :created_at, :updated_at)`
)

// LearningPathRepository manages learning paths and their lessons.
type LearningPathRepository struct {
	db *sqlx.DB
}

// NewLearningPathRepository constructs a LearningPathRepository.
func NewLearningPathRepository(db *sqlx.DB) *LearningPathRepository {
	return &LearningPathRepository{db: db}
}

// Create inserts a learning path.
func (r *LearningPathRepository) Create(ctx context.Context, path *models.LearningPath) error {
	if path.ID == "" {
		path.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	path.CreatedAt = now
	path.UpdatedAt = now
	const query = `INSERT INTO learning_paths (id, stack, instructor, created_at, updated_at) VALUES (:id, :stack, :instructor, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, path); err != nil {
		return fmt.Errorf("create learning path: %w", err)
	}
	return nil
}

// FindByID fetches a learning path without its lessons.
func (r *LearningPathRepository) FindByID(ctx context.Context, id string) (*models.LearningPath, error) {
	var path models.LearningPath
	if err := r.db.GetContext(ctx, &path, "SELECT "+learningPathColumns+" FROM learning_paths WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &path, nil
}

// List returns learning paths, optionally for one stack.
func (r *LearningPathRepository) List(ctx context.Context, filter models.LearningPathFilter) ([]models.LearningPath, int, error) {
	where := ""
	args := []interface{}{}
	if filter.Stack != "" {
		where = " WHERE stack = $1"
		args = append(args, filter.Stack)
	}
	filter.Normalize(100)

	query := fmt.Sprintf("SELECT %s FROM learning_paths%s ORDER BY created_at DESC LIMIT %d OFFSET %d", learningPathColumns, where, filter.PageSize, filter.Offset())
	var paths []models.LearningPath
	if err := r.db.SelectContext(ctx, &paths, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list learning paths: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM learning_paths"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count learning paths: %w", err)
	}
	return paths, total, nil
}

// Update overwrites stack and instructor.
func (r *LearningPathRepository) Update(ctx context.Context, path *models.LearningPath) error {
	path.UpdatedAt = time.Now().UTC()
	const query = `UPDATE learning_paths SET stack = :stack, instructor = :instructor, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, path)
	if err != nil {
		return fmt.Errorf("update learning path: %w", err)
	}
	return expectOneRow(res, sql.ErrNoRows)
}

// Delete removes a learning path; lessons go with it through ON DELETE CASCADE.
func (r *LearningPathRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM learning_paths WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete learning path: %w", err)
	}
	return expectOneRow(res, sql.ErrNoRows)
}

// ListLessons returns the lessons of a path ordered by week.
func (r *LearningPathRepository) ListLessons(ctx context.Context, pathID string) ([]models.Lesson, error) {
	lessons := []models.Lesson{}
	if err := r.db.SelectContext(ctx, &lessons, "SELECT "+lessonColumns+" FROM lessons WHERE learning_path_id = $1 ORDER BY week ASC", pathID); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

// FindLesson fetches one lesson scoped to its path.
func (r *LearningPathRepository) FindLesson(ctx context.Context, pathID, lessonID string) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, "SELECT "+lessonColumns+" FROM lessons WHERE learning_path_id = $1 AND id = $2", pathID, lessonID); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// ExistingWeeks returns the subset of weeks already used in the path.
func (r *LearningPathRepository) ExistingWeeks(ctx context.Context, pathID string, weeks []int) ([]int, error) {
	if len(weeks) == 0 {
		return nil, nil
	}
	values := make([]int64, len(weeks))
	for i, w := range weeks {
		values[i] = int64(w)
	}
	var found []int
	if err := r.db.SelectContext(ctx, &found, "SELECT week FROM lessons WHERE learning_path_id = $1 AND week = ANY($2)", pathID, pq.Array(values)); err != nil {
		return nil, fmt.Errorf("lookup lesson weeks: %w", err)
	}
	return found, nil
}

// CreateLesson inserts a single lesson.
func (r *LearningPathRepository) CreateLesson(ctx context.Context, lesson *models.Lesson) error {
	prepareLesson(lesson, time.Now().UTC())
	if _, err := r.db.NamedExecContext(ctx, insertLesson, lesson); err != nil {
		return classify("create lesson", err)
	}
	return nil
}

// CreateLessons inserts lessons in a single transaction.
func (r *LearningPathRepository) CreateLessons(ctx context.Context, lessons []models.Lesson) error {
	if len(lessons) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin lesson import tx: %w", err)
	}
	now := time.Now().UTC()
	for i := range lessons {
		prepareLesson(&lessons[i], now)
		if _, err := tx.NamedExecContext(ctx, insertLesson, lessons[i]); err != nil {
			_ = tx.Rollback()
			return classify(fmt.Sprintf("import lesson week %d", lessons[i].Week), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit lesson import tx: %w", err)
	}
	return nil
}

// UpdateLesson overwrites week, title and description.
func (r *LearningPathRepository) UpdateLesson(ctx context.Context, lesson *models.Lesson) error {
	lesson.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lessons SET week = :week, title = :title, description = :description, updated_at = :updated_at
        WHERE id = :id AND learning_path_id = :learning_path_id`
	res, err := r.db.NamedExecContext(ctx, query, lesson)
	if err != nil {
		return classify("update lesson", err)
	}
	return expectOneRow(res, sql.ErrNoRows)
}

// ToggleLesson flips the completed flag and returns the updated lesson.
func (r *LearningPathRepository) ToggleLesson(ctx context.Context, pathID, lessonID string) (*models.Lesson, error) {
	var lesson models.Lesson
	query := `UPDATE lessons SET completed = NOT completed, updated_at = $3 WHERE learning_path_id = $1 AND id = $2 RETURNING ` + lessonColumns
	if err := r.db.GetContext(ctx, &lesson, query, pathID, lessonID, time.Now().UTC()); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// DeleteLesson removes a lesson from its path.
func (r *LearningPathRepository) DeleteLesson(ctx context.Context, pathID, lessonID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM lessons WHERE learning_path_id = $1 AND id = $2", pathID, lessonID)
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	return expectOneRow(res, sql.ErrNoRows)
}

func prepareLesson(lesson *models.Lesson, now time.Time) {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = now
	}
	lesson.UpdatedAt = now
}
