package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/learnpath-api/internal/models"
)

// StackCount is one row of the students-per-stack aggregate.
type StackCount struct {
	Stack models.Stack `db:"stack"`
	Count int          `db:"count"`
}

// DashboardRepository runs the aggregate queries behind the admin dashboard.
type DashboardRepository struct {
	db *sqlx.DB
}

func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

func (r *DashboardRepository) CountAdmins(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM admins"); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return total, nil
}

func (r *DashboardRepository) StudentsByStack(ctx context.Context) ([]StackCount, error) {
	var rows []StackCount
	if err := r.db.SelectContext(ctx, &rows, "SELECT stack, COUNT(*) AS count FROM students GROUP BY stack ORDER BY stack"); err != nil {
		return nil, fmt.Errorf("count students by stack: %w", err)
	}
	return rows, nil
}

func (r *DashboardRepository) UpcomingClasses(ctx context.Context, from time.Time, limit int) ([]models.LiveClass, error) {
	classes := []models.LiveClass{}
	query := "SELECT " + liveClassColumns + " FROM live_classes WHERE start_at >= $1 ORDER BY start_at ASC LIMIT $2"
	if err := r.db.SelectContext(ctx, &classes, query, from, limit); err != nil {
		return nil, fmt.Errorf("upcoming classes: %w", err)
	}
	return classes, nil
}
