package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/learnpath-api/internal/models"
)

const adminColumns = `id, firstname, lastname, email, phone, role, profile_picture, password_hash, created_at, updated_at`

// AdminRepository manages persistence for staff accounts.
type AdminRepository struct {
	db *sqlx.DB
}

// NewAdminRepository constructs an AdminRepository.
func NewAdminRepository(db *sqlx.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// FindByEmail fetches an admin by email.
func (r *AdminRepository) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.GetContext(ctx, &admin, "SELECT "+adminColumns+" FROM admins WHERE email = $1", strings.ToLower(email)); err != nil {
		return nil, err
	}
	return &admin, nil
}

// FindByID fetches an admin by ID.
func (r *AdminRepository) FindByID(ctx context.Context, id string) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.GetContext(ctx, &admin, "SELECT "+adminColumns+" FROM admins WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &admin, nil
}

// List returns admins ordered by creation time, newest first.
func (r *AdminRepository) List(ctx context.Context, params models.ListParams, role string) ([]models.Admin, int, error) {
	where := ""
	args := []interface{}{}
	if role != "" {
		where = "WHERE role = $1"
		args = append(args, role)
	}
	params.Normalize(100)

	query := fmt.Sprintf("SELECT %s FROM admins %s ORDER BY created_at DESC LIMIT %d OFFSET %d", adminColumns, where, params.PageSize, params.Offset())
	var admins []models.Admin
	if err := r.db.SelectContext(ctx, &admins, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list admins: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, strings.TrimSpace("SELECT COUNT(*) FROM admins "+where), args...); err != nil {
		return nil, 0, fmt.Errorf("count admins: %w", err)
	}
	return admins, total, nil
}

// Create inserts a new admin.
func (r *AdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}
	admin.Email = strings.ToLower(strings.TrimSpace(admin.Email))
	now := time.Now().UTC()
	admin.CreatedAt = now
	admin.UpdatedAt = now
	const query = `INSERT INTO admins (id, firstname, lastname, email, phone, role, profile_picture, password_hash, created_at, updated_at)
        VALUES (:id, :firstname, :lastname, :email, :phone, :role, :profile_picture, :password_hash, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, admin); err != nil {
		return classify("create admin", err)
	}
	return nil
}

// UpdatePassword stores a new password hash.
func (r *AdminRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	const query = `UPDATE admins SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, hash, time.Now().UTC()); err != nil {
		return fmt.Errorf("update admin password: %w", err)
	}
	return nil
}
