package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/learnpath-api/internal/models"
)

const studentColumns = `id, firstname, lastname, email, phone, gender, stack, password_hash, is_email_verified, status, created_at, updated_at`

const insertStudent = `INSERT INTO students (id, firstname, lastname, email, phone, gender, stack, password_hash, is_email_verified, status, created_at, updated_at)
        VALUES (:id, :firstname, :lastname, :email, :phone, :gender, :stack, :password_hash, :is_email_verified, :status, :created_at, :updated_at)`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Stack != "" {
		args = append(args, filter.Stack)
		conditions = append(conditions, fmt.Sprintf("stack = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(firstname) LIKE $%d OR LOWER(lastname) LIKE $%d OR email LIKE $%d)", n, n, n))
	}
	where := "WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"firstname":  "firstname",
		"lastname":   "lastname",
		"email":      "email",
		"stack":      "stack",
		"created_at": "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	filter.Normalize(100)

	query := fmt.Sprintf(`SELECT %s FROM students %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		studentColumns, where, column, order, filter.PageSize, filter.Offset())

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, "SELECT "+studentColumns+" FROM students WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByEmail fetches a student by lower-cased email.
func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, "SELECT "+studentColumns+" FROM students WHERE email = $1", strings.ToLower(email)); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistingEmails returns the subset of emails that already belong to a student.
func (r *StudentRepository) ExistingEmails(ctx context.Context, emails []string) ([]string, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	var found []string
	if err := r.db.SelectContext(ctx, &found, "SELECT email FROM students WHERE email = ANY($1)", pq.Array(emails)); err != nil {
		return nil, fmt.Errorf("lookup student emails: %w", err)
	}
	return found, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	prepareStudent(student, time.Now().UTC())
	if _, err := r.db.NamedExecContext(ctx, insertStudent, student); err != nil {
		return classify("create student", err)
	}
	return nil
}

// CreateMany inserts students in a single transaction; either all rows land
// or none do.
func (r *StudentRepository) CreateMany(ctx context.Context, students []models.Student) error {
	if len(students) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin student import tx: %w", err)
	}
	now := time.Now().UTC()
	for i := range students {
		prepareStudent(&students[i], now)
		if _, err := tx.NamedExecContext(ctx, insertStudent, students[i]); err != nil {
			_ = tx.Rollback()
			return classify("import student "+students[i].Email, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit student import tx: %w", err)
	}
	return nil
}

// MarkVerified flags the student's email as verified.
func (r *StudentRepository) MarkVerified(ctx context.Context, id string) error {
	return r.exec(ctx, "verify student", `UPDATE students SET is_email_verified = true, updated_at = $2 WHERE id = $1`, id, time.Now().UTC())
}

// UpdatePassword stores a new password hash.
func (r *StudentRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.exec(ctx, "update student password", `UPDATE students SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, hash, time.Now().UTC())
}

// Activate moves an inactive student to active. It is a no-op for active ones.
func (r *StudentRepository) Activate(ctx context.Context, id string) error {
	return r.exec(ctx, "activate student", `UPDATE students SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`,
		id, models.StatusActive, time.Now().UTC(), models.StatusInactive)
}

func (r *StudentRepository) exec(ctx context.Context, op, query string, args ...interface{}) error {
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func prepareStudent(student *models.Student, now time.Time) {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.Email = strings.ToLower(strings.TrimSpace(student.Email))
	if student.Status == "" {
		student.Status = models.StatusInactive
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
}
