package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/learnpath-api/internal/dto"
	"github.com/noah-isme/learnpath-api/internal/importer"
	"github.com/noah-isme/learnpath-api/internal/models"
	appErrors "github.com/noah-isme/learnpath-api/pkg/errors"
	"github.com/noah-isme/learnpath-api/pkg/validation"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByEmail(ctx context.Context, email string) (*models.Student, error)
	ExistingEmails(ctx context.Context, emails []string) ([]string, error)
	CreateMany(ctx context.Context, students []models.Student) error
}

// StudentService handles the admin side of student management.
type StudentService struct {
	repo      studentRepository
	schema    *importer.StructSchema[importer.StudentRow]
	imports   *importRecorder
	cache     *CacheService
	validator *validation.Validator
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, archive archiver, audit auditRecorder, metrics *MetricsService, cache *CacheService, validate *validation.Validator, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		repo:      repo,
		schema:    importer.NewStudentSchema(validate),
		imports:   &importRecorder{archive: archive, metrics: metrics, audit: audit, logger: logger},
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	filter.Stack = strings.ToLower(strings.TrimSpace(filter.Stack))
	if filter.Stack != "" {
		if err := s.validator.Var(filter.Stack, "stack"); err != nil {
			return nil, nil, appErrors.Validation(err, "invalid stack filter", map[string]string{"stack": "stack must be one of " + strings.Join(validation.Stacks, ", ")})
		}
	}
	filter.Normalize(100)

	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list students")
	}
	if students == nil {
		students = []models.Student{}
	}
	return students, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// GetByEmail returns a single student.
func (s *StudentService) GetByEmail(ctx context.Context, email string) (*models.Student, error) {
	email = normalizeEmail(email)
	if err := s.validator.Var(email, "required,email"); err != nil {
		return nil, appErrors.Validation(err, "invalid email", map[string]string{"email": "email must be a valid email address"})
	}
	student, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to fetch student")
	}
	return student, nil
}

// Import creates students from a roster spreadsheet. Rows whose email already
// exists are reported as duplicates; the rest are inserted together.
func (s *StudentService) Import(ctx context.Context, upload Upload, actor *models.JWTClaims, meta models.RequestMeta) (*dto.ImportResult[models.Student, string], error) {
	result, err := runImport(ctx, s.imports, importJob[importer.StudentRow, string, models.Student]{
		target: "students",
		layout: importer.StudentLayout,
		schema: s.schema,
		lookup: func(ctx context.Context, emails []string) (importer.KeySet[string], error) {
			found, err := s.repo.ExistingEmails(ctx, emails)
			if err != nil {
				return nil, err
			}
			return importer.NewKeySet(found...), nil
		},
		keyOf:   importer.StudentKey,
		persist: s.persist,
	}, upload, actor, meta)
	if err != nil {
		return nil, err
	}
	if result.Summary.Created > 0 {
		s.cache.Invalidate(ctx, cachePatternDashboard)
	}
	return result, nil
}

func (s *StudentService) persist(ctx context.Context, rows []importer.StudentRow) ([]models.Student, error) {
	students := make([]models.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, models.Student{
			Firstname: row.Firstname,
			Lastname:  row.Lastname,
			Email:     row.Email,
			Phone:     row.Phone,
			Gender:    row.Gender,
			Stack:     models.Stack(row.Stack),
			Status:    models.StatusInactive,
		})
	}
	if err := s.repo.CreateMany(ctx, students); err != nil {
		return nil, err
	}
	return students, nil
}
