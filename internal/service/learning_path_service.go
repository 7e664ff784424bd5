package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/learnpath-api/internal/dto"
	"github.com/noah-isme/learnpath-api/internal/importer"
	"github.com/noah-isme/learnpath-api/internal/models"
	appErrors "github.com/noah-isme/learnpath-api/pkg/errors"
	"github.com/noah-isme/learnpath-api/pkg/export"
	"github.com/noah-isme/learnpath-api/pkg/validation"
)

type learningPathRepository interface {
	Create(ctx context.Context, path *models.LearningPath) error
	FindByID(ctx context.Context, id string) (*models.LearningPath, error)
	List(ctx context.Context, filter models.LearningPathFilter) ([]models.LearningPath, int, error)
	Update(ctx context.Context, path *models.LearningPath) error
	Delete(ctx context.Context, id string) error
	ListLessons(ctx context.Context, pathID string) ([]models.Lesson, error)
	FindLesson(ctx context.Context, pathID, lessonID string) (*models.Lesson, error)
	ExistingWeeks(ctx context.Context, pathID string, weeks []int) ([]int, error)
	CreateLesson(ctx context.Context, lesson *models.Lesson) error
	CreateLessons(ctx context.Context, lessons []models.Lesson) error
	UpdateLesson(ctx context.Context, lesson *models.Lesson) error
	ToggleLesson(ctx context.Context, pathID, lessonID string) (*models.Lesson, error)
	DeleteLesson(ctx context.Context, pathID, lessonID string) error
}

var lessonExportHeaders = []string{"week", "title", "description", "completed"}

// LearningPathService manages learning paths and their weekly lessons.
type LearningPathService struct {
	repo      learningPathRepository
	schema    *importer.StructSchema[importer.LessonRow]
	imports   *importRecorder
	validator *validation.Validator
	logger    *zap.Logger
}

// NewLearningPathService constructs the learning path service.
func NewLearningPathService(repo learningPathRepository, archive archiver, audit auditRecorder, metrics *MetricsService, validate *validation.Validator, logger *zap.Logger) *LearningPathService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LearningPathService{
		repo:      repo,
		schema:    importer.NewLessonSchema(validate),
		imports:   &importRecorder{archive: archive, metrics: metrics, audit: audit, logger: logger},
		validator: validate,
		logger:    logger,
	}
}

// Create adds an empty learning path.
func (s *LearningPathService) Create(ctx context.Context, req dto.CreateLearningPathRequest) (*models.LearningPath, error) {
	if err := validate(s.validator, req, "invalid learning path payload"); err != nil {
		return nil, err
	}
	path := &models.LearningPath{Stack: models.Stack(req.Stack), Instructor: strings.TrimSpace(req.Instructor)}
	if err := s.repo.Create(ctx, path); err != nil {
		return nil, internalError(err, "failed to create learning path")
	}
	path.Lessons = []models.Lesson{}
	return path, nil
}

// Get returns a learning path with its lessons ordered by week.
func (s *LearningPathService) Get(ctx context.Context, id string) (*models.LearningPath, error) {
	path, err := s.path(ctx, id)
	if err != nil {
		return nil, err
	}
	lessons, err := s.repo.ListLessons(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to load lessons")
	}
	if lessons == nil {
		lessons = []models.Lesson{}
	}
	path.Lessons = lessons
	return path, nil
}

// List returns learning paths without lessons.
func (s *LearningPathService) List(ctx context.Context, filter models.LearningPathFilter) ([]models.LearningPath, *models.Pagination, error) {
	if filter.Stack != "" {
		if err := s.validator.Var(filter.Stack, "stack"); err != nil {
			return nil, nil, appErrors.Validation(err, "invalid stack filter", map[string]string{"stack": "stack must be one of " + strings.Join(validation.Stacks, ", ")})
		}
	}
	filter.Normalize(100)
	paths, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list learning paths")
	}
	if paths == nil {
		paths = []models.LearningPath{}
	}
	return paths, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Update changes the stack or instructor of a path.
func (s *LearningPathService) Update(ctx context.Context, id string, req dto.UpdateLearningPathRequest) (*models.LearningPath, error) {
	if err := validate(s.validator, req, "invalid learning path payload"); err != nil {
		return nil, err
	}
	if req.Stack == nil && req.Instructor == nil {
		return nil, appErrors.Clone(appErrors.ErrBadInput, "no fields to update")
	}
	path, err := s.path(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Stack != nil {
		path.Stack = models.Stack(*req.Stack)
	}
	if req.Instructor != nil {
		path.Instructor = strings.TrimSpace(*req.Instructor)
	}
	if err := s.repo.Update(ctx, path); err != nil {
		return nil, lookupError(err, "learning path not found", "failed to update learning path")
	}
	return path, nil
}

// Delete removes a path and its lessons.
func (s *LearningPathService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "learning path not found", "failed to delete learning path")
	}
	return nil
}

// ListLessons returns the lessons of a path ordered by week.
func (s *LearningPathService) ListLessons(ctx context.Context, pathID string) ([]models.Lesson, error) {
	path, err := s.Get(ctx, pathID)
	if err != nil {
		return nil, err
	}
	return path.Lessons, nil
}

// AddLesson adds one lesson. Weeks are unique within a path.
func (s *LearningPathService) AddLesson(ctx context.Context, pathID string, req dto.LessonRequest) (*models.Lesson, error) {
	if err := validate(s.validator, req, "invalid lesson payload"); err != nil {
		return nil, err
	}
	if _, err := s.path(ctx, pathID); err != nil {
		return nil, err
	}
	lesson := &models.Lesson{
		LearningPathID: pathID,
		Week:           req.Week,
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
	}
	if err := s.repo.CreateLesson(ctx, lesson); err != nil {
		return nil, writeError(err, weekTaken(req.Week), "failed to create lesson")
	}
	return lesson, nil
}

// UpdateLesson applies a partial update to a lesson.
func (s *LearningPathService) UpdateLesson(ctx context.Context, pathID, lessonID string, req dto.UpdateLessonRequest) (*models.Lesson, error) {
	if err := validate(s.validator, req, "invalid lesson payload"); err != nil {
		return nil, err
	}
	if req.Empty() {
		return nil, appErrors.Clone(appErrors.ErrBadInput, "no fields to update")
	}
	lesson, err := s.repo.FindLesson(ctx, pathID, lessonID)
	if err != nil {
		return nil, lookupError(err, "lesson not found", "failed to fetch lesson")
	}
	if req.Week != nil {
		lesson.Week = *req.Week
	}
	if req.Title != nil {
		lesson.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		lesson.Description = *req.Description
	}
	if err := s.repo.UpdateLesson(ctx, lesson); err != nil {
		return nil, writeError(err, weekTaken(lesson.Week), "failed to update lesson")
	}
	return lesson, nil
}

// ToggleLesson flips the completed flag of a lesson.
func (s *LearningPathService) ToggleLesson(ctx context.Context, pathID, lessonID string) (*models.Lesson, error) {
	lesson, err := s.repo.ToggleLesson(ctx, pathID, lessonID)
	if err != nil {
		return nil, lookupError(err, "lesson not found", "failed to update lesson")
	}
	return lesson, nil
}

// DeleteLesson removes a lesson.
func (s *LearningPathService) DeleteLesson(ctx context.Context, pathID, lessonID string) error {
	if err := s.repo.DeleteLesson(ctx, pathID, lessonID); err != nil {
		return lookupError(err, "lesson not found", "failed to delete lesson")
	}
	return nil
}

// ImportLessons adds lessons from a spreadsheet. Weeks already present in the
// path, or repeated in the upload, are reported as duplicates.
func (s *LearningPathService) ImportLessons(ctx context.Context, pathID string, upload Upload, actor *models.JWTClaims, meta models.RequestMeta) (*dto.ImportResult[models.Lesson, int], error) {
	if _, err := s.path(ctx, pathID); err != nil {
		return nil, err
	}
	return runImport(ctx, s.imports, importJob[importer.LessonRow, int, models.Lesson]{
		target: "lessons",
		layout: importer.LessonLayout,
		schema: s.schema,
		lookup: func(ctx context.Context, weeks []int) (importer.KeySet[int], error) {
			found, err := s.repo.ExistingWeeks(ctx, pathID, weeks)
			if err != nil {
				return nil, err
			}
			return importer.NewKeySet(found...), nil
		},
		keyOf: importer.LessonKey,
		persist: func(ctx context.Context, rows []importer.LessonRow) ([]models.Lesson, error) {
			lessons := make([]models.Lesson, 0, len(rows))
			for _, row := range rows {
				lessons = append(lessons, models.Lesson{
					LearningPathID: pathID,
					Week:           row.Week,
					Title:          row.Title,
					Description:    row.Description,
				})
			}
			if err := s.repo.CreateLessons(ctx, lessons); err != nil {
				return nil, err
			}
			return lessons, nil
		},
	}, upload, actor, meta)
}

// ExportLessons renders the lesson plan of a path as csv or pdf. The csv
// layout is accepted back by ImportLessons.
func (s *LearningPathService) ExportLessons(ctx context.Context, pathID, format string) (*export.Document, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, appErrors.Validation(err, "invalid export format", map[string]string{"format": "format must be one of csv, pdf"})
	}
	path, err := s.Get(ctx, pathID)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Headers: lessonExportHeaders,
		Rows:    make([]map[string]string, 0, len(path.Lessons)),
		Widths:  map[string]float64{"week": 0.5, "title": 1.5, "description": 3, "completed": 0.8},
	}
	for _, lesson := range path.Lessons {
		data.Rows = append(data.Rows, map[string]string{
			"week":        strconv.Itoa(lesson.Week),
			"title":       lesson.Title,
			"description": lesson.Description,
			"completed":   strconv.FormatBool(lesson.Completed),
		})
	}

	name := fmt.Sprintf("%s-lessons", path.Stack)
	title := fmt.Sprintf("%s learning path (%s)", strings.ReplaceAll(string(path.Stack), "_", " "), path.Instructor)
	doc, err := export.Render(f, data, name, title)
	if err != nil {
		return nil, internalError(err, "failed to render lesson export")
	}
	return &doc, nil
}

func (s *LearningPathService) path(ctx context.Context, id string) (*models.LearningPath, error) {
	path, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "learning path not found", "failed to fetch learning path")
	}
	return path, nil
}

func weekTaken(week int) string {
	return fmt.Sprintf("week %d already exists in this learning path", week)
}
