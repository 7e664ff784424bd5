package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/learnpath-api/internal/dto"
	"github.com/noah-isme/learnpath-api/internal/models"
	"github.com/noah-isme/learnpath-api/internal/schedule"
	appErrors "github.com/noah-isme/learnpath-api/pkg/errors"
	"github.com/noah-isme/learnpath-api/pkg/validation"
)

type liveClassRepository interface {
	Create(ctx context.Context, class *models.LiveClass) error
	FindByID(ctx context.Context, id string) (*models.LiveClass, error)
	ListUpcoming(ctx context.Context, filter models.ClassFilter) ([]models.LiveClass, int, error)
	Update(ctx context.Context, class *models.LiveClass) error
	Delete(ctx context.Context, id string) error
}

type recordedClassRepository interface {
	Create(ctx context.Context, class *models.RecordedClass) error
	FindByID(ctx context.Context, id string) (*models.RecordedClass, error)
	ExistsVideoLink(ctx context.Context, stack, link, excludeID string) (bool, error)
	List(ctx context.Context, filter models.ClassFilter) ([]models.RecordedClass, int, error)
	Update(ctx context.Context, class *models.RecordedClass) error
	Delete(ctx context.Context, id string) error
}

// ClassService handles live and recorded class use cases. Live class
// schedules always pass through the schedule reconciler.
type ClassService struct {
	live      liveClassRepository
	recorded  recordedClassRepository
	schedule  *schedule.Reconciler
	cache     *CacheService
	validator *validation.Validator
	logger    *zap.Logger
	now       func() time.Time
}

// NewClassService constructs the class service.
func NewClassService(live liveClassRepository, recorded recordedClassRepository, reconciler *schedule.Reconciler, cache *CacheService, validate *validation.Validator, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validation.New()
	}
	if reconciler == nil {
		reconciler = schedule.NewReconciler(nil, nil)
	}
	return &ClassService{
		live:      live,
		recorded:  recorded,
		schedule:  reconciler,
		cache:     cache,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateLive schedules a live class.
func (s *ClassService) CreateLive(ctx context.Context, req dto.CreateLiveClassRequest) (*dto.LiveClassResponse, error) {
	if err := validate(s.validator, req, "invalid class payload"); err != nil {
		return nil, err
	}

	window, err := s.schedule.Create(req.StartDate, req.StartTime, req.EndTime)
	if err != nil {
		return nil, scheduleError(err)
	}

	class := &models.LiveClass{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Stack:       models.Stack(req.Stack),
		Location:    strings.TrimSpace(req.Location),
		ClassLink:   req.ClassLink,
		StartAt:     window.Start,
		EndAt:       window.End,
	}
	if err := s.live.Create(ctx, class); err != nil {
		return nil, internalError(err, "failed to create class")
	}
	s.cache.Invalidate(ctx, cachePatternDashboard)

	resp := dto.NewLiveClassResponse(*class, s.schedule.Location())
	return &resp, nil
}

// GetLive returns one live class.
func (s *ClassService) GetLive(ctx context.Context, id string) (*dto.LiveClassResponse, error) {
	class, err := s.live.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "class not found", "failed to fetch class")
	}
	resp := dto.NewLiveClassResponse(*class, s.schedule.Location())
	return &resp, nil
}

// ListUpcoming returns live classes that have not started yet, soonest first.
func (s *ClassService) ListUpcoming(ctx context.Context, filter models.ClassFilter) ([]dto.LiveClassResponse, *models.Pagination, error) {
	if filter.Stack != "" {
		if err := s.validator.Var(filter.Stack, "stack"); err != nil {
			return nil, nil, appErrors.Validation(err, "invalid stack filter", map[string]string{"stack": "stack must be one of " + strings.Join(validation.Stacks, ", ")})
		}
	}
	filter.Normalize(100)
	filter.From = s.now()

	classes, total, err := s.live.ListUpcoming(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list classes")
	}
	out := make([]dto.LiveClassResponse, 0, len(classes))
	for _, class := range classes {
		out = append(out, dto.NewLiveClassResponse(class, s.schedule.Location()))
	}
	return out, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// UpdateLive applies a partial update. Schedule fields are merged with the
// stored window; an update without schedule fields never revalidates it.
func (s *ClassService) UpdateLive(ctx context.Context, id string, req dto.UpdateLiveClassRequest) (*dto.LiveClassResponse, error) {
	if err := validate(s.validator, req, "invalid class payload"); err != nil {
		return nil, err
	}
	if req.Empty() {
		return nil, appErrors.Clone(appErrors.ErrBadInput, "no fields to update")
	}

	class, err := s.live.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "class not found", "failed to fetch class")
	}

	window, err := s.schedule.Update(class.StartAt, class.EndAt, req.SchedulePatch())
	if err != nil {
		return nil, scheduleError(err)
	}
	class.StartAt = window.Start
	class.EndAt = window.End

	if req.Title != nil {
		class.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		class.Description = *req.Description
	}
	if req.Stack != nil {
		class.Stack = models.Stack(*req.Stack)
	}
	if req.Location != nil {
		class.Location = strings.TrimSpace(*req.Location)
	}
	if req.ClassLink != nil {
		class.ClassLink = *req.ClassLink
	}

	if err := s.live.Update(ctx, class); err != nil {
		return nil, writeError(err, "class already exists", "failed to update class")
	}
	s.cache.Invalidate(ctx, cachePatternDashboard)

	resp := dto.NewLiveClassResponse(*class, s.schedule.Location())
	return &resp, nil
}

// DeleteLive removes a live class.
func (s *ClassService) DeleteLive(ctx context.Context, id string) error {
	if err := s.live.Delete(ctx, id); err != nil {
		return lookupError(err, "class not found", "failed to delete class")
	}
	s.cache.Invalidate(ctx, cachePatternDashboard)
	return nil
}

// CreateRecorded publishes a recording. Video links are unique per stack.
func (s *ClassService) CreateRecorded(ctx context.Context, req dto.CreateRecordedClassRequest) (*models.RecordedClass, error) {
	if err := validate(s.validator, req, "invalid recorded class payload"); err != nil {
		return nil, err
	}
	date, err := time.ParseInLocation(schedule.DateLayout, req.Date, time.UTC)
	if err != nil {
		return nil, appErrors.Validation(err, "invalid recorded class payload", map[string]string{"date": "date must be a date in YYYY-MM-DD format"})
	}

	class := &models.RecordedClass{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		ClassDate:   date,
		Stack:       models.Stack(req.Stack),
		VideoLink:   req.VideoLink,
	}
	if err := s.ensureUniqueVideo(ctx, class); err != nil {
		return nil, err
	}
	if err := s.recorded.Create(ctx, class); err != nil {
		return nil, writeError(err, "video link already exists for this stack", "failed to create recorded class")
	}
	return class, nil
}

// GetRecorded returns one recording.
func (s *ClassService) GetRecorded(ctx context.Context, id string) (*models.RecordedClass, error) {
	class, err := s.recorded.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "recorded class not found", "failed to fetch recorded class")
	}
	return class, nil
}

// ListRecorded returns recordings, newest first.
func (s *ClassService) ListRecorded(ctx context.Context, filter models.ClassFilter) ([]models.RecordedClass, *models.Pagination, error) {
	if filter.Stack != "" {
		if err := s.validator.Var(filter.Stack, "stack"); err != nil {
			return nil, nil, appErrors.Validation(err, "invalid stack filter", map[string]string{"stack": "stack must be one of " + strings.Join(validation.Stacks, ", ")})
		}
	}
	filter.Normalize(100)
	classes, total, err := s.recorded.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list recorded classes")
	}
	if classes == nil {
		classes = []models.RecordedClass{}
	}
	return classes, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// UpdateRecorded applies a partial update to a recording.
func (s *ClassService) UpdateRecorded(ctx context.Context, id string, req dto.UpdateRecordedClassRequest) (*models.RecordedClass, error) {
	if err := validate(s.validator, req, "invalid recorded class payload"); err != nil {
		return nil, err
	}
	if req.Empty() {
		return nil, appErrors.Clone(appErrors.ErrBadInput, "no fields to update")
	}

	class, err := s.recorded.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "recorded class not found", "failed to fetch recorded class")
	}
	if req.Title != nil {
		class.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		class.Description = *req.Description
	}
	if req.Date != nil {
		date, err := time.ParseInLocation(schedule.DateLayout, *req.Date, time.UTC)
		if err != nil {
			return nil, appErrors.Validation(err, "invalid recorded class payload", map[string]string{"date": "date must be a date in YYYY-MM-DD format"})
		}
		class.ClassDate = date
	}
	if req.Stack != nil {
		class.Stack = models.Stack(*req.Stack)
	}
	if req.VideoLink != nil {
		class.VideoLink = *req.VideoLink
	}
	if req.Stack != nil || req.VideoLink != nil {
		if err := s.ensureUniqueVideo(ctx, class); err != nil {
			return nil, err
		}
	}

	if err := s.recorded.Update(ctx, class); err != nil {
		return nil, writeError(err, "video link already exists for this stack", "failed to update recorded class")
	}
	return class, nil
}

// DeleteRecorded removes a recording.
func (s *ClassService) DeleteRecorded(ctx context.Context, id string) error {
	if err := s.recorded.Delete(ctx, id); err != nil {
		return lookupError(err, "recorded class not found", "failed to delete recorded class")
	}
	return nil
}

func (s *ClassService) ensureUniqueVideo(ctx context.Context, class *models.RecordedClass) error {
	exists, err := s.recorded.ExistsVideoLink(ctx, string(class.Stack), class.VideoLink, class.ID)
	if err != nil {
		return internalError(err, "failed to check video link")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "video link already exists for this stack")
	}
	return nil
}

// scheduleError converts a rejected window into a 400 with the offending field.
func scheduleError(err error) error {
	var verr *schedule.ValidationError
	if !errors.As(err, &verr) {
		return internalError(err, "failed to resolve class schedule")
	}
	return appErrors.Validation(err, verr.Error(), map[string]string{verr.Field: verr.Error()})
}
