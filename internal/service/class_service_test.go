package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/learnpath-api/internal/dto"
	"github.com/noah-isme/learnpath-api/internal/models"
	"github.com/noah-isme/learnpath-api/internal/repository"
	"github.com/noah-isme/learnpath-api/internal/schedule"
	appErrors "github.com/noah-isme/learnpath-api/pkg/errors"
	"github.com/noah-isme/learnpath-api/pkg/validation"
)

var lagos = time.FixedZone("WAT", 3600)

type fakeLiveRepo struct {
	classes map[string]*models.LiveClass
	stale   bool
	filter  models.ClassFilter
}

func (f *fakeLiveRepo) Create(_ context.Context, class *models.LiveClass) error {
	class.ID = "c-1"
	class.UpdatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clone := *class
	f.classes[class.ID] = &clone
	return nil
}

func (f *fakeLiveRepo) FindByID(_ context.Context, id string) (*models.LiveClass, error) {
	c, ok := f.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *c
	return &clone, nil
}

func (f *fakeLiveRepo) ListUpcoming(_ context.Context, filter models.ClassFilter) ([]models.LiveClass, int, error) {
	f.filter = filter
	out := []models.LiveClass{}
	for _, c := range f.classes {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (f *fakeLiveRepo) Update(_ context.Context, class *models.LiveClass) error {
	if f.stale {
		return repository.ErrStaleWrite
	}
	clone := *class
	f.classes[class.ID] = &clone
	return nil
}

func (f *fakeLiveRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.classes[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.classes, id)
	return nil
}

type fakeRecordedRepo struct {
	classes   map[string]*models.RecordedClass
	linkTaken bool
}

func (f *fakeRecordedRepo) Create(_ context.Context, class *models.RecordedClass) error {
	class.ID = "r-1"
	clone := *class
	f.classes[class.ID] = &clone
	return nil
}

func (f *fakeRecordedRepo) FindByID(_ context.Context, id string) (*models.RecordedClass, error) {
	c, ok := f.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *c
	return &clone, nil
}

func (f *fakeRecordedRepo) ExistsVideoLink(_ context.Context, _, _, _ string) (bool, error) {
	return f.linkTaken, nil
}

func (f *fakeRecordedRepo) List(_ context.Context, _ models.ClassFilter) ([]models.RecordedClass, int, error) {
	return nil, 0, nil
}

func (f *fakeRecordedRepo) Update(_ context.Context, class *models.RecordedClass) error {
	clone := *class
	f.classes[class.ID] = &clone
	return nil
}

func (f *fakeRecordedRepo) Delete(_ context.Context, id string) error {
	delete(f.classes, id)
	return nil
}

func newClassFixture(now time.Time) (*ClassService, *fakeLiveRepo, *fakeRecordedRepo, *memoryCache) {
	live := &fakeLiveRepo{classes: map[string]*models.LiveClass{}}
	recorded := &fakeRecordedRepo{classes: map[string]*models.RecordedClass{}}
	cacheRepo := newMemoryCache()
	cache := NewCacheService(cacheRepo, nil, 0, zap.NewNop(), true)
	reconciler := schedule.NewReconciler(lagos, func() time.Time { return now })
	svc := NewClassService(live, recorded, reconciler, cache, validation.New(), zap.NewNop())
	svc.now = func() time.Time { return now }
	return svc, live, recorded, cacheRepo
}

func strPtr(v string) *string { return &v }

func liveClassRequest() dto.CreateLiveClassRequest {
	return dto.CreateLiveClassRequest{
		Title:       "Go concurrency",
		Description: "Channels and select",
		StartDate:   "2025-01-10",
		StartTime:   "09:00",
		EndTime:     "10:30",
		Stack:       "backend",
		Location:    "Lab 2",
		ClassLink:   "https://meet.example.com/go",
	}
}

func TestClassServiceCreateLiveStoresInstants(t *testing.T) {
	now := time.Date(2025, 1, 1, 8, 0, 0, 0, lagos)
	svc, live, _, cacheRepo := newClassFixture(now)
	cacheRepo.entries[cacheKeyDashboard] = []byte(`{}`)

	resp, err := svc.CreateLive(context.Background(), liveClassRequest())
	require.NoError(t, err)

	stored := live.classes["c-1"]
	assert.True(t, stored.StartAt.Equal(time.Date(2025, 1, 10, 9, 0, 0, 0, lagos)))
	assert.True(t, stored.EndAt.Equal(time.Date(2025, 1, 10, 10, 30, 0, 0, lagos)))
	assert.Equal(t, "2025-01-10", resp.StartDate)
	assert.Equal(t, "09:00", resp.StartTime)
	assert.Equal(t, "10:30", resp.EndTime)
	assert.NotContains(t, cacheRepo.entries, cacheKeyDashboard)
}

func TestClassServiceCreateLiveRejectsBadWindows(t *testing.T) {
	now := time.Date(2025, 1, 10, 9, 30, 0, 0, lagos)
	svc, _, _, _ := newClassFixture(now)

	_, err := svc.CreateLive(context.Background(), liveClassRequest())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "class cannot start in the past", appErr.Message)
	assert.Contains(t, appErr.Details, "start_date")

	req := liveClassRequest()
	req.StartDate = "2025-02-01"
	req.EndTime = "08:00"
	_, err = svc.CreateLive(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, "class cannot end before it starts", appErrors.FromError(err).Message)
}

func TestClassServiceUpdateWithoutScheduleSkipsValidation(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, lagos)
	svc, live, _, _ := newClassFixture(now)
	live.classes["c-9"] = &models.LiveClass{
		ID:      "c-9",
		Title:   "Old class",
		StartAt: time.Date(2025, 1, 10, 9, 0, 0, 0, lagos),
		EndAt:   time.Date(2025, 1, 10, 10, 0, 0, 0, lagos),
	}

	resp, err := svc.UpdateLive(context.Background(), "c-9", dto.UpdateLiveClassRequest{Location: strPtr("Hall B")})
	require.NoError(t, err)
	assert.Equal(t, "Hall B", resp.Location)
	assert.Equal(t, "2025-01-10", resp.StartDate)

	_, err = svc.UpdateLive(context.Background(), "c-9", dto.UpdateLiveClassRequest{EndTime: strPtr("11:00")})
	require.Error(t, err)
	assert.Equal(t, "class cannot start in the past", appErrors.FromError(err).Message)
}

func TestClassServiceUpdateInheritsScheduleFields(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, lagos)
	svc, live, _, _ := newClassFixture(now)
	live.classes["c-9"] = &models.LiveClass{
		ID:      "c-9",
		StartAt: time.Date(2025, 1, 10, 9, 0, 0, 0, lagos),
		EndAt:   time.Date(2025, 1, 10, 10, 0, 0, 0, lagos),
	}

	resp, err := svc.UpdateLive(context.Background(), "c-9", dto.UpdateLiveClassRequest{StartTime: strPtr("09:30")})
	require.NoError(t, err)
	assert.Equal(t, "09:30", resp.StartTime)
	assert.Equal(t, "10:00", resp.EndTime)
	assert.True(t, live.classes["c-9"].StartAt.Equal(time.Date(2025, 1, 10, 9, 30, 0, 0, lagos)))
}

func TestClassServiceUpdateConflictsOnStaleWrite(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, lagos)
	svc, live, _, _ := newClassFixture(now)
	live.classes["c-9"] = &models.LiveClass{ID: "c-9", StartAt: now.Add(48 * time.Hour), EndAt: now.Add(49 * time.Hour)}
	live.stale = true

	_, err := svc.UpdateLive(context.Background(), "c-9", dto.UpdateLiveClassRequest{Title: strPtr("Renamed")})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = svc.UpdateLive(context.Background(), "c-9", dto.UpdateLiveClassRequest{})
	assert.ErrorIs(t, err, appErrors.ErrBadInput)

	_, err = svc.UpdateLive(context.Background(), "missing", dto.UpdateLiveClassRequest{Title: strPtr("x")})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestClassServiceListUpcomingUsesClock(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, lagos)
	svc, live, _, _ := newClassFixture(now)

	_, page, err := svc.ListUpcoming(context.Background(), models.ClassFilter{Stack: "frontend"})
	require.NoError(t, err)
	assert.True(t, live.filter.From.Equal(now))
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.PageSize)

	_, _, err = svc.ListUpcoming(context.Background(), models.ClassFilter{Stack: "devops"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestClassServiceRecordedVideoLinkIsUniquePerStack(t *testing.T) {
	svc, _, recorded, _ := newClassFixture(time.Now())
	req := dto.CreateRecordedClassRequest{
		Title:       "Intro to Figma",
		Description: "Frames and components",
		Date:        "2025-01-05",
		Stack:       "product_design",
		VideoLink:   "https://videos.example.com/figma-1",
	}

	class, err := svc.CreateRecorded(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-05", class.ClassDate.Format(schedule.DateLayout))

	recorded.linkTaken = true
	_, err = svc.CreateRecorded(context.Background(), req)
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = svc.UpdateRecorded(context.Background(), "r-1", dto.UpdateRecordedClassRequest{VideoLink: strPtr("https://videos.example.com/figma-2")})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	recorded.linkTaken = false
	updated, err := svc.UpdateRecorded(context.Background(), "r-1", dto.UpdateRecordedClassRequest{Title: strPtr("Figma basics")})
	require.NoError(t, err)
	assert.Equal(t, "Figma basics", updated.Title)
}
