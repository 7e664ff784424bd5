package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/learnpath-api/internal/models"
	"github.com/noah-isme/learnpath-api/internal/repository"
	appErrors "github.com/noah-isme/learnpath-api/pkg/errors"
	"github.com/noah-isme/learnpath-api/pkg/validation"
)

type fakeRosterRepo struct {
	existing  []string
	looked    []string
	created   []models.Student
	createErr error
	filter    models.StudentFilter
	byEmail   map[string]models.Student
}

func (f *fakeRosterRepo) List(_ context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	f.filter = filter
	return nil, 0, nil
}

func (f *fakeRosterRepo) FindByEmail(_ context.Context, email string) (*models.Student, error) {
	if s, ok := f.byEmail[email]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRosterRepo) ExistingEmails(_ context.Context, emails []string) ([]string, error) {
	f.looked = emails
	return f.existing, nil
}

func (f *fakeRosterRepo) CreateMany(_ context.Context, students []models.Student) error {
	if f.createErr != nil {
		return f.createErr
	}
	for i := range students {
		students[i].ID = "s-" + students[i].Email
	}
	f.created = append(f.created, students...)
	return nil
}

const rosterCSV = `Email Address,First Name,Last Name,Gender,Track
,Missing,Email,female,backend
taken@example.com,Taken,Already,male,frontend
one@example.com,One,Uno,female,backend
TWO@example.com,Two,Dos,male,product design
three@example.com,Three,Tres,female,frontend
`

func TestStudentServiceImportPartitionsRoster(t *testing.T) {
	repo := &fakeRosterRepo{existing: []string{"taken@example.com"}}
	archive := &fakeArchive{}
	audit := &fakeAudit{}
	metrics := NewMetricsService()
	cacheRepo := newMemoryCache()
	cacheRepo.entries[cacheKeyDashboard] = []byte(`{}`)
	cache := NewCacheService(cacheRepo, nil, 0, zap.NewNop(), true)
	svc := NewStudentService(repo, archive, audit, metrics, cache, validation.New(), zap.NewNop())

	result, err := svc.Import(context.Background(), Upload{Filename: "roster.csv", Data: []byte(rosterCSV)},
		&models.JWTClaims{UserID: "a-1", Role: models.RoleAdmin}, models.RequestMeta{IP: "10.0.0.3"})
	require.NoError(t, err)

	assert.Equal(t, 5, result.Summary.Rows)
	assert.Equal(t, 3, result.Summary.Created)
	assert.Equal(t, 1, result.Summary.Duplicates)
	assert.Equal(t, 1, result.Summary.Invalid)
	assert.Equal(t, []string{"taken@example.com"}, result.Duplicates)
	assert.ElementsMatch(t, []string{"taken@example.com", "one@example.com", "two@example.com", "three@example.com"}, repo.looked)

	require.Len(t, repo.created, 3)
	assert.Equal(t, "two@example.com", repo.created[1].Email)
	assert.Equal(t, models.StackProductDesign, repo.created[1].Stack)
	assert.Equal(t, models.StatusInactive, repo.created[1].Status)
	assert.Equal(t, "s-one@example.com", result.Created[0].ID)

	assert.Equal(t, "students", archive.kind)
	assert.Equal(t, "roster.csv", archive.name)
	assert.True(t, strings.HasPrefix(result.ArchivedAs, "students/"))

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionBulkImport, audit.logs[0].Action)
	assert.Contains(t, string(audit.logs[0].Metadata), `"created":3`)
	assert.Equal(t, uint64(3), metrics.Snapshot().ImportedRows)
	assert.NotContains(t, cacheRepo.entries, cacheKeyDashboard)
}

func TestStudentServiceImportRejectsUnusableUploads(t *testing.T) {
	svc := NewStudentService(&fakeRosterRepo{}, nil, nil, nil, nil, validation.New(), zap.NewNop())

	_, err := svc.Import(context.Background(), Upload{Filename: "roster.pdf", Data: []byte("%PDF")}, nil, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrBadInput)

	_, err = svc.Import(context.Background(), Upload{Filename: "roster.csv", Data: []byte("email,firstname\n")}, nil, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrBadInput)

	var many strings.Builder
	many.WriteString("email,firstname,lastname,gender,stack\n")
	for i := 0; i < 101; i++ {
		many.WriteString("user")
		many.WriteString(strings.Repeat("x", i))
		many.WriteString("@example.com,A,B,male,backend\n")
	}
	_, err = svc.Import(context.Background(), Upload{Filename: "roster.csv", Data: []byte(many.String())}, nil, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrBadInput)
}

func TestStudentServiceImportReportsRacingInsert(t *testing.T) {
	repo := &fakeRosterRepo{createErr: repository.ErrDuplicate}
	svc := NewStudentService(repo, nil, nil, nil, nil, validation.New(), zap.NewNop())

	_, err := svc.Import(context.Background(), Upload{Filename: "roster.csv", Data: []byte(rosterCSV)}, nil, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestStudentServiceListAndGet(t *testing.T) {
	repo := &fakeRosterRepo{byEmail: map[string]models.Student{"ada@example.com": {ID: "s-1", Email: "ada@example.com"}}}
	svc := NewStudentService(repo, nil, nil, nil, nil, validation.New(), zap.NewNop())

	students, page, err := svc.List(context.Background(), models.StudentFilter{Stack: " Backend ", ListParams: models.ListParams{Page: 2, PageSize: 500}})
	require.NoError(t, err)
	assert.NotNil(t, students)
	assert.Equal(t, "backend", repo.filter.Stack)
	assert.Equal(t, 100, page.PageSize)
	assert.Equal(t, 2, page.Page)

	student, err := svc.GetByEmail(context.Background(), "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "s-1", student.ID)

	_, err = svc.GetByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
