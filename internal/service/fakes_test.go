package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/analysis"
	"github.com/noah-isme/gema-grading-api/internal/database"
	"github.com/noah-isme/gema-grading-api/internal/events"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/repository"
	"github.com/noah-isme/gema-grading-api/pkg/ai"
	"github.com/noah-isme/gema-grading-api/pkg/cloudinary"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

type fakeStorage struct {
	mu         sync.Mutex
	uploadErr  error
	destroyErr error
	uploads    []string
	destroyed  []string
}

func (f *fakeStorage) Upload(_ context.Context, name string, reader io.Reader) (cloudinary.StoredFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := io.ReadAll(reader); err != nil {
		return cloudinary.StoredFile{}, err
	}
	f.uploads = append(f.uploads, name)
	if f.uploadErr != nil {
		return cloudinary.StoredFile{}, f.uploadErr
	}
	return cloudinary.StoredFile{
		PublicID:     "gema/submissions/" + name,
		URL:          "https://cdn.example.com/" + name,
		ResourceType: "raw",
	}, nil
}

func (f *fakeStorage) Destroy(_ context.Context, publicID, resourceType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = append(f.destroyed, resourceType+":"+publicID)
	return f.destroyErr
}

// routedCompleter answers JSON-mode requests with jsonReply and everything else with textReply.
type routedCompleter struct {
	mu        sync.Mutex
	textReply string
	jsonReply string
	err       error
	requests  []ai.CompletionRequest
}

func (f *routedCompleter) Complete(_ context.Context, req ai.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if req.JSON {
		return f.jsonReply, nil
	}
	return f.textReply, nil
}

func (f *routedCompleter) textCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, req := range f.requests {
		if !req.JSON {
			count++
		}
	}
	return count
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]events.Type, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.Type)
	}
	return types
}

type panickingScorer struct{}

func (panickingScorer) Score(context.Context, analysis.ScoringInput) analysis.ScoreResult {
	panic("scorer exploded")
}

type failingCreateRepo struct {
	repository.SubmissionRepository
}

func (failingCreateRepo) Create(context.Context, *models.Submission) error {
	return errors.New("database unavailable")
}

type submissionFixture struct {
	db         *gorm.DB
	repo       repository.SubmissionRepository
	service    SubmissionService
	storage    *fakeStorage
	completer  *routedCompleter
	publisher  *recordingPublisher
	assignment models.Assignment
	student    models.Student
	now        time.Time
}

type fixtureOption func(*fixtureSettings)

type fixtureSettings struct {
	repo   func(repository.SubmissionRepository) repository.SubmissionRepository
	scorer SubmissionScorer
	due    time.Duration
}

func withSubmissionRepo(wrap func(repository.SubmissionRepository) repository.SubmissionRepository) fixtureOption {
	return func(s *fixtureSettings) { s.repo = wrap }
}

func withScorer(scorer SubmissionScorer) fixtureOption {
	return func(s *fixtureSettings) { s.scorer = scorer }
}

func withDueIn(due time.Duration) fixtureOption {
	return func(s *fixtureSettings) { s.due = due }
}

func newSubmissionFixture(t *testing.T, opts ...fixtureOption) *submissionFixture {
	t.Helper()

	settings := fixtureSettings{due: 48 * time.Hour}
	for _, opt := range opts {
		opt(&settings)
	}

	db := setupServiceDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	assignment := models.Assignment{
		Title:       "The water cycle",
		Description: "Explain evaporation, condensation and precipitation.",
		DueDate:     now.Add(settings.due),
		MaxScore:    50,
	}
	require.NoError(t, repository.NewAssignmentRepository(db).Create(ctx, &assignment))

	student := models.Student{Name: "Siti Rahma", Email: "siti@example.com"}
	require.NoError(t, repository.NewStudentRepository(db).Create(ctx, &student))

	repo := repository.NewSubmissionRepository(db)
	serviceRepo := repo
	if settings.repo != nil {
		serviceRepo = settings.repo(repo)
	}

	completer := &routedCompleter{
		textReply: "HIGHLY_RELEVANT",
		jsonReply: `{"score": 76, "confidence": "medium"}`,
	}
	scorer := settings.scorer
	if scorer == nil {
		scorer = analysis.NewScorer(
			analysis.NewAIChecker(completer),
			analysis.NewShingleChecker(NewSubmissionCorpus(repo)),
			testLogger(),
		)
	}

	storage := &fakeStorage{}
	publisher := &recordingPublisher{}
	svc := NewSubmissionService(
		serviceRepo,
		repository.NewAssignmentRepository(db),
		repository.NewStudentRepository(db),
		storage,
		analysis.NewRelevanceGate(completer, testLogger()),
		scorer,
		publisher,
		validator.New(validator.WithRequiredStructEnabled()),
		testLogger(),
	)
	svc.(*submissionService).now = func() time.Time { return now }

	return &submissionFixture{
		db:         db,
		repo:       repo,
		service:    svc,
		storage:    storage,
		completer:  completer,
		publisher:  publisher,
		assignment: assignment,
		student:    student,
		now:        now,
	}
}

func (f *submissionFixture) countSubmissions(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.Submission{}).Count(&count).Error)
	return count
}
