package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/student-records-service/internal/assets"
	"github.com/SAP-F-2025/student-records-service/internal/events"
	"github.com/SAP-F-2025/student-records-service/internal/models"
	"github.com/SAP-F-2025/student-records-service/internal/repositories"
	"github.com/SAP-F-2025/student-records-service/internal/testutil"
	"github.com/SAP-F-2025/student-records-service/internal/validator"
)

type fixture struct {
	db        *gorm.DB
	repo      repositories.Repository
	validator *validator.Validator
	publisher *events.MockEventPublisher
	store     *fakeStore

	admin   *models.User
	teacher *models.User
	pupil   *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	repo := testutil.NewRepository(t, db, nil)

	return &fixture{
		db:        db,
		repo:      repo,
		validator: validator.New(),
		publisher: events.NewMockEventPublisher(testutil.Logger()),
		store:     newFakeStore(),
		admin:     testutil.CreateUser(t, repo, "admin", "password123", models.RoleAdmin),
		teacher:   testutil.CreateUser(t, repo, "teacher", "password123", models.RoleTeacher),
		pupil:     testutil.CreateUser(t, repo, "pupil", "password123", models.RoleStudent),
	}
}

func (f *fixture) marks() MarksService {
	return NewMarksService(f.repo, f.db, testutil.Logger(), f.validator, f.publisher)
}

func (f *fixture) students() StudentService {
	return NewStudentService(f.repo, f.db, testutil.Logger(), f.validator, f.publisher, f.store)
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func sampleScores() validator.MarksScores {
	return validator.MarksScores{
		DSA:           dec("80.00"),
		Java:          dec("75.50"),
		SAD:           dec("90.00"),
		WebTechnology: dec("60.25"),
		ProbAndStats:  dec("85.00"),
	}
}

func assertErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected error %v, got %v", target, err)
	}
}

// fakeStore keeps photos in memory
type fakeStore struct {
	mu        sync.Mutex
	files     map[string][]byte
	deleted   []string
	deleteErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{files: make(map[string][]byte)}
}

func (s *fakeStore) Save(ctx context.Context, studentID uint, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if string(data) == "not-an-image" {
		return "", assets.ErrInvalidImage
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ref := fmt.Sprintf("students/%d_%d.jpg", studentID, len(s.files))
	s.files[ref] = data
	return ref, nil
}

func (s *fakeStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[ref]
	if !ok {
		return nil, assets.ErrAssetNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStore) Delete(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, ref)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.files, ref)
	return nil
}

func (s *fakeStore) wasDeleted(ref string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.deleted, ref)
}

func TestAuthorizeTranslatesDecision(t *testing.T) {
	if err := Authorize(nil, "write", "student"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("anonymous write: got %v, want ErrUnauthorized", err)
	}

	teacher := &models.Principal{UserID: 2, Roles: []models.UserRole{models.RoleTeacher}}
	if err := Authorize(teacher, "write", "student"); !errors.Is(err, ErrForbidden) {
		t.Errorf("teacher student write: got %v, want ErrForbidden", err)
	}
	if err := Authorize(teacher, "write", "marks"); err != nil {
		t.Errorf("teacher marks write: unexpected %v", err)
	}
}

func TestValidationErrorMatchesCategory(t *testing.T) {
	err := fieldError("roll", "must be a positive integer")

	if !errors.Is(err, ErrValidationFailed) {
		t.Fatal("expected errors.Is(err, ErrValidationFailed)")
	}

	var details ValidationErrors
	if !errors.As(err, &details) {
		t.Fatal("expected ValidationErrors to be extractable")
	}
	if len(details) != 1 || details[0].Field != "roll" {
		t.Errorf("details = %+v", details)
	}
}

// runConcurrently starts n calls of fn together and counts how many
// succeeded and how many failed with target. Any other error fails the test.
func runConcurrently(t *testing.T, n int, target error, fn func() error) (succeeded, matched int) {
	t.Helper()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	start := make(chan struct{})
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := fn()
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, target):
				matched++
			default:
				t.Errorf("unexpected error = %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()
	return succeeded, matched
}
