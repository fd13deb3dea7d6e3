package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/SAP-F-2025/student-records-service/internal/events"
	"github.com/SAP-F-2025/student-records-service/internal/models"
	"github.com/SAP-F-2025/student-records-service/internal/testutil"
)

func TestDeriveMarksTotals(t *testing.T) {
	tests := []struct {
		name           string
		scores         []string
		wantTotal      string
		wantPercentage string
	}{
		{"sample sheet", []string{"80.00", "75.50", "90.00", "60.25", "85.00"}, "390.75", "78.15"},
		{"all zero", []string{"0", "0", "0", "0", "0"}, "0", "0"},
		{"full marks", []string{"100", "100", "100", "100", "100"}, "500", "100"},
		{"drops third decimal", []string{"33.33", "33.33", "33.33", "0", "0.03"}, "100.02", "20"},
		{"rounds third decimal up", []string{"99.99", "0", "0", "0", "0"}, "99.99", "20"},
		{"smallest step", []string{"0.03", "0", "0", "0", "0"}, "0.03", "0.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var scores [models.SubjectCount]decimal.Decimal
			for i, s := range tt.scores {
				scores[i] = decimal.RequireFromString(s)
			}

			total, percentage := DeriveMarksTotals(scores)
			if !total.Equal(decimal.RequireFromString(tt.wantTotal)) {
				t.Errorf("total = %s, want %s", total, tt.wantTotal)
			}
			if !percentage.Equal(decimal.RequireFromString(tt.wantPercentage)) {
				t.Errorf("percentage = %s, want %s", percentage, tt.wantPercentage)
			}
		})
	}
}

func TestMarksService_Create(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.marks()
	student := testutil.CreateStudent(t, f.repo, "Asha", 1, "BIT")

	t.Run("records sheet for the student's class", func(t *testing.T) {
		otherClass := "BCA"
		record, err := svc.Create(ctx, f.teacher.Principal(), &MarksCreateRequest{
			StudentID:   student.ID,
			Class:       &otherClass,
			MarksScores: sampleScores(),
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		if record.Class != "BIT" {
			t.Errorf("Class = %q, want BIT", record.Class)
		}
		if !record.TotalMarks.Equal(decimal.RequireFromString("390.75")) {
			t.Errorf("TotalMarks = %s", record.TotalMarks)
		}
		if !record.Percentage.Equal(decimal.RequireFromString("78.15")) {
			t.Errorf("Percentage = %s", record.Percentage)
		}

		stored, err := f.repo.Marks().Get(ctx, nil, student.ID, "BIT")
		if err != nil {
			t.Fatalf("stored sheet: %v", err)
		}
		if !stored.Percentage.Equal(decimal.RequireFromString("78.15")) {
			t.Errorf("stored Percentage = %s", stored.Percentage)
		}
	})

	t.Run("second sheet for same class conflicts", func(t *testing.T) {
		_, err := svc.Create(ctx, f.admin.Principal(), &MarksCreateRequest{StudentID: student.ID, MarksScores: sampleScores()})
		assertErrorIs(t, err, ErrConflict)
		assertErrorIs(t, err, ErrDuplicateMarks)
	})

	t.Run("unknown student", func(t *testing.T) {
		_, err := svc.Create(ctx, f.teacher.Principal(), &MarksCreateRequest{StudentID: 9999, MarksScores: sampleScores()})
		assertErrorIs(t, err, ErrNotFound)
	})

	t.Run("student role is forbidden", func(t *testing.T) {
		_, err := svc.Create(ctx, f.pupil.Principal(), &MarksCreateRequest{StudentID: student.ID, MarksScores: sampleScores()})
		assertErrorIs(t, err, ErrForbidden)
	})

	t.Run("anonymous is unauthorized", func(t *testing.T) {
		_, err := svc.Create(ctx, nil, &MarksCreateRequest{StudentID: student.ID, MarksScores: sampleScores()})
		assertErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("score out of range", func(t *testing.T) {
		scores := sampleScores()
		scores.Java = dec("100.5")
		_, err := svc.Create(ctx, f.teacher.Principal(), &MarksCreateRequest{StudentID: student.ID, MarksScores: scores})
		assertErrorIs(t, err, ErrValidationFailed)

		var details ValidationErrors
		if !errors.As(err, &details) || details[0].Field != "Java" {
			t.Errorf("details = %v", details)
		}
	})

	if got := f.publisher.Types(); len(got) != 1 || got[0] != events.MarksRecorded {
		t.Errorf("published = %v, want one marks.recorded", got)
	}
}

func TestMarksService_Update(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.marks()
	teacher := f.teacher.Principal()
	student := testutil.CreateStudent(t, f.repo, "Bikash", 2, "BIT")

	if _, err := svc.Create(ctx, teacher, &MarksCreateRequest{StudentID: student.ID, MarksScores: sampleScores()}); err != nil {
		t.Fatalf("seed marks: %v", err)
	}

	t.Run("partial update recomputes totals", func(t *testing.T) {
		record, err := svc.Update(ctx, teacher, student.ID, nil, &MarksUpdateRequest{Java: dec("95.50")})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if !record.TotalMarks.Equal(decimal.RequireFromString("410.75")) {
			t.Errorf("TotalMarks = %s, want 410.75", record.TotalMarks)
		}
		if !record.Percentage.Equal(decimal.RequireFromString("82.15")) {
			t.Errorf("Percentage = %s, want 82.15", record.Percentage)
		}
		if !record.DSA.Equal(decimal.RequireFromString("80")) {
			t.Errorf("DSA changed to %s", record.DSA)
		}
	})

	t.Run("ambiguous without class", func(t *testing.T) {
		student.Class = "MBA"
		if err := f.repo.Student().Update(ctx, nil, student); err != nil {
			t.Fatalf("move class: %v", err)
		}
		if _, err := svc.Create(ctx, teacher, &MarksCreateRequest{StudentID: student.ID, MarksScores: sampleScores()}); err != nil {
			t.Fatalf("second sheet: %v", err)
		}

		_, err := svc.Update(ctx, teacher, student.ID, nil, &MarksUpdateRequest{SAD: dec("10")})
		assertErrorIs(t, err, ErrValidationFailed)

		class := "MBA"
		record, err := svc.Update(ctx, teacher, student.ID, &class, &MarksUpdateRequest{SAD: dec("10")})
		if err != nil {
			t.Fatalf("Update(class) error = %v", err)
		}
		if record.Class != "MBA" || !record.SAD.Equal(decimal.NewFromInt(10)) {
			t.Errorf("updated wrong sheet: %+v", record)
		}
	})

	t.Run("missing sheet", func(t *testing.T) {
		class := "PhD"
		_, err := svc.Update(ctx, teacher, student.ID, &class, &MarksUpdateRequest{SAD: dec("10")})
		assertErrorIs(t, err, ErrMarksNotFound)
	})

	t.Run("empty update", func(t *testing.T) {
		_, err := svc.Update(ctx, teacher, student.ID, nil, &MarksUpdateRequest{})
		assertErrorIs(t, err, ErrValidationFailed)
	})
}

func TestMarksService_DeleteAndList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.marks()
	teacher := f.teacher.Principal()
	first := testutil.CreateStudent(t, f.repo, "Chandra", 5, "BIT")
	second := testutil.CreateStudent(t, f.repo, "Deepa", 3, "BIT")

	for _, s := range []*models.Student{first, second} {
		if _, err := svc.Create(ctx, teacher, &MarksCreateRequest{StudentID: s.ID, MarksScores: sampleScores()}); err != nil {
			t.Fatalf("seed marks: %v", err)
		}
	}

	all, err := svc.List(ctx, f.pupil.Principal(), nil)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 || all[0].StudentID != second.ID {
		t.Fatalf("List() should order by roll, got %d records", len(all))
	}

	if _, err := svc.List(ctx, nil, nil); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("anonymous List: got %v", err)
	}

	if _, err := svc.List(ctx, teacher, ptr(uint(4242))); !errors.Is(err, ErrStudentNotFound) {
		t.Errorf("List(missing student): got %v", err)
	}

	if err := svc.Delete(ctx, teacher, first.ID, nil); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := svc.Delete(ctx, teacher, first.ID, nil); !errors.Is(err, ErrMarksNotFound) {
		t.Errorf("second Delete: got %v", err)
	}

	empty, err := svc.List(ctx, teacher, &first.ID)
	if err != nil {
		t.Fatalf("List(student without marks) error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no records, got %d", len(empty))
	}

	bit := "BIT"
	if err := svc.Delete(ctx, f.pupil.Principal(), second.ID, &bit); !errors.Is(err, ErrForbidden) {
		t.Errorf("student Delete: got %v", err)
	}
}

func ptr[T any](v T) *T {
	return &v
}

func TestMarksService_CreateConcurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.marks()
	student := testutil.CreateStudent(t, f.repo, "Bina", 2, "BIT")

	const workers = 8
	created, conflicts := runConcurrently(t, workers, ErrConflict, func() error {
		_, err := svc.Create(ctx, f.teacher.Principal(), &MarksCreateRequest{StudentID: student.ID, MarksScores: sampleScores()})
		return err
	})
	if created != 1 || conflicts != workers-1 {
		t.Fatalf("expected 1 sheet and %d conflicts, got %d and %d", workers-1, created, conflicts)
	}
}
