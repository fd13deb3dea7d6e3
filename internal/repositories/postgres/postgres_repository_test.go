package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SAP-F-2025/student-records-service/internal/models"
	"github.com/SAP-F-2025/student-records-service/internal/repositories"
	"github.com/SAP-F-2025/student-records-service/internal/testutil"
)

func markSheet(studentID uint, class string) *models.MarksRecord {
	score := decimal.RequireFromString("50")
	record := &models.MarksRecord{StudentID: studentID, Class: class}
	record.SetScores([models.SubjectCount]decimal.Decimal{score, score, score, score, score})
	record.TotalMarks = decimal.RequireFromString("250")
	record.Percentage = score
	return record
}

func TestMarksRepository_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewRepository(t, testutil.NewDB(t), nil)
	student := testutil.CreateStudent(t, repo, "Asha", 1, "BIT")

	if err := repo.Marks().Create(ctx, nil, markSheet(student.ID, "BIT")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	err := repo.Marks().Create(ctx, nil, markSheet(student.ID, "BIT"))
	if !repositories.IsDuplicateError(err) {
		t.Fatalf("second sheet for same class: expected duplicate error, got %v", err)
	}

	if err := repo.Marks().Create(ctx, nil, markSheet(student.ID, "BCA")); err != nil {
		t.Fatalf("sheet for another class: %v", err)
	}
}

func TestAttendanceRepository_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewRepository(t, testutil.NewDB(t), nil)
	teacher := testutil.CreateUser(t, repo, "teacher", "password123", models.RoleTeacher)
	other := testutil.CreateUser(t, repo, "teacher2", "password123", models.RoleTeacher)
	pupil := testutil.CreateUser(t, repo, "pupil", "password123", models.RoleStudent)

	day := time.Date(2025, 2, 27, 0, 0, 0, 0, time.UTC)
	record := func(teacherID uint, date time.Time) *models.AttendanceRecord {
		return &models.AttendanceRecord{
			StudentID: pupil.ID,
			TeacherID: teacherID,
			Date:      models.DateOnly(date),
			Status:    models.AttendancePresent,
		}
	}

	if err := repo.Attendance().Create(ctx, nil, record(teacher.ID, day)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	err := repo.Attendance().Create(ctx, nil, record(teacher.ID, day))
	if !repositories.IsDuplicateError(err) {
		t.Fatalf("same student, teacher and date: expected duplicate error, got %v", err)
	}

	if err := repo.Attendance().Create(ctx, nil, record(other.ID, day)); err != nil {
		t.Errorf("another teacher on the same day: %v", err)
	}
	if err := repo.Attendance().Create(ctx, nil, record(teacher.ID, day.AddDate(0, 0, 1))); err != nil {
		t.Errorf("same teacher on the next day: %v", err)
	}
}

func TestStudentRepository_CreateDuplicateRoll(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewRepository(t, testutil.NewDB(t), nil)
	testutil.CreateStudent(t, repo, "Asha", 7, "BIT")

	err := repo.Student().Create(ctx, nil, &models.Student{Name: "Bina", Roll: 7, Address: "Pokhara", Class: "BIT", Section: "B"})
	if !repositories.IsDuplicateError(err) {
		t.Fatalf("expected duplicate roll error, got %v", err)
	}
}

func TestSessionRepository_RevokeOnce(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewRepository(t, testutil.NewDB(t), nil)
	user := testutil.CreateUser(t, repo, "pupil", "password123", models.RoleStudent)

	session := &models.RefreshSession{UserID: user.ID, TokenHash: "hash-1", ExpiresAt: time.Now().Add(time.Hour)}
	if err := repo.Session().Create(ctx, nil, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.Session().Revoke(ctx, nil, session.ID, time.Now()); err != nil {
		t.Fatalf("first Revoke() error = %v", err)
	}
	if err := repo.Session().Revoke(ctx, nil, session.ID, time.Now()); !repositories.IsNotFoundError(err) {
		t.Fatalf("second Revoke(): expected not found, got %v", err)
	}
	if err := repo.Session().Revoke(ctx, nil, 999, time.Now()); !repositories.IsNotFoundError(err) {
		t.Fatalf("Revoke() of missing session: expected not found, got %v", err)
	}
}

func TestUserRepository_HasRole(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewRepository(t, testutil.NewDB(t), nil)
	pupil := testutil.CreateUser(t, repo, "pupil", "password123", models.RoleStudent)

	tests := []struct {
		name string
		id   uint
		role models.UserRole
		want bool
	}{
		{"member", pupil.ID, models.RoleStudent, true},
		{"other role", pupil.ID, models.RoleTeacher, false},
		{"missing user", 999, models.RoleStudent, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.User().HasRole(ctx, nil, tt.id, tt.role)
			if err != nil {
				t.Fatalf("HasRole() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("HasRole() = %v, want %v", got, tt.want)
			}
		})
	}
}
