package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SAP-F-2025/student-records-service/internal/auth"
	"github.com/SAP-F-2025/student-records-service/internal/events"
	"github.com/SAP-F-2025/student-records-service/internal/models"
	"github.com/SAP-F-2025/student-records-service/internal/testutil"
)

func (f *fixture) users() UserService {
	return NewUserService(f.repo, f.db, testutil.Logger(), f.validator, f.publisher)
}

func TestUserService_AdminOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.users()

	for _, user := range []*models.User{f.teacher, f.pupil} {
		p := user.Principal()
		if _, err := svc.List(ctx, p, UserListFilters{}); !errors.Is(err, ErrForbidden) {
			t.Errorf("%s List: got %v", user.Username, err)
		}
		if _, err := svc.GetByID(ctx, p, f.admin.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("%s GetByID: got %v", user.Username, err)
		}
		if err := svc.Delete(ctx, p, f.pupil.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("%s Delete: got %v", user.Username, err)
		}
	}

	if _, err := svc.ListGroups(ctx, nil); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("anonymous ListGroups: got %v", err)
	}
}

func TestUserService_CreateAndList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.users()
	admin := f.admin.Principal()

	user, err := svc.Create(ctx, admin, &RegisterRequest{
		Username: "sita",
		Password: "password123",
		Email:    "sita@example.com",
		Groups:   []string{"student"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !user.HasRole(models.RoleStudent) {
		t.Errorf("roles = %v", user.Roles())
	}

	_, err = svc.Create(ctx, admin, &RegisterRequest{Username: "sita", Password: "password123"})
	assertErrorIs(t, err, ErrDuplicateUsername)

	_, err = svc.Create(ctx, admin, &RegisterRequest{Username: "ram", Password: "short"})
	assertErrorIs(t, err, ErrValidationFailed)

	list, err := svc.List(ctx, admin, UserListFilters{Query: "SIT"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if list.Total != 1 || list.Users[0].Username != "sita" {
		t.Errorf("List(q=SIT) = %+v", list)
	}

	groups, err := svc.ListGroups(ctx, admin)
	if err != nil {
		t.Fatalf("ListGroups() error = %v", err)
	}
	if len(groups) != len(models.AllRoles) {
		t.Errorf("got %d groups, want %d", len(groups), len(models.AllRoles))
	}
}

func TestUserService_Update(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.users()
	admin := f.admin.Principal()

	t.Run("profile change keeps password", func(t *testing.T) {
		name := "Hari"
		updated, err := svc.Update(ctx, admin, f.teacher.ID, &UserUpdateRequest{FirstName: &name})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if updated.FirstName != "Hari" {
			t.Errorf("FirstName = %q", updated.FirstName)
		}

		stored, err := f.repo.User().GetByUsername(ctx, nil, "teacher")
		if err != nil {
			t.Fatalf("GetByUsername() error = %v", err)
		}
		if !auth.CheckPassword(stored.PasswordHash, "password123") {
			t.Error("password hash was overwritten")
		}
	})

	t.Run("groups are replaced", func(t *testing.T) {
		updated, err := svc.Update(ctx, admin, f.teacher.ID, &UserUpdateRequest{Groups: []string{"teacher", "admin"}})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if !updated.HasRole(models.RoleAdmin) || !updated.HasRole(models.RoleTeacher) {
			t.Errorf("roles = %v", updated.Roles())
		}
	})

	t.Run("username taken", func(t *testing.T) {
		taken := "pupil"
		_, err := svc.Update(ctx, admin, f.teacher.ID, &UserUpdateRequest{Username: &taken})
		assertErrorIs(t, err, ErrDuplicateUsername)
	})

	t.Run("missing user", func(t *testing.T) {
		name := "x"
		_, err := svc.Update(ctx, admin, 9999, &UserUpdateRequest{FirstName: &name})
		assertErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("deactivation revokes sessions", func(t *testing.T) {
		session := &models.RefreshSession{
			UserID:    f.pupil.ID,
			TokenHash: auth.HashToken("pupil-refresh"),
			ExpiresAt: time.Now().Add(time.Hour).UTC(),
		}
		if err := f.repo.Session().Create(ctx, nil, session); err != nil {
			t.Fatalf("create session: %v", err)
		}

		inactive := false
		if _, err := svc.Update(ctx, admin, f.pupil.ID, &UserUpdateRequest{IsActive: &inactive}); err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		stored, err := f.repo.Session().GetByHash(ctx, nil, session.TokenHash)
		if err != nil {
			t.Fatalf("GetByHash() error = %v", err)
		}
		if stored.IsUsable(time.Now()) {
			t.Error("session should be revoked")
		}
	})
}

func TestUserService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.users()
	admin := f.admin.Principal()

	err := svc.Delete(ctx, admin, f.admin.ID)
	assertErrorIs(t, err, ErrValidationFailed)

	if err := svc.Delete(ctx, admin, f.pupil.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.GetByID(ctx, admin, f.pupil.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByID after delete: got %v", err)
	}

	assertErrorIs(t, svc.Delete(ctx, admin, f.pupil.ID), ErrUserNotFound)

	if got := f.publisher.Types(); len(got) != 1 || got[0] != events.UserDeleted {
		t.Errorf("published = %v", got)
	}
}
