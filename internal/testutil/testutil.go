// Package testutil builds an in-memory SQLite store for package tests.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/student-records-service/internal/auth"
	"github.com/SAP-F-2025/student-records-service/internal/models"
	"github.com/SAP-F-2025/student-records-service/internal/repositories"
	"github.com/SAP-F-2025/student-records-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/student-records-service/pkg"
)

// NewDB opens a migrated in-memory database closed at test cleanup
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := pkg.OpenDatabase("sqlite", "file::memory:", &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := pkg.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return db
}

// NewRepository wires the gorm repository over db with an optional Redis client
// and seeds the role groups
func NewRepository(t testing.TB, db *gorm.DB, redisClient *redis.Client) repositories.Repository {
	t.Helper()

	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db, RedisClient: redisClient})
	if err := repo.Group().EnsureDefaults(context.Background(), nil); err != nil {
		t.Fatalf("seed groups: %v", err)
	}
	return repo
}

// Logger discards all output
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// CreateUser stores an active user with the given password and role groups
func CreateUser(t testing.TB, repo repositories.Repository, username, password string, roles ...models.UserRole) *models.User {
	t.Helper()
	ctx := context.Background()

	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	groups, err := repo.Group().GetByNames(ctx, nil, names)
	if err != nil {
		t.Fatalf("groups %v: %v", names, err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
		Groups:       groups,
	}
	if err := repo.User().Create(ctx, nil, user); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

// CreateStudent stores a student record
func CreateStudent(t testing.TB, repo repositories.Repository, name string, roll int, class string) *models.Student {
	t.Helper()

	student := &models.Student{
		Name:    name,
		Roll:    roll,
		Address: "Kathmandu",
		Class:   class,
		Section: "A",
	}
	if err := repo.Student().Create(context.Background(), nil, student); err != nil {
		t.Fatalf("create student %s: %v", name, err)
	}
	return student
}

// Principal returns the identity of a stored user
func Principal(user *models.User) *models.Principal {
	return user.Principal()
}
