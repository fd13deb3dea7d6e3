package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/student-records-service/internal/models"
)

// UserFilters defines filters for user queries
type UserFilters struct {
	Query  string // Search query for username or email
	Limit  int
	Offset int
}

// UserRepository stores accounts and their group membership
type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.User, error)
	Update(ctx context.Context, tx *gorm.DB, user *models.User) error
	ReplaceGroups(ctx context.Context, tx *gorm.DB, user *models.User, groups []models.Group) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, filters UserFilters) ([]*models.User, int64, error)

	ExistsByUsername(ctx context.Context, tx *gorm.DB, username string) (bool, error)
	HasRole(ctx context.Context, tx *gorm.DB, id uint, role models.UserRole) (bool, error)
	TouchLastLogin(ctx context.Context, tx *gorm.DB, id uint) error
}
