package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/student-records-service/internal/cache"
	"github.com/SAP-F-2025/student-records-service/internal/models"
	"github.com/SAP-F-2025/student-records-service/internal/repositories"
)

type UserPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewUserPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.UserRepository {
	return &UserPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (u *UserPostgreSQL) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	db := u.getDB(tx)
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		return translateWriteError("create user", err)
	}
	return nil
}

// GetByID loads a user with groups. PasswordHash is never cached, so it is empty here.
func (u *UserPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error) {
	db := u.getDB(tx)
	var user models.User

	err := u.cacheManager.User.CacheOrExecute(ctx, userKey(id), &user, cache.UserCacheConfig.TTL, func() (interface{}, error) {
		var dbUser models.User
		if err := db.WithContext(ctx).Preload("Groups").First(&dbUser, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, notFound("user", id)
			}
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		return &dbUser, nil
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (u *UserPostgreSQL) GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.User, error) {
	db := u.getDB(tx)
	var user models.User
	if err := db.WithContext(ctx).Preload("Groups").Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %q not found: %w", username, err)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// Update saves profile columns. The password hash is written only when set;
// group membership goes through ReplaceGroups.
func (u *UserPostgreSQL) Update(ctx context.Context, tx *gorm.DB, user *models.User) error {
	db := u.getDB(tx)
	columns := []string{"username", "email", "first_name", "last_name", "is_superuser", "is_active", "updated_at"}
	if user.PasswordHash != "" {
		columns = append(columns, "password_hash")
	}
	result := db.WithContext(ctx).Model(user).Select(columns).Updates(user)
	if result.Error != nil {
		return translateWriteError("update user", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("user", user.ID)
	}

	cache.SafeDelete(ctx, u.cacheManager.User, userKey(user.ID))
	return nil
}

func (u *UserPostgreSQL) ReplaceGroups(ctx context.Context, tx *gorm.DB, user *models.User, groups []models.Group) error {
	db := u.getDB(tx)
	if err := db.WithContext(ctx).Model(user).Association("Groups").Replace(groups); err != nil {
		return fmt.Errorf("failed to replace user groups: %w", err)
	}
	user.Groups = groups

	cache.SafeDelete(ctx, u.cacheManager.User, userKey(user.ID))
	return nil
}

func (u *UserPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := u.getDB(tx)
	if err := db.WithContext(ctx).Exec("DELETE FROM user_groups WHERE user_id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete user groups: %w", err)
	}

	result := db.WithContext(ctx).Delete(&models.User{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("user", id)
	}

	cache.SafeDelete(ctx, u.cacheManager.User, userKey(id))
	return nil
}

func (u *UserPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.UserFilters) ([]*models.User, int64, error) {
	db := u.getDB(tx)
	query := db.WithContext(ctx).Model(&models.User{})
	if filters.Query != "" {
		pattern := likePattern(filters.Query)
		query = query.Where("LOWER(username) LIKE ? ESCAPE '\\' OR LOWER(email) LIKE ? ESCAPE '\\'", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	users := make([]*models.User, 0)
	if err := applyPagination(query.Preload("Groups").Order("id ASC"), filters.Limit, filters.Offset).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	return users, total, nil
}

func (u *UserPostgreSQL) ExistsByUsername(ctx context.Context, tx *gorm.DB, username string) (bool, error) {
	db := u.getDB(tx)
	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return count > 0, nil
}

// HasRole checks group membership without loading the user
func (u *UserPostgreSQL) HasRole(ctx context.Context, tx *gorm.DB, id uint, role models.UserRole) (bool, error) {
	db := u.getDB(tx)
	var count int64
	err := db.WithContext(ctx).Table("user_groups").
		Joins("JOIN groups ON groups.id = user_groups.group_id").
		Where("user_groups.user_id = ? AND groups.name = ?", id, string(role)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check user role: %w", err)
	}
	return count > 0, nil
}

func (u *UserPostgreSQL) TouchLastLogin(ctx context.Context, tx *gorm.DB, id uint) error {
	db := u.getDB(tx)
	if err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("last_login_at", time.Now().UTC()).Error; err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

func (u *UserPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return u.db
}

func userKey(id uint) string {
	return fmt.Sprintf("id:%d", id)
}
