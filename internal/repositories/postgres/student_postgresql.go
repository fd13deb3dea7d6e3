package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/student-records-service/internal/cache"
	"github.com/SAP-F-2025/student-records-service/internal/models"
	"github.com/SAP-F-2025/student-records-service/internal/repositories"
)

type StudentPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewStudentPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.StudentRepository {
	return &StudentPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// Create inserts a student; a taken roll number surfaces as repositories.ErrDuplicate
func (s *StudentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, student *models.Student) error {
	db := s.getDB(tx)
	if err := db.WithContext(ctx).Create(student).Error; err != nil {
		return translateWriteError("create student", err)
	}

	return nil
}

// GetByID retrieves a student by ID with caching
func (s *StudentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Student, error) {
	db := s.getDB(tx)
	var student models.Student

	err := s.cacheManager.Student.CacheOrExecute(ctx, cache.StudentKey(id), &student, cache.StudentCacheConfig.TTL, func() (interface{}, error) {
		var dbStudent models.Student
		if err := db.WithContext(ctx).First(&dbStudent, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, notFound("student", id)
			}
			return nil, fmt.Errorf("failed to get student: %w", err)
		}
		return &dbStudent, nil
	})
	if err != nil {
		return nil, err
	}

	return &student, nil
}

func (s *StudentPostgreSQL) Update(ctx context.Context, tx *gorm.DB, student *models.Student) error {
	db := s.getDB(tx)
	result := db.WithContext(ctx).Model(student).Select("name", "roll", "address", "student_class", "section", "photo", "updated_at").Updates(student)
	if result.Error != nil {
		return translateWriteError("update student", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("student", student.ID)
	}

	if tx == nil {
		cache.InvalidateStudentCache(ctx, s.cacheManager, student.ID)
	}
	return nil
}

// Delete removes the student; mark sheets go with it through the foreign key
func (s *StudentPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := s.getDB(tx)
	result := db.WithContext(ctx).Delete(&models.Student{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete student: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("student", id)
	}

	if tx == nil {
		cache.InvalidateStudentCache(ctx, s.cacheManager, id)
	}
	return nil
}

// Evict drops the cached student and its mark sheets. Writes made inside a
// transaction leave the cache alone until the caller evicts after commit.
func (s *StudentPostgreSQL) Evict(ctx context.Context, id uint) {
	cache.InvalidateStudentCache(ctx, s.cacheManager, id)
}

func (s *StudentPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.StudentFilters) ([]*models.Student, int64, error) {
	db := s.getDB(tx)
	query := db.WithContext(ctx).Model(&models.Student{})
	if filters.Search != "" {
		query = query.Where("LOWER(name) LIKE ? ESCAPE '\\'", likePattern(filters.Search))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count students: %w", err)
	}

	var students []*models.Student
	if err := applyPagination(query.Order("roll ASC, name ASC"), filters.Limit, filters.Offset).Find(&students).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list students: %w", err)
	}

	return students, total, nil
}

// ExistsByRoll checks roll uniqueness, optionally ignoring one student
func (s *StudentPostgreSQL) ExistsByRoll(ctx context.Context, tx *gorm.DB, roll int, excludeID *uint) (bool, error) {
	db := s.getDB(tx)
	query := db.WithContext(ctx).Model(&models.Student{}).Where("roll = ?", roll)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check roll: %w", err)
	}
	return count > 0, nil
}

func (s *StudentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}
