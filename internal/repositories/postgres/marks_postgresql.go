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

type MarksPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewMarksPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.MarksRepository {
	return &MarksPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// Create inserts a mark sheet; a second sheet for the same (student, class) is repositories.ErrDuplicate
func (m *MarksPostgreSQL) Create(ctx context.Context, tx *gorm.DB, record *models.MarksRecord) error {
	db := m.getDB(tx)
	if err := db.WithContext(ctx).Omit("Student").Create(record).Error; err != nil {
		return translateWriteError("create marks", err)
	}

	if tx == nil {
		cache.InvalidateMarksCache(ctx, m.cacheManager, record.StudentID)
	}
	return nil
}

func (m *MarksPostgreSQL) Update(ctx context.Context, tx *gorm.DB, record *models.MarksRecord) error {
	db := m.getDB(tx)
	if err := db.WithContext(ctx).Omit("Student").Save(record).Error; err != nil {
		return translateWriteError("update marks", err)
	}

	if tx == nil {
		cache.InvalidateMarksCache(ctx, m.cacheManager, record.StudentID)
	}
	return nil
}

func (m *MarksPostgreSQL) Get(ctx context.Context, tx *gorm.DB, studentID uint, class string) (*models.MarksRecord, error) {
	db := m.getDB(tx)
	var record models.MarksRecord
	err := db.WithContext(ctx).
		Where("student_id = ? AND class = ?", studentID, class).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("marks not found for student %d in class %q: %w", studentID, class, err)
		}
		return nil, fmt.Errorf("failed to get marks: %w", err)
	}
	return &record, nil
}

// List returns mark sheets ordered by student roll. Per-student lookups go through the cache.
func (m *MarksPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.MarksFilters) ([]*models.MarksRecord, error) {
	db := m.getDB(tx)
	fetch := func() (interface{}, error) {
		query := db.WithContext(ctx).Model(&models.MarksRecord{}).
			Joins("JOIN students ON students.id = student_marks.student_id")
		if filters.StudentID != nil {
			query = query.Where("student_marks.student_id = ?", *filters.StudentID)
		}
		if filters.Class != nil {
			query = query.Where("student_marks.class = ?", *filters.Class)
		}

		records := make([]*models.MarksRecord, 0)
		if err := query.Order("students.roll ASC, student_marks.id ASC").Find(&records).Error; err != nil {
			return nil, fmt.Errorf("failed to list marks: %w", err)
		}
		return records, nil
	}

	if filters.StudentID == nil || filters.Class != nil || tx != nil {
		value, err := fetch()
		if err != nil {
			return nil, err
		}
		return value.([]*models.MarksRecord), nil
	}

	var records []*models.MarksRecord
	if err := m.cacheManager.Marks.CacheOrExecute(ctx, cache.MarksKey(*filters.StudentID), &records, cache.MarksCacheConfig.TTL, fetch); err != nil {
		return nil, err
	}
	if records == nil {
		records = make([]*models.MarksRecord, 0)
	}
	return records, nil
}

func (m *MarksPostgreSQL) Exists(ctx context.Context, tx *gorm.DB, studentID uint, class string) (bool, error) {
	db := m.getDB(tx)
	var count int64
	err := db.WithContext(ctx).Model(&models.MarksRecord{}).
		Where("student_id = ? AND class = ?", studentID, class).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check marks: %w", err)
	}
	return count > 0, nil
}

// Delete removes every sheet matching the filters and reports how many went
func (m *MarksPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, filters repositories.MarksFilters) (int64, error) {
	if filters.StudentID == nil {
		return 0, fmt.Errorf("failed to delete marks: student id is required")
	}

	db := m.getDB(tx)
	query := db.WithContext(ctx).Where("student_id = ?", *filters.StudentID)
	if filters.Class != nil {
		query = query.Where("class = ?", *filters.Class)
	}

	result := query.Delete(&models.MarksRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete marks: %w", result.Error)
	}

	if tx == nil {
		cache.InvalidateMarksCache(ctx, m.cacheManager, *filters.StudentID)
	}
	return result.RowsAffected, nil
}

func (m *MarksPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return m.db
}
