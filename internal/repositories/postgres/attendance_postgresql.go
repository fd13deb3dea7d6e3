package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/student-records-service/internal/models"
	"github.com/SAP-F-2025/student-records-service/internal/repositories"
)

type AttendancePostgreSQL struct {
	db *gorm.DB
}

func NewAttendancePostgreSQL(db *gorm.DB) repositories.AttendanceRepository {
	return &AttendancePostgreSQL{db: db}
}

// Create inserts one attendance mark. The (student, teacher, date) key is unique.
func (a *AttendancePostgreSQL) Create(ctx context.Context, tx *gorm.DB, record *models.AttendanceRecord) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Omit("Student", "Teacher").Create(record).Error; err != nil {
		return translateWriteError("create attendance", err)
	}
	return nil
}

func (a *AttendancePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.AttendanceRecord, error) {
	db := a.getDB(tx)
	var record models.AttendanceRecord
	if err := db.WithContext(ctx).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("attendance", id)
		}
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	return &record, nil
}

// List returns attendance newest first
func (a *AttendancePostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.AttendanceFilters) ([]*models.AttendanceRecord, int64, error) {
	db := a.getDB(tx)
	query := db.WithContext(ctx).Model(&models.AttendanceRecord{})
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.TeacherID != nil {
		query = query.Where("teacher_id = ?", *filters.TeacherID)
	}
	if filters.Date != nil {
		query = query.Where("date = ?", models.DateOnly(*filters.Date))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count attendance: %w", err)
	}

	records := make([]*models.AttendanceRecord, 0)
	if err := applyPagination(query.Order("date DESC, id DESC"), filters.Limit, filters.Offset).Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list attendance: %w", err)
	}

	return records, total, nil
}

func (a *AttendancePostgreSQL) Exists(ctx context.Context, tx *gorm.DB, studentID, teacherID uint, date time.Time) (bool, error) {
	db := a.getDB(tx)
	var count int64
	err := db.WithContext(ctx).Model(&models.AttendanceRecord{}).
		Where("student_id = ? AND teacher_id = ? AND date = ?", studentID, teacherID, models.DateOnly(date)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check attendance: %w", err)
	}
	return count > 0, nil
}

func (a *AttendancePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := a.getDB(tx)
	result := db.WithContext(ctx).Delete(&models.AttendanceRecord{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete attendance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("attendance", id)
	}
	return nil
}

func (a *AttendancePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}
