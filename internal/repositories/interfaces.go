package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/student-records-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type StudentFilters struct {
	Search string `json:"search"` // case-insensitive substring of name
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

type MarksFilters struct {
	StudentID *uint   `json:"student_id"`
	Class     *string `json:"class"`
}

type AttendanceFilters struct {
	StudentID *uint      `json:"student_id"`
	TeacherID *uint      `json:"teacher_id"`
	Date      *time.Time `json:"date"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

// ===== REPOSITORY INTERFACES =====
// Every method takes an optional tx; nil means the repository's own connection.

type StudentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, student *models.Student) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Student, error)
	Update(ctx context.Context, tx *gorm.DB, student *models.Student) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, filters StudentFilters) ([]*models.Student, int64, error)
	ExistsByRoll(ctx context.Context, tx *gorm.DB, roll int, excludeID *uint) (bool, error)
	Evict(ctx context.Context, id uint)
}

type MarksRepository interface {
	Create(ctx context.Context, tx *gorm.DB, record *models.MarksRecord) error
	Update(ctx context.Context, tx *gorm.DB, record *models.MarksRecord) error
	Get(ctx context.Context, tx *gorm.DB, studentID uint, class string) (*models.MarksRecord, error)
	List(ctx context.Context, tx *gorm.DB, filters MarksFilters) ([]*models.MarksRecord, error)
	Exists(ctx context.Context, tx *gorm.DB, studentID uint, class string) (bool, error)
	Delete(ctx context.Context, tx *gorm.DB, filters MarksFilters) (int64, error)
}

type AttendanceRepository interface {
	Create(ctx context.Context, tx *gorm.DB, record *models.AttendanceRecord) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.AttendanceRecord, error)
	List(ctx context.Context, tx *gorm.DB, filters AttendanceFilters) ([]*models.AttendanceRecord, int64, error)
	Exists(ctx context.Context, tx *gorm.DB, studentID, teacherID uint, date time.Time) (bool, error)
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
}

type GroupRepository interface {
	EnsureDefaults(ctx context.Context, tx *gorm.DB) error
	List(ctx context.Context, tx *gorm.DB) ([]*models.Group, error)
	GetByNames(ctx context.Context, tx *gorm.DB, names []string) ([]models.Group, error)
}

type SessionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, session *models.RefreshSession) error
	GetByHash(ctx context.Context, tx *gorm.DB, tokenHash string) (*models.RefreshSession, error)
	Revoke(ctx context.Context, tx *gorm.DB, id uint, at time.Time) error
	RevokeAllForUser(ctx context.Context, tx *gorm.DB, userID uint, at time.Time) error
}
