package models

import (
	"time"

	"gorm.io/datatypes"
)

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
)

// IsValid reports whether s is a recognised attendance status
func (s AttendanceStatus) IsValid() bool {
	return s == AttendancePresent || s == AttendanceAbsent
}

type AttendanceRecord struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	StudentID uint             `json:"student_id" gorm:"not null;uniqueIndex:idx_attendance_student_teacher_date;index"`
	TeacherID uint             `json:"teacher_id" gorm:"not null;uniqueIndex:idx_attendance_student_teacher_date;index"`
	Date      datatypes.Date   `json:"date" gorm:"not null;uniqueIndex:idx_attendance_student_teacher_date"`
	Status    AttendanceStatus `json:"status" gorm:"not null;size:10"`

	Student *User `json:"student,omitempty" gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE"`
	Teacher *User `json:"teacher,omitempty" gorm:"foreignKey:TeacherID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"created_at"`
}

func (AttendanceRecord) TableName() string {
	return "attendance"
}

// DateOnly normalises t to a calendar date at midnight UTC
func DateOnly(t time.Time) datatypes.Date {
	y, m, d := t.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}
