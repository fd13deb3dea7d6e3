package models

import "time"

type Student struct {
	ID      uint    `json:"id" gorm:"primaryKey"`
	Name    string  `json:"name" gorm:"not null;size:100;index"`
	Roll    int     `json:"roll" gorm:"uniqueIndex;not null;check:roll >= 1"`
	Address string  `json:"address" gorm:"not null;size:255"`
	Class   string  `json:"class" gorm:"column:student_class;not null;size:50"`
	Section string  `json:"section" gorm:"not null;size:10"`
	Photo   *string `json:"photo" gorm:"size:255"`

	Marks []MarksRecord `json:"-" gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Student) TableName() string {
	return "students"
}
