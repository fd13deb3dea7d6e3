package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubjectCount is the number of scored subjects on a mark sheet
const SubjectCount = 5

type MarksRecord struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	StudentID uint   `json:"student_id" gorm:"not null;uniqueIndex:idx_marks_student_class"`
	Class     string `json:"class" gorm:"not null;size:50;uniqueIndex:idx_marks_student_class"`

	DSA           decimal.Decimal `json:"DSA" gorm:"column:dsa;type:decimal(5,2);not null"`
	Java          decimal.Decimal `json:"Java" gorm:"column:java;type:decimal(5,2);not null"`
	SAD           decimal.Decimal `json:"SAD" gorm:"column:sad;type:decimal(5,2);not null"`
	WebTechnology decimal.Decimal `json:"Web_technology" gorm:"column:web_technology;type:decimal(5,2);not null"`
	ProbAndStats  decimal.Decimal `json:"Prob_and_Stats" gorm:"column:prob_and_stats;type:decimal(5,2);not null"`

	// Derived from the five scores on every save
	TotalMarks decimal.Decimal `json:"total_marks" gorm:"type:decimal(6,2);not null"`
	Percentage decimal.Decimal `json:"percentage" gorm:"type:decimal(5,2);not null"`

	Student *Student `json:"student,omitempty" gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (MarksRecord) TableName() string {
	return "student_marks"
}

// Scores returns the subject scores in sheet order
func (m *MarksRecord) Scores() [SubjectCount]decimal.Decimal {
	return [SubjectCount]decimal.Decimal{m.DSA, m.Java, m.SAD, m.WebTechnology, m.ProbAndStats}
}

// SetScores assigns the subject scores in sheet order
func (m *MarksRecord) SetScores(scores [SubjectCount]decimal.Decimal) {
	m.DSA, m.Java, m.SAD, m.WebTechnology, m.ProbAndStats = scores[0], scores[1], scores[2], scores[3], scores[4]
}
