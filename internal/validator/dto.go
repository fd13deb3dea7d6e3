package validator

import "github.com/shopspring/decimal"

// StudentRequest is the full-replace payload for creating or updating a student
type StudentRequest struct {
	Name    string `json:"name" form:"name" validate:"required,min=1,max=100"`
	Roll    int    `json:"roll" form:"roll" validate:"roll_number"`
	Address string `json:"address" form:"address" validate:"required,max=255"`
	Class   string `json:"class" form:"class" validate:"required,max=50"`
	Section string `json:"section" form:"section" validate:"required,max=10"`
}

// MarksScores carries the five subject scores; nil means "not provided"
type MarksScores struct {
	DSA           *decimal.Decimal `json:"DSA" validate:"required,gte=0,lte=100"`
	Java          *decimal.Decimal `json:"Java" validate:"required,gte=0,lte=100"`
	SAD           *decimal.Decimal `json:"SAD" validate:"required,gte=0,lte=100"`
	WebTechnology *decimal.Decimal `json:"Web_technology" validate:"required,gte=0,lte=100"`
	ProbAndStats  *decimal.Decimal `json:"Prob_and_Stats" validate:"required,gte=0,lte=100"`
}

// MarksCreateRequest creates a mark sheet. Class is accepted for compatibility
// but the stored class always comes from the student record.
type MarksCreateRequest struct {
	StudentID uint    `json:"student_id" validate:"required"`
	Class     *string `json:"class"`
	MarksScores
}

// MarksUpdateRequest is a partial score update
type MarksUpdateRequest struct {
	DSA           *decimal.Decimal `json:"DSA" validate:"omitempty,gte=0,lte=100"`
	Java          *decimal.Decimal `json:"Java" validate:"omitempty,gte=0,lte=100"`
	SAD           *decimal.Decimal `json:"SAD" validate:"omitempty,gte=0,lte=100"`
	WebTechnology *decimal.Decimal `json:"Web_technology" validate:"omitempty,gte=0,lte=100"`
	ProbAndStats  *decimal.Decimal `json:"Prob_and_Stats" validate:"omitempty,gte=0,lte=100"`
}

// AttendanceMarkRequest records one student's attendance. The teacher comes from the caller.
type AttendanceMarkRequest struct {
	StudentID uint   `json:"student" validate:"required"`
	Status    string `json:"status" validate:"required,attendance_status"`
	Date      string `json:"date" validate:"omitempty,calendar_date"`
}

// RegisterRequest creates an account and returns tokens
type RegisterRequest struct {
	Username  string   `json:"username" validate:"required,min=3,max=150"`
	Password  string   `json:"password" validate:"required,min=8,max=128"`
	Email     string   `json:"email" validate:"omitempty,email"`
	FirstName string   `json:"first_name" validate:"max=150"`
	LastName  string   `json:"last_name" validate:"max=150"`
	Groups    []string `json:"groups" validate:"omitempty,dive,role_name"`
}

// LoginRequest holds user credentials
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserUpdateRequest is a partial user update
type UserUpdateRequest struct {
	Username  *string  `json:"username" validate:"omitempty,min=3,max=150"`
	Password  *string  `json:"password" validate:"omitempty,min=8,max=128"`
	Email     *string  `json:"email" validate:"omitempty,email"`
	FirstName *string  `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string  `json:"last_name" validate:"omitempty,max=150"`
	IsActive  *bool    `json:"is_active"`
	Groups    []string `json:"groups" validate:"omitempty,dive,role_name"`
}
