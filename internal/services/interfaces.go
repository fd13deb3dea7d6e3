package services

import (
	"context"
	"io"
	"time"

	"github.com/SAP-F-2025/student-records-service/internal/models"
	"github.com/SAP-F-2025/student-records-service/internal/spreadsheet"
	"github.com/SAP-F-2025/student-records-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type StudentRequest = validator.StudentRequest
type MarksCreateRequest = validator.MarksCreateRequest
type MarksUpdateRequest = validator.MarksUpdateRequest
type AttendanceMarkRequest = validator.AttendanceMarkRequest
type RegisterRequest = validator.RegisterRequest
type LoginRequest = validator.LoginRequest
type UserUpdateRequest = validator.UserUpdateRequest

type StudentListFilters struct {
	Search string `form:"search"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

type StudentListResponse struct {
	Students []*models.Student `json:"students"`
	Total    int64             `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

type AttendanceListFilters struct {
	StudentID *uint  `form:"student"`
	Date      string `form:"date"`
	Limit     int    `form:"limit"`
	Offset    int    `form:"offset"`
}

// AttendanceResponse renders the calendar date as YYYY-MM-DD
type AttendanceResponse struct {
	ID        uint                    `json:"id"`
	StudentID uint                    `json:"student"`
	TeacherID uint                    `json:"teacher"`
	Date      string                  `json:"date"`
	Status    models.AttendanceStatus `json:"status"`
	CreatedAt time.Time               `json:"created_at"`
}

type AttendanceListResponse struct {
	Records []*AttendanceResponse `json:"records"`
	Total   int64                 `json:"total"`
}

type TokenPair struct {
	Access          string    `json:"access"`
	Refresh         string    `json:"refresh"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

type RegisterResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
	Tokens  *TokenPair   `json:"tokens"`
}

type UserListFilters struct {
	Query  string `form:"q"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

type UserListResponse struct {
	Users []*models.User `json:"users"`
	Total int64          `json:"total"`
}

// ===== SERVICE INTERFACES =====

// StudentService manages the student registry. Photo readers may be nil.
type StudentService interface {
	Create(ctx context.Context, p *models.Principal, req *StudentRequest, photo io.Reader) (*models.Student, error)
	GetByID(ctx context.Context, p *models.Principal, id uint) (*models.Student, error)
	List(ctx context.Context, p *models.Principal, filters StudentListFilters) (*StudentListResponse, error)
	Update(ctx context.Context, p *models.Principal, id uint, req *StudentRequest, photo io.Reader) (*models.Student, error)
	Delete(ctx context.Context, p *models.Principal, id uint) error
	OpenPhoto(ctx context.Context, p *models.Principal, id uint) (io.ReadCloser, error)
}

// MarksService manages mark sheets keyed by (student, class)
type MarksService interface {
	Create(ctx context.Context, p *models.Principal, req *MarksCreateRequest) (*models.MarksRecord, error)
	Update(ctx context.Context, p *models.Principal, studentID uint, class *string, req *MarksUpdateRequest) (*models.MarksRecord, error)
	Delete(ctx context.Context, p *models.Principal, studentID uint, class *string) error
	List(ctx context.Context, p *models.Principal, studentID *uint) ([]*models.MarksRecord, error)
}

// AttendanceService records daily presence marks made by teachers
type AttendanceService interface {
	Mark(ctx context.Context, p *models.Principal, req *AttendanceMarkRequest) (*AttendanceResponse, error)
	List(ctx context.Context, p *models.Principal, filters AttendanceListFilters) (*AttendanceListResponse, error)
	Delete(ctx context.Context, p *models.Principal, id uint) error
}

// AuthService issues, rotates and revokes tokens and resolves bearer tokens to principals
type AuthService interface {
	Register(ctx context.Context, p *models.Principal, req *RegisterRequest) (*RegisterResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, p *models.Principal, refreshToken string) error
	ResolvePrincipal(ctx context.Context, accessToken string) (*models.Principal, error)
	EnsureBootstrapAdmin(ctx context.Context, username, password, email string) error
}

// UserService is the admin surface over accounts and groups
type UserService interface {
	List(ctx context.Context, p *models.Principal, filters UserListFilters) (*UserListResponse, error)
	Create(ctx context.Context, p *models.Principal, req *RegisterRequest) (*models.User, error)
	GetByID(ctx context.Context, p *models.Principal, id uint) (*models.User, error)
	Update(ctx context.Context, p *models.Principal, id uint, req *UserUpdateRequest) (*models.User, error)
	Delete(ctx context.Context, p *models.Principal, id uint) error
	ListGroups(ctx context.Context, p *models.Principal) ([]*models.Group, error)
}

// PreviewService summarises an uploaded workbook
type PreviewService interface {
	Preview(ctx context.Context, p *models.Principal, r io.Reader) (*spreadsheet.Preview, error)
}

// ServiceManager manages all services
type ServiceManager interface {
	Student() StudentService
	Marks() MarksService
	Attendance() AttendanceService
	Auth() AuthService
	User() UserService
	Preview() PreviewService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
