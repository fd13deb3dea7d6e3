package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/student-records-service/internal/events"
	"github.com/SAP-F-2025/student-records-service/internal/models"
	"github.com/SAP-F-2025/student-records-service/internal/policy"
	"github.com/SAP-F-2025/student-records-service/internal/repositories"
	"github.com/SAP-F-2025/student-records-service/internal/validator"
)

type attendanceService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	location  *time.Location
	now       func() time.Time
}

func NewAttendanceService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, location *time.Location) AttendanceService {
	if location == nil {
		location = time.UTC
	}
	return &attendanceService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		location:  location,
		now:       time.Now,
	}
}

// Mark records one attendance row authored by the calling teacher
func (s *attendanceService) Mark(ctx context.Context, p *models.Principal, req *AttendanceMarkRequest) (*AttendanceResponse, error) {
	if err := Authorize(p, policy.ActionWrite, policy.ResourceAttendance); err != nil {
		return nil, err
	}
	if !p.HasRole(models.RoleTeacher) {
		return nil, ErrTeacherRequired
	}

	if errs := s.validator.GetBusinessValidator().ValidateAttendance(req); len(errs) > 0 {
		return nil, newValidationError(errs)
	}

	date := s.now().In(s.location)
	if req.Date != "" {
		parsed, err := validator.ParseDate(req.Date)
		if err != nil {
			return nil, asValidationError(err)
		}
		date = parsed
	}

	isStudent, err := s.repo.User().HasRole(ctx, nil, req.StudentID, models.RoleStudent)
	if err != nil {
		return nil, err
	}
	if !isStudent {
		if _, err := s.repo.User().GetByID(ctx, nil, req.StudentID); err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("failed to get student user: %w", err)
		}
		return nil, fieldError("student", "selected user is not a student")
	}

	exists, err := s.repo.Attendance().Exists(ctx, nil, req.StudentID, p.UserID, date)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateAttendance
	}

	record := &models.AttendanceRecord{
		StudentID: req.StudentID,
		TeacherID: p.UserID,
		Date:      models.DateOnly(date),
		Status:    models.AttendanceStatus(req.Status),
	}
	if err := s.repo.Attendance().Create(ctx, nil, record); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrDuplicateAttendance
		}
		return nil, err
	}

	resp := toAttendanceResponse(record)
	s.logger.Info("Attendance marked",
		"student_id", record.StudentID,
		"teacher_id", record.TeacherID,
		"date", resp.Date,
		"status", record.Status)
	publishEvent(ctx, s.publisher, s.logger, events.AttendanceMarked, p, resp)

	return resp, nil
}

// List scopes rows by role: teachers see what they marked, students see their own rows
func (s *attendanceService) List(ctx context.Context, p *models.Principal, filters AttendanceListFilters) (*AttendanceListResponse, error) {
	if err := Authorize(p, policy.ActionRead, policy.ResourceAttendance); err != nil {
		return nil, err
	}

	repoFilters := repositories.AttendanceFilters{
		StudentID: filters.StudentID,
		Limit:     filters.Limit,
		Offset:    filters.Offset,
	}
	if filters.Date != "" {
		date, err := validator.ParseDate(filters.Date)
		if err != nil {
			return nil, asValidationError(err)
		}
		repoFilters.Date = &date
	}

	switch p.PrimaryRole() {
	case models.RoleTeacher:
		repoFilters.TeacherID = &p.UserID
	case models.RoleStudent:
		repoFilters.StudentID = &p.UserID
	}

	records, total, err := s.repo.Attendance().List(ctx, nil, repoFilters)
	if err != nil {
		return nil, err
	}

	resp := &AttendanceListResponse{
		Records: make([]*AttendanceResponse, 0, len(records)),
		Total:   total,
	}
	for _, record := range records {
		resp.Records = append(resp.Records, toAttendanceResponse(record))
	}
	return resp, nil
}

// Delete removes a row; teachers may only delete rows they authored
func (s *attendanceService) Delete(ctx context.Context, p *models.Principal, id uint) error {
	if err := Authorize(p, policy.ActionWrite, policy.ResourceAttendance); err != nil {
		return err
	}

	record, err := s.repo.Attendance().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAttendanceNotFound
		}
		return err
	}
	if !p.IsAdmin() && record.TeacherID != p.UserID {
		return ErrForbidden
	}

	if err := s.repo.Attendance().Delete(ctx, nil, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAttendanceNotFound
		}
		return err
	}

	s.logger.Info("Attendance deleted", "attendance_id", id, "deleted_by", p.UserID)
	publishEvent(ctx, s.publisher, s.logger, events.AttendanceDeleted, p, toAttendanceResponse(record))

	return nil
}
