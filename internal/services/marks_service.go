package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/student-records-service/internal/events"
	"github.com/SAP-F-2025/student-records-service/internal/models"
	"github.com/SAP-F-2025/student-records-service/internal/policy"
	"github.com/SAP-F-2025/student-records-service/internal/repositories"
	"github.com/SAP-F-2025/student-records-service/internal/validator"
)

type marksService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewMarksService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) MarksService {
	return &marksService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// Create records a mark sheet for the student's current class
func (s *marksService) Create(ctx context.Context, p *models.Principal, req *MarksCreateRequest) (*models.MarksRecord, error) {
	if err := Authorize(p, policy.ActionWrite, policy.ResourceMarks); err != nil {
		return nil, err
	}

	if errs := s.validator.GetBusinessValidator().ValidateMarksCreate(req); len(errs) > 0 {
		return nil, newValidationError(errs)
	}

	student, err := s.repo.Student().GetByID(ctx, nil, req.StudentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	exists, err := s.repo.Marks().Exists(ctx, nil, student.ID, student.Class)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateMarks
	}

	record := &models.MarksRecord{
		StudentID: student.ID,
		Class:     student.Class,
	}
	record.SetScores([models.SubjectCount]decimal.Decimal{
		*req.DSA, *req.Java, *req.SAD, *req.WebTechnology, *req.ProbAndStats,
	})
	applyTotals(record)

	if err := s.repo.Marks().Create(ctx, nil, record); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrDuplicateMarks
		}
		return nil, err
	}

	s.logger.Info("Marks recorded",
		"student_id", record.StudentID,
		"class", record.Class,
		"percentage", record.Percentage.String(),
		"recorded_by", principalID(p))
	publishEvent(ctx, s.publisher, s.logger, events.MarksRecorded, p, record)

	return record, nil
}

// Update merges the provided scores into one sheet and recomputes the totals.
// Without a class the student must have exactly one sheet.
func (s *marksService) Update(ctx context.Context, p *models.Principal, studentID uint, class *string, req *MarksUpdateRequest) (*models.MarksRecord, error) {
	if err := Authorize(p, policy.ActionWrite, policy.ResourceMarks); err != nil {
		return nil, err
	}

	if errs := s.validator.GetBusinessValidator().ValidateMarksUpdate(req); len(errs) > 0 {
		return nil, newValidationError(errs)
	}

	record, err := s.selectRecord(ctx, studentID, class)
	if err != nil {
		return nil, err
	}

	scores := record.Scores()
	for i, score := range []*decimal.Decimal{req.DSA, req.Java, req.SAD, req.WebTechnology, req.ProbAndStats} {
		if score != nil {
			scores[i] = *score
		}
	}
	record.SetScores(scores)
	applyTotals(record)

	if err := s.repo.Marks().Update(ctx, nil, record); err != nil {
		return nil, err
	}

	s.logger.Info("Marks updated", "student_id", record.StudentID, "class", record.Class, "updated_by", principalID(p))
	publishEvent(ctx, s.publisher, s.logger, events.MarksUpdated, p, record)

	return record, nil
}

// Delete removes the student's sheets, or only the one for class
func (s *marksService) Delete(ctx context.Context, p *models.Principal, studentID uint, class *string) error {
	if err := Authorize(p, policy.ActionWrite, policy.ResourceMarks); err != nil {
		return err
	}

	deleted, err := s.repo.Marks().Delete(ctx, nil, repositories.MarksFilters{StudentID: &studentID, Class: class})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrMarksNotFound
	}

	s.logger.Info("Marks deleted", "student_id", studentID, "count", deleted, "deleted_by", principalID(p))
	publishEvent(ctx, s.publisher, s.logger, events.MarksDeleted, p, map[string]interface{}{
		"student_id": studentID,
		"class":      class,
		"count":      deleted,
	})

	return nil
}

// List returns every sheet ordered by roll, or those of one student
func (s *marksService) List(ctx context.Context, p *models.Principal, studentID *uint) ([]*models.MarksRecord, error) {
	if err := Authorize(p, policy.ActionRead, policy.ResourceMarks); err != nil {
		return nil, err
	}

	if studentID != nil {
		if _, err := s.repo.Student().GetByID(ctx, nil, *studentID); err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrStudentNotFound
			}
			return nil, fmt.Errorf("failed to get student: %w", err)
		}
	}

	return s.repo.Marks().List(ctx, nil, repositories.MarksFilters{StudentID: studentID})
}

func (s *marksService) selectRecord(ctx context.Context, studentID uint, class *string) (*models.MarksRecord, error) {
	if class != nil {
		record, err := s.repo.Marks().Get(ctx, nil, studentID, *class)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrMarksNotFound
			}
			return nil, err
		}
		return record, nil
	}

	records, err := s.repo.Marks().List(ctx, nil, repositories.MarksFilters{StudentID: &studentID})
	if err != nil {
		return nil, err
	}

	switch len(records) {
	case 0:
		return nil, ErrMarksNotFound
	case 1:
		return records[0], nil
	default:
		return nil, fieldError("class", "student has marks for more than one class; specify the class")
	}
}
