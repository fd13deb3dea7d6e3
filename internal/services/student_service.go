package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/student-records-service/internal/assets"
	"github.com/SAP-F-2025/student-records-service/internal/events"
	"github.com/SAP-F-2025/student-records-service/internal/models"
	"github.com/SAP-F-2025/student-records-service/internal/policy"
	"github.com/SAP-F-2025/student-records-service/internal/repositories"
	"github.com/SAP-F-2025/student-records-service/internal/validator"
)

type studentService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	assets    assets.Store
}

func NewStudentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, store assets.Store) StudentService {
	return &studentService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		assets:    store,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *studentService) Create(ctx context.Context, p *models.Principal, req *StudentRequest, photo io.Reader) (*models.Student, error) {
	if err := Authorize(p, policy.ActionWrite, policy.ResourceStudent); err != nil {
		return nil, err
	}

	if errs := s.validator.GetBusinessValidator().ValidateStudent(req); len(errs) > 0 {
		return nil, newValidationError(errs)
	}

	taken, err := s.repo.Student().ExistsByRoll(ctx, nil, req.Roll, nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateRoll
	}

	student := &models.Student{}
	applyStudentRequest(student, req)

	var photoRef string
	err = s.withTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Student().Create(ctx, tx, student); err != nil {
			return err
		}
		if photo == nil {
			return nil
		}

		ref, err := s.savePhoto(ctx, student.ID, photo)
		if err != nil {
			return err
		}
		photoRef = ref
		student.Photo = &photoRef
		return s.repo.Student().Update(ctx, tx, student)
	})
	if err != nil {
		if photoRef != "" {
			s.removePhoto(ctx, photoRef)
		}
		if repositories.IsDuplicateError(err) {
			return nil, ErrDuplicateRoll
		}
		return nil, err
	}
	s.repo.Student().Evict(ctx, student.ID)

	s.logger.Info("Student created", "student_id", student.ID, "roll", student.Roll, "created_by", principalID(p))
	publishEvent(ctx, s.publisher, s.logger, events.StudentCreated, p, student)

	return student, nil
}

// GetByID is public: anonymous callers may read a single student
func (s *studentService) GetByID(ctx context.Context, p *models.Principal, id uint) (*models.Student, error) {
	if err := Authorize(p, policy.ActionReadOne, policy.ResourceStudent); err != nil {
		return nil, err
	}
	return s.getStudent(ctx, id)
}

func (s *studentService) List(ctx context.Context, p *models.Principal, filters StudentListFilters) (*StudentListResponse, error) {
	if err := Authorize(p, policy.ActionRead, policy.ResourceStudent); err != nil {
		return nil, err
	}

	students, total, err := s.repo.Student().List(ctx, nil, repositories.StudentFilters{
		Search: filters.Search,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	})
	if err != nil {
		return nil, err
	}

	return &StudentListResponse{
		Students: students,
		Total:    total,
		Limit:    filters.Limit,
		Offset:   filters.Offset,
	}, nil
}

// Update replaces every editable field. A new photo supersedes the old one.
func (s *studentService) Update(ctx context.Context, p *models.Principal, id uint, req *StudentRequest, photo io.Reader) (*models.Student, error) {
	if err := Authorize(p, policy.ActionWrite, policy.ResourceStudent); err != nil {
		return nil, err
	}

	if errs := s.validator.GetBusinessValidator().ValidateStudent(req); len(errs) > 0 {
		return nil, newValidationError(errs)
	}

	student, err := s.getStudent(ctx, id)
	if err != nil {
		return nil, err
	}

	taken, err := s.repo.Student().ExistsByRoll(ctx, nil, req.Roll, &id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateRoll
	}

	oldPhoto := student.Photo
	applyStudentRequest(student, req)

	var newPhoto string
	if photo != nil {
		newPhoto, err = s.savePhoto(ctx, id, photo)
		if err != nil {
			return nil, err
		}
		student.Photo = &newPhoto
	}

	if err := s.repo.Student().Update(ctx, nil, student); err != nil {
		if newPhoto != "" {
			s.removePhoto(ctx, newPhoto)
		}
		if repositories.IsDuplicateError(err) {
			return nil, ErrDuplicateRoll
		}
		if repositories.IsNotFoundError(err) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}

	if newPhoto != "" && oldPhoto != nil {
		s.removePhoto(ctx, *oldPhoto)
	}

	s.logger.Info("Student updated", "student_id", id, "updated_by", principalID(p))
	publishEvent(ctx, s.publisher, s.logger, events.StudentUpdated, p, student)

	return student, nil
}

// Delete removes the student and its mark sheets in one transaction, then the photo
func (s *studentService) Delete(ctx context.Context, p *models.Principal, id uint) error {
	if err := Authorize(p, policy.ActionWrite, policy.ResourceStudent); err != nil {
		return err
	}

	student, err := s.getStudent(ctx, id)
	if err != nil {
		return err
	}

	err = s.withTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.Marks().Delete(ctx, tx, repositories.MarksFilters{StudentID: &id}); err != nil {
			return err
		}
		return s.repo.Student().Delete(ctx, tx, id)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrStudentNotFound
		}
		return err
	}
	s.repo.Student().Evict(ctx, id)

	if student.Photo != nil {
		s.removePhoto(ctx, *student.Photo)
	}

	s.logger.Info("Student deleted", "student_id", id, "deleted_by", principalID(p))
	publishEvent(ctx, s.publisher, s.logger, events.StudentDeleted, p, map[string]interface{}{
		"id":   id,
		"roll": student.Roll,
	})

	return nil
}

// OpenPhoto streams the stored photo of a student
func (s *studentService) OpenPhoto(ctx context.Context, p *models.Principal, id uint) (io.ReadCloser, error) {
	if err := Authorize(p, policy.ActionReadOne, policy.ResourceStudent); err != nil {
		return nil, err
	}

	student, err := s.getStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	if student.Photo == nil || s.assets == nil {
		return nil, ErrPhotoNotFound
	}

	rc, err := s.assets.Open(ctx, *student.Photo)
	if err != nil {
		if errors.Is(err, assets.ErrAssetNotFound) || errors.Is(err, assets.ErrInvalidRef) {
			return nil, ErrPhotoNotFound
		}
		return nil, fmt.Errorf("failed to open photo: %w", err)
	}
	return rc, nil
}

// ===== HELPERS =====

func (s *studentService) getStudent(ctx context.Context, id uint) (*models.Student, error) {
	student, err := s.repo.Student().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return student, nil
}

func (s *studentService) savePhoto(ctx context.Context, studentID uint, photo io.Reader) (string, error) {
	if s.assets == nil {
		return "", fmt.Errorf("photo storage is not configured")
	}

	ref, err := s.assets.Save(ctx, studentID, photo)
	if err != nil {
		if errors.Is(err, assets.ErrInvalidImage) {
			return "", fieldError("photo", "upload a valid image")
		}
		return "", err
	}
	return ref, nil
}

// removePhoto deletes an asset; failures never abort the caller
func (s *studentService) removePhoto(ctx context.Context, ref string) {
	if s.assets == nil {
		return
	}
	if err := s.assets.Delete(ctx, ref); err != nil && !errors.Is(err, assets.ErrAssetNotFound) {
		s.logger.Warn("Failed to delete student photo", "photo", ref, "error", err)
	}
}

// withTx executes a function within a transaction
func (s *studentService) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

func applyStudentRequest(student *models.Student, req *StudentRequest) {
	student.Name = strings.TrimSpace(req.Name)
	student.Roll = req.Roll
	student.Address = strings.TrimSpace(req.Address)
	student.Class = strings.TrimSpace(req.Class)
	student.Section = strings.TrimSpace(req.Section)
}
