package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/student-records-service/internal/auth"
	"github.com/SAP-F-2025/student-records-service/internal/events"
	"github.com/SAP-F-2025/student-records-service/internal/models"
	"github.com/SAP-F-2025/student-records-service/internal/policy"
	"github.com/SAP-F-2025/student-records-service/internal/repositories"
	"github.com/SAP-F-2025/student-records-service/internal/validator"
)

type userService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewUserService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) UserService {
	return &userService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

func (s *userService) List(ctx context.Context, p *models.Principal, filters UserListFilters) (*UserListResponse, error) {
	if err := Authorize(p, policy.ActionRead, policy.ResourceUser); err != nil {
		return nil, err
	}

	users, total, err := s.repo.User().List(ctx, nil, repositories.UserFilters{
		Query:  filters.Query,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	})
	if err != nil {
		return nil, err
	}
	return &UserListResponse{Users: users, Total: total}, nil
}

func (s *userService) Create(ctx context.Context, p *models.Principal, req *RegisterRequest) (*models.User, error) {
	if err := Authorize(p, policy.ActionWrite, policy.ResourceUser); err != nil {
		return nil, err
	}

	user, err := createUser(ctx, s.repo, s.validator, req)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User created", "user_id", user.ID, "username", user.Username, "created_by", principalID(p))
	publishEvent(ctx, s.publisher, s.logger, events.UserRegistered, p, user)

	return user, nil
}

func (s *userService) GetByID(ctx context.Context, p *models.Principal, id uint) (*models.User, error) {
	if err := Authorize(p, policy.ActionReadOne, policy.ResourceUser); err != nil {
		return nil, err
	}
	return s.getUser(ctx, id)
}

// Update applies only the provided fields. A non-nil Groups replaces membership.
func (s *userService) Update(ctx context.Context, p *models.Principal, id uint, req *UserUpdateRequest) (*models.User, error) {
	if err := Authorize(p, policy.ActionWrite, policy.ResourceUser); err != nil {
		return nil, err
	}

	if errs := s.validator.GetBusinessValidator().ValidateUserUpdate(req); len(errs) > 0 {
		return nil, newValidationError(errs)
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Username != nil && *req.Username != user.Username {
		taken, err := s.repo.User().ExistsByUsername(ctx, nil, *req.Username)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrDuplicateUsername
		}
		user.Username = *req.Username
	}
	if req.Email != nil {
		user.Email = strings.TrimSpace(*req.Email)
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	user.PasswordHash = ""
	if req.Password != nil {
		if user.PasswordHash, err = auth.HashPassword(*req.Password); err != nil {
			return nil, err
		}
	}

	var groups []models.Group
	if req.Groups != nil {
		if groups, err = resolveGroups(ctx, s.repo, nil, req.Groups); err != nil {
			return nil, err
		}
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.User().Update(ctx, nil, user); err != nil {
			return err
		}
		if req.Groups != nil {
			return txRepo.User().ReplaceGroups(ctx, nil, user, groups)
		}
		return nil
	})
	if err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrDuplicateUsername
		}
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if req.IsActive != nil && !*req.IsActive {
		if err := s.repo.Session().RevokeAllForUser(ctx, nil, id, time.Now().UTC()); err != nil {
			s.logger.Warn("Failed to revoke sessions of deactivated user", "user_id", id, "error", err)
		}
	}

	s.logger.Info("User updated", "user_id", id, "updated_by", principalID(p))
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) Delete(ctx context.Context, p *models.Principal, id uint) error {
	if err := Authorize(p, policy.ActionWrite, policy.ResourceUser); err != nil {
		return err
	}
	if p.UserID == id {
		return fieldError("id", "you cannot delete your own account")
	}

	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		return txRepo.User().Delete(ctx, nil, id)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return err
	}

	s.logger.Info("User deleted", "user_id", id, "deleted_by", principalID(p))
	publishEvent(ctx, s.publisher, s.logger, events.UserDeleted, p, map[string]uint{"id": id})

	return nil
}

func (s *userService) ListGroups(ctx context.Context, p *models.Principal) ([]*models.Group, error) {
	if err := Authorize(p, policy.ActionRead, policy.ResourceUser); err != nil {
		return nil, err
	}
	return s.repo.Group().List(ctx, nil)
}

func (s *userService) getUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// createUser validates and stores a new account with its groups
func createUser(ctx context.Context, repo repositories.Repository, v *validator.Validator, req *RegisterRequest) (*models.User, error) {
	if errs := v.GetBusinessValidator().ValidateRegister(req); len(errs) > 0 {
		return nil, newValidationError(errs)
	}

	taken, err := repo.User().ExistsByUsername(ctx, nil, req.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateUsername
	}

	groups, err := resolveGroups(ctx, repo, nil, req.Groups)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     req.Username,
		Email:        strings.TrimSpace(req.Email),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		IsActive:     true,
		Groups:       groups,
	}
	if err := repo.User().Create(ctx, nil, user); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}

	return user, nil
}

func resolveGroups(ctx context.Context, repo repositories.Repository, tx *gorm.DB, names []string) ([]models.Group, error) {
	groups, err := repo.Group().GetByNames(ctx, tx, names)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fieldError("groups", err.Error())
		}
		return nil, err
	}
	return groups, nil
}
