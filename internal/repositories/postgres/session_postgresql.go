package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/student-records-service/internal/models"
	"github.com/SAP-F-2025/student-records-service/internal/repositories"
)

type SessionPostgreSQL struct {
	db *gorm.DB
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{db: db}
}

func (s *SessionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, session *models.RefreshSession) error {
	db := s.getDB(tx)
	if err := db.WithContext(ctx).Omit("User").Create(session).Error; err != nil {
		return translateWriteError("create refresh session", err)
	}
	return nil
}

func (s *SessionPostgreSQL) GetByHash(ctx context.Context, tx *gorm.DB, tokenHash string) (*models.RefreshSession, error) {
	db := s.getDB(tx)
	var session models.RefreshSession
	if err := db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("refresh session not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get refresh session: %w", err)
	}
	return &session, nil
}

// Revoke marks one live session revoked. A session that is missing or
// already revoked yields a not-found error and keeps its timestamp.
func (s *SessionPostgreSQL) Revoke(ctx context.Context, tx *gorm.DB, id uint, at time.Time) error {
	db := s.getDB(tx)
	result := db.WithContext(ctx).Model(&models.RefreshSession{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at)
	if result.Error != nil {
		return fmt.Errorf("failed to revoke refresh session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("live refresh session", id)
	}
	return nil
}

func (s *SessionPostgreSQL) RevokeAllForUser(ctx context.Context, tx *gorm.DB, userID uint, at time.Time) error {
	db := s.getDB(tx)
	err := db.WithContext(ctx).Model(&models.RefreshSession{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", at).Error
	if err != nil {
		return fmt.Errorf("failed to revoke refresh sessions: %w", err)
	}
	return nil
}

func (s *SessionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}
