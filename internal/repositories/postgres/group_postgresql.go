package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/student-records-service/internal/models"
	"github.com/SAP-F-2025/student-records-service/internal/repositories"
)

type GroupPostgreSQL struct {
	db *gorm.DB
}

func NewGroupPostgreSQL(db *gorm.DB) repositories.GroupRepository {
	return &GroupPostgreSQL{db: db}
}

// EnsureDefaults creates the admin, teacher and student groups if missing
func (g *GroupPostgreSQL) EnsureDefaults(ctx context.Context, tx *gorm.DB) error {
	db := g.getDB(tx)
	groups := make([]models.Group, 0, len(models.AllRoles))
	for _, role := range models.AllRoles {
		groups = append(groups, models.Group{Name: string(role)})
	}

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&groups).Error
	if err != nil {
		return fmt.Errorf("failed to seed groups: %w", err)
	}
	return nil
}

func (g *GroupPostgreSQL) List(ctx context.Context, tx *gorm.DB) ([]*models.Group, error) {
	db := g.getDB(tx)
	groups := make([]*models.Group, 0)
	if err := db.WithContext(ctx).Order("name ASC").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

// GetByNames resolves group names; unknown names are reported as not found
func (g *GroupPostgreSQL) GetByNames(ctx context.Context, tx *gorm.DB, names []string) ([]models.Group, error) {
	groups := make([]models.Group, 0, len(names))
	if len(names) == 0 {
		return groups, nil
	}

	db := g.getDB(tx)
	if err := db.WithContext(ctx).Where("name IN ?", names).Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("failed to get groups: %w", err)
	}

	found := make(map[string]bool, len(groups))
	for _, group := range groups {
		found[group.Name] = true
	}
	for _, name := range names {
		if !found[name] {
			return nil, fmt.Errorf("group %q not found: %w", name, gorm.ErrRecordNotFound)
		}
	}
	return groups, nil
}

func (g *GroupPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return g.db
}
