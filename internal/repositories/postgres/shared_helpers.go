package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/student-records-service/internal/repositories"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// translateWriteError maps unique-constraint failures to repositories.ErrDuplicate
func translateWriteError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("failed to %s: %w: %w", op, repositories.ErrDuplicate, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// applyPagination applies limit/offset with the service-wide page size cap
func applyPagination(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	query = query.Limit(limit)
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

// likePattern escapes LIKE wildcards in user input
func likePattern(search string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(replacer.Replace(strings.TrimSpace(search))) + "%"
}

func notFound(entity string, id uint) error {
	return fmt.Errorf("%s not found with ID %d: %w", entity, id, gorm.ErrRecordNotFound)
}
