package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeDelete deletes keys and only logs failures
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// StudentKey is the cache key of a single student
func StudentKey(studentID uint) string {
	return fmt.Sprintf("id:%d", studentID)
}

// MarksKey is the cache key of a student's mark sheets
func MarksKey(studentID uint) string {
	return fmt.Sprintf("student:%d", studentID)
}

// InvalidateStudentCache drops the student entry and every cached mark sheet of that student
func InvalidateStudentCache(ctx context.Context, cm *CacheManager, studentID uint) {
	SafeDelete(ctx, cm.Student, StudentKey(studentID))
	SafeDelete(ctx, cm.Marks, MarksKey(studentID))
}

// InvalidateMarksCache drops cached mark sheets after a ledger change
func InvalidateMarksCache(ctx context.Context, cm *CacheManager, studentID uint) {
	SafeDelete(ctx, cm.Marks, MarksKey(studentID))
}
