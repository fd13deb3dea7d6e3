package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SAP-F-2025/student-records-service/internal/events"
	"github.com/SAP-F-2025/student-records-service/internal/models"
	"github.com/SAP-F-2025/student-records-service/internal/validator"
)

var subjectCount = decimal.NewFromInt(models.SubjectCount)

// DeriveMarksTotals sums the subject scores and computes the percentage
// rounded half-up to two places
func DeriveMarksTotals(scores [models.SubjectCount]decimal.Decimal) (total, percentage decimal.Decimal) {
	total = decimal.Sum(scores[0], scores[1:]...)
	percentage = total.Div(subjectCount).Round(2)
	return total, percentage
}

func applyTotals(record *models.MarksRecord) {
	record.TotalMarks, record.Percentage = DeriveMarksTotals(record.Scores())
}

// publishEvent sends an event after commit; failures are only logged
func publishEvent(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, eventType events.EventType, actor *models.Principal, payload interface{}) {
	if publisher == nil {
		return
	}

	var actorID uint
	if actor != nil {
		actorID = actor.UserID
	}

	if err := publisher.Publish(ctx, events.NewEvent(eventType, actorID, payload)); err != nil {
		logger.Warn("Failed to publish event", "event_type", eventType, "error", err)
	}
}

func toAttendanceResponse(record *models.AttendanceRecord) *AttendanceResponse {
	return &AttendanceResponse{
		ID:        record.ID,
		StudentID: record.StudentID,
		TeacherID: record.TeacherID,
		Date:      time.Time(record.Date).Format(validator.DateLayout),
		Status:    record.Status,
		CreatedAt: record.CreatedAt,
	}
}

func principalID(p *models.Principal) uint {
	if p == nil {
		return 0
	}
	return p.UserID
}
