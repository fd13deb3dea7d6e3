package services

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/SAP-F-2025/student-records-service/internal/models"
	"github.com/SAP-F-2025/student-records-service/internal/policy"
	"github.com/SAP-F-2025/student-records-service/internal/spreadsheet"
)

type previewService struct {
	logger *slog.Logger
	rows   int
}

func NewPreviewService(logger *slog.Logger, rows int) PreviewService {
	if rows <= 0 {
		rows = spreadsheet.DefaultPreviewRows
	}
	return &previewService{logger: logger, rows: rows}
}

func (s *previewService) Preview(ctx context.Context, p *models.Principal, r io.Reader) (*spreadsheet.Preview, error) {
	if err := Authorize(p, policy.ActionRead, policy.ResourcePreview); err != nil {
		return nil, err
	}

	preview, err := spreadsheet.BuildPreview(r, s.rows)
	if err != nil {
		switch {
		case errors.Is(err, spreadsheet.ErrEmptyWorkbook):
			return nil, fieldError("excelFile", "the workbook has no data")
		case errors.Is(err, spreadsheet.ErrUnreadable):
			return nil, fieldError("excelFile", "upload a valid .xlsx file")
		}
		return nil, err
	}

	s.logger.Debug("Spreadsheet previewed", "sheet", preview.Sheet, "rows", preview.Stats.TotalRows, "user_id", principalID(p))
	return preview, nil
}
