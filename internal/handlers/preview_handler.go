package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/student-records-service/internal/services"
	"github.com/SAP-F-2025/student-records-service/internal/utils"
)

type PreviewHandler struct {
	BaseHandler
	service        services.PreviewService
	maxUploadBytes int64
}

func NewPreviewHandler(service services.PreviewService, maxUploadBytes int64, logger utils.Logger) *PreviewHandler {
	return &PreviewHandler{
		BaseHandler:    NewBaseHandler(logger),
		service:        service,
		maxUploadBytes: maxUploadBytes,
	}
}

// PreviewSpreadsheet summarises the first sheet of an uploaded workbook
// @Summary Preview a spreadsheet
// @Tags preview
// @Accept mpfd
// @Produce json
// @Param excelFile formData file true "xlsx workbook"
// @Success 200 {object} spreadsheet.Preview
// @Failure 400 {object} ErrorResponse
// @Router /preview [post]
func (h *PreviewHandler) PreviewSpreadsheet(c *gin.Context) {
	header, err := c.FormFile("excelFile")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "No file uploaded"})
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid upload", Details: err.Error()})
		return
	}
	if header.Size == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Empty file uploaded"})
		return
	}
	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Message: "File too large"})
		return
	}

	f, err := header.Open()
	if err != nil {
		h.LogError(c, err, "Failed to open uploaded workbook")
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid upload"})
		return
	}
	defer f.Close()

	h.LogRequest(c, "Previewing workbook", "filename", header.Filename, "size", header.Size)

	preview, err := h.service.Preview(c.Request.Context(), GetPrincipal(c), f)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}
