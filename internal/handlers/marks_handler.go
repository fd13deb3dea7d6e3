package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/student-records-service/internal/services"
	"github.com/SAP-F-2025/student-records-service/internal/utils"
)

// MarksHandler serves /students/marks. The :id segment is the student id.
type MarksHandler struct {
	BaseHandler
	service services.MarksService
}

func NewMarksHandler(service services.MarksService, logger utils.Logger) *MarksHandler {
	return &MarksHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ListMarks returns every mark sheet ordered by student roll
// @Summary List marks
// @Tags marks
// @Produce json
// @Success 200 {array} models.MarksRecord
// @Router /students/marks [get]
func (h *MarksHandler) ListMarks(c *gin.Context) {
	records, err := h.service.List(c.Request.Context(), GetPrincipal(c), nil)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetStudentMarks returns the mark sheets of one student
// @Router /students/marks/{id} [get]
func (h *MarksHandler) GetStudentMarks(c *gin.Context) {
	studentID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	records, err := h.service.List(c.Request.Context(), GetPrincipal(c), &studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// CreateMarks records a mark sheet; the class comes from the student record
// @Summary Record marks
// @Tags marks
// @Accept json
// @Produce json
// @Param request body services.MarksCreateRequest true "Scores"
// @Success 201 {object} models.MarksRecord
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /students/marks [post]
func (h *MarksHandler) CreateMarks(c *gin.Context) {
	var req services.MarksCreateRequest
	if !h.bind(c, &req) {
		return
	}

	h.LogRequest(c, "Recording marks", "student_id", req.StudentID)

	record, err := h.service.Create(c.Request.Context(), GetPrincipal(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// UpdateMarks merges the provided scores. ?class= picks the sheet when a student has several.
// @Router /students/marks/{id} [put]
func (h *MarksHandler) UpdateMarks(c *gin.Context) {
	studentID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.MarksUpdateRequest
	if !h.bind(c, &req) {
		return
	}

	record, err := h.service.Update(c.Request.Context(), GetPrincipal(c), studentID, classQuery(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// @Router /students/marks/{id} [delete]
func (h *MarksHandler) DeleteMarks(c *gin.Context) {
	studentID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), GetPrincipal(c), studentID, classQuery(c)); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func classQuery(c *gin.Context) *string {
	class, ok := c.GetQuery("class")
	if !ok || class == "" {
		return nil
	}
	return &class
}
