package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/student-records-service/internal/services"
	"github.com/SAP-F-2025/student-records-service/internal/utils"
)

type AttendanceHandler struct {
	BaseHandler
	service services.AttendanceService
}

func NewAttendanceHandler(service services.AttendanceService, logger utils.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ListAttendance returns the rows visible to the caller: teachers see what they marked,
// students see rows naming them.
// @Summary List attendance
// @Tags attendance
// @Produce json
// @Param date query string false "YYYY-MM-DD"
// @Param student query int false "Student user id"
// @Success 200 {object} services.AttendanceListResponse
// @Router /attendance [get]
func (h *AttendanceHandler) ListAttendance(c *gin.Context) {
	var filters services.AttendanceListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid query parameters", Details: err.Error()})
		return
	}

	resp, err := h.service.List(c.Request.Context(), GetPrincipal(c), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// MarkAttendance records attendance as the calling teacher
// @Summary Mark attendance
// @Tags attendance
// @Accept json
// @Produce json
// @Param request body services.AttendanceMarkRequest true "Attendance"
// @Success 201 {object} services.AttendanceResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attendance [post]
func (h *AttendanceHandler) MarkAttendance(c *gin.Context) {
	var req services.AttendanceMarkRequest
	if !h.bind(c, &req) {
		return
	}

	record, err := h.service.Mark(c.Request.Context(), GetPrincipal(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// @Router /attendance/{id} [delete]
func (h *AttendanceHandler) DeleteAttendance(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), GetPrincipal(c), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
