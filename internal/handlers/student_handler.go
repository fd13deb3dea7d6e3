package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/student-records-service/internal/services"
	"github.com/SAP-F-2025/student-records-service/internal/utils"
)

type StudentHandler struct {
	BaseHandler
	service        services.StudentService
	maxUploadBytes int64
}

func NewStudentHandler(service services.StudentService, maxUploadBytes int64, logger utils.Logger) *StudentHandler {
	return &StudentHandler{
		BaseHandler:    NewBaseHandler(logger),
		service:        service,
		maxUploadBytes: maxUploadBytes,
	}
}

// ListStudents lists students ordered by roll
// @Summary List students
// @Tags students
// @Produce json
// @Param search query string false "Case-insensitive name filter"
// @Param limit query int false "Page size (default: 50, max: 200)"
// @Param offset query int false "Rows to skip"
// @Success 200 {object} services.StudentListResponse
// @Failure 401 {object} ErrorResponse
// @Router /students [get]
func (h *StudentHandler) ListStudents(c *gin.Context) {
	var filters services.StudentListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid query parameters", Details: err.Error()})
		return
	}

	h.LogRequest(c, "Listing students", "search", filters.Search)

	resp, err := h.service.List(c.Request.Context(), GetPrincipal(c), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CreateStudent accepts JSON or a multipart form with an optional "photo" file
// @Summary Create a student
// @Tags students
// @Accept json,mpfd
// @Produce json
// @Success 201 {object} models.Student
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /students [post]
func (h *StudentHandler) CreateStudent(c *gin.Context) {
	var req services.StudentRequest
	if !h.bind(c, &req) {
		return
	}

	photo, ok := h.photoUpload(c)
	if !ok {
		return
	}
	if photo != nil {
		defer photo.Close()
	}

	student, err := h.service.Create(c.Request.Context(), GetPrincipal(c), &req, readerOrNil(photo))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, student)
}

// GetStudent is public
// @Router /students/{id} [get]
func (h *StudentHandler) GetStudent(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	student, err := h.service.GetByID(c.Request.Context(), GetPrincipal(c), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, student)
}

// UpdateStudent replaces every field; a new photo replaces the old one
// @Router /students/{id} [put]
func (h *StudentHandler) UpdateStudent(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.StudentRequest
	if !h.bind(c, &req) {
		return
	}

	photo, ok := h.photoUpload(c)
	if !ok {
		return
	}
	if photo != nil {
		defer photo.Close()
	}

	student, err := h.service.Update(c.Request.Context(), GetPrincipal(c), id, &req, readerOrNil(photo))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, student)
}

// DeleteStudent removes the student, their marks and their photo
// @Router /students/{id} [delete]
func (h *StudentHandler) DeleteStudent(c *gin.Context) {
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

// GetStudentPhoto streams the stored JPEG
// @Produce jpeg
// @Router /students/{id}/photo [get]
func (h *StudentHandler) GetStudentPhoto(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	rc, err := h.service.OpenPhoto(c.Request.Context(), GetPrincipal(c), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, -1, "image/jpeg", rc, nil)
}

// photoUpload returns the optional "photo" part of a multipart request
func (h *StudentHandler) photoUpload(c *gin.Context) (io.ReadCloser, bool) {
	header, err := c.FormFile("photo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, true
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid photo upload", Details: err.Error()})
		return nil, false
	}

	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("Photo must be smaller than %d bytes", h.maxUploadBytes),
		})
		return nil, false
	}

	f, err := header.Open()
	if err != nil {
		h.LogError(c, err, "Failed to open uploaded photo")
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid photo upload"})
		return nil, false
	}
	return f, true
}

// readerOrNil keeps a nil ReadCloser from becoming a non-nil io.Reader
func readerOrNil(rc io.ReadCloser) io.Reader {
	if rc == nil {
		return nil
	}
	return rc
}
