package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/student-records-service/internal/models"
	"github.com/SAP-F-2025/student-records-service/internal/services"
	"github.com/SAP-F-2025/student-records-service/internal/utils"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// MessageResponse is returned by endpoints that only acknowledge an action
type MessageResponse struct {
	Message string `json:"message"`
}

type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs the start of a handler with the request-scoped logger
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.FromGin(c, h.logger).Debug(msg, args...)
}

// LogError logs a failure with the request-scoped logger
func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	args = append(args, "error", err)
	utils.FromGin(c, h.logger).Error(msg, args...)
}

// handleServiceError maps service error categories to status codes
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var verrs services.ValidationErrors

	switch {
	case errors.As(err, &verrs) && len(verrs) > 0:
		message := "Validation failed"
		if len(verrs) == 1 && verrs[0].Field == "" {
			message = sentence(verrs[0].Message)
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: message, Details: verrs})
	case errors.Is(err, services.ErrValidationFailed):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: publicMessage(err, services.ErrValidationFailed)})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: publicMessage(err, services.ErrUnauthorized)})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: publicMessage(err, services.ErrForbidden)})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: publicMessage(err, services.ErrNotFound)})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Message: publicMessage(err, services.ErrConflict)})
	default:
		h.LogError(c, err, "Unhandled service error", "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
	}
}

// publicMessage drops the "category: " prefix of a wrapped sentinel
func publicMessage(err, category error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, category.Error()+": "); ok {
		msg = rest
	}
	return sentence(msg)
}

func sentence(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// parseIDParam reads a positive integer path parameter, writing a 400 when it is malformed
func (h *BaseHandler) parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + name,
			Details: raw,
		})
		return 0, false
	}
	return uint(id), true
}

// bind decodes the request body, writing a 400 when it cannot be parsed
func (h *BaseHandler) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBind(dst); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return false
	}
	return true
}

// GetPrincipal returns the caller resolved by the auth middleware, or nil for anonymous requests
func GetPrincipal(c *gin.Context) *models.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*models.Principal)
	return p
}
