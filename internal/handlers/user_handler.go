package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/student-records-service/internal/services"
	"github.com/SAP-F-2025/student-records-service/internal/utils"
)

// UserHandler is the admin surface over accounts and groups
type UserHandler struct {
	BaseHandler
	service services.UserService
}

func NewUserHandler(service services.UserService, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ListUsers lists users with optional filtering
// @Summary List users
// @Tags users
// @Produce json
// @Param q query string false "Search username or email"
// @Param limit query int false "Page size (default: 50, max: 200)"
// @Param offset query int false "Rows to skip"
// @Success 200 {object} services.UserListResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	var filters services.UserListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid query parameters", Details: err.Error()})
		return
	}

	h.LogRequest(c, "Listing users", "query", filters.Query)

	resp, err := h.service.List(c.Request.Context(), GetPrincipal(c), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CreateUser creates an account with the given groups
// @Summary Create user
// @Tags users
// @Accept json
// @Produce json
// @Param request body services.RegisterRequest true "New account"
// @Success 201 {object} models.User
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 409 {object} ErrorResponse "Username taken"
// @Router /users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req services.RegisterRequest
	if !h.bind(c, &req) {
		return
	}

	user, err := h.service.Create(c.Request.Context(), GetPrincipal(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// GetUser gets a user by ID
// @Summary Get user by ID
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} ErrorResponse "User not found"
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := h.service.GetByID(c.Request.Context(), GetPrincipal(c), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUser applies a partial update; "groups" replaces membership when present
// @Router /users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UserUpdateRequest
	if !h.bind(c, &req) {
		return
	}

	user, err := h.service.Update(c.Request.Context(), GetPrincipal(c), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
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

// ListGroups lists the role groups
// @Router /groups [get]
func (h *UserHandler) ListGroups(c *gin.Context) {
	groups, err := h.service.ListGroups(c.Request.Context(), GetPrincipal(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}
