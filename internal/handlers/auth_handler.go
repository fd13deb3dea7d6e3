package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/student-records-service/internal/services"
	"github.com/SAP-F-2025/student-records-service/internal/utils"
)

type AuthHandler struct {
	BaseHandler
	service services.AuthService
}

func NewAuthHandler(service services.AuthService, logger utils.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// LoginResponse wraps the issued token pair
type LoginResponse struct {
	Tokens *services.TokenPair `json:"tokens"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Login authenticates a username and password
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.LoginRequest true "Credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !h.bind(c, &req) {
		return
	}

	h.LogRequest(c, "Login attempt", "username", req.Username)

	tokens, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Tokens: tokens})
}

// Register creates an account; admin only
// @Summary Register a user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.RegisterRequest true "New account"
// @Success 201 {object} services.RegisterResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if !h.bind(c, &req) {
		return
	}

	resp, err := h.service.Register(c.Request.Context(), GetPrincipal(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Refresh exchanges a refresh token for a new pair; the old refresh token stops working
// @Router /auth/token/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !h.bind(c, &req) {
		return
	}

	tokens, err := h.service.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// Logout revokes the refresh token and the access token used for this request
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req logoutRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.service.Logout(c.Request.Context(), GetPrincipal(c), req.RefreshToken); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Successfully logged out"})
}
