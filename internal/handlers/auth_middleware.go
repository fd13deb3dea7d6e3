package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/student-records-service/internal/policy"
	"github.com/SAP-F-2025/student-records-service/internal/services"
	"github.com/SAP-F-2025/student-records-service/internal/utils"
)

const principalKey = "principal"

// AuthMiddleware resolves bearer tokens to principals and gates routes on the policy
type AuthMiddleware struct {
	auth   services.AuthService
	logger utils.Logger
}

func NewAuthMiddleware(auth services.AuthService, logger utils.Logger) *AuthMiddleware {
	return &AuthMiddleware{auth: auth, logger: logger}
}

// Authenticate attaches the caller's principal when an Authorization header is present.
// Requests without one continue anonymously; a present but invalid token is rejected.
func (am *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid authorization header format",
			})
			return
		}

		principal, err := am.auth.ResolvePrincipal(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			utils.FromGin(c, am.logger).Debug("Bearer token rejected", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: publicMessage(err, services.ErrUnauthorized),
			})
			return
		}

		c.Set(principalKey, principal)
		c.Set("user_id", principal.UserID)
		c.Next()
	}
}

// RequireAuth rejects anonymous callers
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetPrincipal(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Authentication credentials were not provided",
			})
			return
		}
		c.Next()
	}
}

// Allow gates a route on the authorization policy
func (am *AuthMiddleware) Allow(action policy.Action, resource policy.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := GetPrincipal(c)
		if policy.Authorize(p, action, resource) == policy.Allow {
			c.Next()
			return
		}

		if p == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Authentication credentials were not provided",
			})
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
			Message: "You do not have permission to perform this action",
		})
	}
}
