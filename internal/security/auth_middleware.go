package security

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"tableconfig-editor/pkg/response"
)

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	jwtManager *JWTManager
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(jwtManager *JWTManager) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
	}
}

// RequireAuth creates a middleware that requires authentication
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, response.UnauthorizedResponse(
				"Authorization header is required",
				am.getCorrelationID(c),
			))
			c.Abort()
			return
		}

		// Extract token from header
		token, err := am.jwtManager.ExtractTokenFromHeader(authHeader)
		if err != nil {
			c.JSON(http.StatusUnauthorized, response.UnauthorizedResponse(
				err.Error(),
				am.getCorrelationID(c),
			))
			c.Abort()
			return
		}

		// Validate token
		claims, err := am.jwtManager.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, response.UnauthorizedResponse(
				"Invalid or expired token",
				am.getCorrelationID(c),
			))
			c.Abort()
			return
		}

		// Store claims in context
		c.Set("user_claims", claims)
		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)

		c.Next()
	}
}

// RequireRole creates a middleware that requires a specific role
func (am *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	return am.combineMiddleware(
		am.RequireAuth(),
		am.roleMiddleware(role),
	)
}

func (am *AuthMiddleware) roleMiddleware(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, exists := GetUserClaims(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, response.UnauthorizedResponse(
				"User claims not found",
				am.getCorrelationID(c),
			))
			c.Abort()
			return
		}

		if !claims.HasRole(requiredRole) {
			c.JSON(http.StatusForbidden, response.ForbiddenResponse(
				"Insufficient permissions",
				am.getCorrelationID(c),
			))
			c.Abort()
			return
		}

		c.Next()
	}
}

// Helper functions

func (am *AuthMiddleware) combineMiddleware(middlewares ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, middleware := range middlewares {
			middleware(c)
			if c.IsAborted() {
				return
			}
		}
		c.Next()
	}
}

func (am *AuthMiddleware) getCorrelationID(c *gin.Context) string {
	if correlationID, exists := c.Get("correlation_id"); exists {
		if id, ok := correlationID.(string); ok {
			return id
		}
	}
	return ""
}

// GetUserClaims extracts user claims from context
func GetUserClaims(c *gin.Context) (*Claims, bool) {
	claims, exists := c.Get("user_claims")
	if !exists {
		return nil, false
	}
	userClaims, ok := claims.(*Claims)
	return userClaims, ok
}
