package controller

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"tableconfig-editor/internal/middleware"
	"tableconfig-editor/internal/security"
	"tableconfig-editor/internal/utils"
	"tableconfig-editor/pkg/response"
)

// AuthController issues and refreshes the tokens that guard the editing
// endpoints. Credentials come from static configuration; there is no user
// store.
type AuthController struct {
	jwtManager    *security.JWTManager
	adminUser     string
	adminPassword string
	validate      *validator.Validate
}

// NewAuthController creates a new AuthController
func NewAuthController(jwtManager *security.JWTManager, adminUser, adminPassword string) *AuthController {
	return &AuthController{
		jwtManager:    jwtManager,
		adminUser:     adminUser,
		adminPassword: adminPassword,
		validate:      validator.New(),
	}
}

// TokenRequest is the payload of POST /api/v1/auth/token
type TokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Token handles POST /api/v1/auth/token. An empty configured password
// disables the endpoint rather than accepting an empty credential.
func (ac *AuthController) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse(
			utils.ErrCodeInvalidParameters, "Invalid request", err.Error(), ac.getCorrelationID(c)))
		return
	}
	if err := ac.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse(
			utils.ErrCodeInvalidParameters, "Invalid request", err.Error(), ac.getCorrelationID(c)))
		return
	}

	if ac.adminPassword == "" || !ac.credentialsMatch(req.Username, req.Password) {
		c.JSON(http.StatusUnauthorized, response.UnauthorizedResponse(
			"Invalid credentials", ac.getCorrelationID(c)))
		return
	}

	token, err := ac.jwtManager.GenerateToken(req.Username, req.Username, []string{"admin"})
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.InternalServerErrorResponse(ac.getCorrelationID(c)))
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse(gin.H{"token": token}, ac.getCorrelationID(c)))
}

// Refresh handles POST /api/v1/auth/refresh. It runs behind RequireAuth, so
// the claims are already validated.
func (ac *AuthController) Refresh(c *gin.Context) {
	claims, ok := security.GetUserClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.UnauthorizedResponse(
			"Authentication required", ac.getCorrelationID(c)))
		return
	}

	token, err := ac.jwtManager.RefreshToken(claims)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.InternalServerErrorResponse(ac.getCorrelationID(c)))
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse(gin.H{"token": token}, ac.getCorrelationID(c)))
}

func (ac *AuthController) credentialsMatch(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(ac.adminUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(ac.adminPassword)) == 1
	return userOK && passOK
}

func (ac *AuthController) getCorrelationID(c *gin.Context) string {
	if correlationID, exists := c.Get(middleware.CorrelationIDKey); exists {
		if id, ok := correlationID.(string); ok {
			return id
		}
	}
	return ""
}
