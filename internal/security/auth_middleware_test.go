package security

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newGuardedRouter(t *testing.T, manager *JWTManager) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	am := NewAuthMiddleware(manager)

	router := gin.New()
	router.GET("/protected", am.RequireAuth(), func(c *gin.Context) {
		userID, _ := c.Get("user_id")
		c.JSON(http.StatusOK, gin.H{"userId": userID})
	})
	router.DELETE("/admin-only", am.RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	router := newGuardedRouter(t, NewJWTManager("test-secret", time.Hour))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/protected", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "UNAUTHORIZED") {
		t.Errorf("body should carry the UNAUTHORIZED code: %s", w.Body.String())
	}
}

func TestRequireAuthRejectsGarbageToken(t *testing.T) {
	router := newGuardedRouter(t, NewJWTManager("test-secret", time.Hour))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestRequireAuthPassesValidToken(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)
	router := newGuardedRouter(t, manager)

	token, err := manager.GenerateToken("alice", "alice", nil)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"userId":"alice"`) {
		t.Errorf("user_id not propagated to the handler: %s", w.Body.String())
	}
}

func TestRequireRoleForbidsWithoutRole(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)
	router := newGuardedRouter(t, manager)

	token, err := manager.GenerateToken("bob", "bob", []string{"viewer"})
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("DELETE", "/admin-only", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 without the admin role, got %d", w.Code)
	}
}

func TestRequireRoleAllowsAdmin(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)
	router := newGuardedRouter(t, manager)

	token, err := manager.GenerateToken("alice", "alice", []string{"admin"})
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("DELETE", "/admin-only", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with the admin role, got %d: %s", w.Code, w.Body.String())
	}
}
