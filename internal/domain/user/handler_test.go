package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"buildhub/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupHandlerRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := setupRepo(t)
	svc := NewService(repo, jwt.New("secret", time.Hour), NewCachedAdminDirectory(repo, nil, time.Minute, zap.NewNop()), zap.NewNop())
	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email: "ops@buildhub.test", Password: "password123", Name: "Ops", Role: RoleAdmin,
	})
	require.NoError(t, err)

	router := gin.New()
	h := NewHandler(svc)
	v1 := router.Group("/api/v1")
	h.RegisterPublicRoutes(v1)
	h.RegisterAdminRoutes(v1.Group("/admin"))
	return router
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_Login(t *testing.T) {
	router := setupHandlerRouter(t)

	w := postJSON(router, "/api/v1/auth/login", LoginRequest{Email: "ops@buildhub.test", Password: "password123"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"token"`)

	w = postJSON(router, "/api/v1/auth/login", LoginRequest{Email: "ops@buildhub.test", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_CREDENTIALS")

	w = postJSON(router, "/api/v1/auth/login", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestHandler_CreateDuplicate(t *testing.T) {
	router := setupHandlerRouter(t)

	w := postJSON(router, "/api/v1/admin/users", CreateUserRequest{
		Email: "ops@buildhub.test", Password: "password123", Name: "Again", Role: RoleManager,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "EMAIL_TAKEN")
}
