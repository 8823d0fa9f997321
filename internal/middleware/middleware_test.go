package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sensei-assign-api/internal/models"
	"github.com/noah-isme/sensei-assign-api/internal/service"
	appErrors "github.com/noah-isme/sensei-assign-api/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
	err    error
	seen   string
}

func (v *validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	v.seen = token
	return v.claims, v.err
}

func protectedRouter(v TokenValidator, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/trips/:id/candidates", JWT(v), RequireRoles(roles...), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doGet(r http.Handler, auth string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/trips/t1/candidates", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestJWTRejectsMissingOrMalformedHeader(t *testing.T) {
	r := protectedRouter(&validatorStub{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}}, models.RoleAdmin)

	assert.Equal(t, http.StatusUnauthorized, doGet(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "Bearer ").Code)
}

func TestJWTPropagatesValidatorError(t *testing.T) {
	r := protectedRouter(&validatorStub{err: appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")}, models.RoleAdmin)

	w := doGet(r, "Bearer expired")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "invalid token"))
}

func TestRequireRoles(t *testing.T) {
	stub := &validatorStub{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleOperator}}
	r := protectedRouter(stub, models.RoleAdmin)
	assert.Equal(t, http.StatusForbidden, doGet(r, "Bearer tok").Code)
	assert.Equal(t, "tok", stub.seen)

	stub.claims = &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}
	assert.Equal(t, http.StatusOK, doGet(r, "Bearer tok").Code)

	stub.claims = &models.JWTClaims{UserID: "u1", Role: models.RoleSuperAdmin}
	assert.Equal(t, http.StatusOK, doGet(r, "bearer tok").Code)
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/trips/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, path := range []string{"/trips/a", "/trips/b", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	count, err := testutil.GatherAndCount(metrics.Registry(), "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetricsMiddlewareSkipsHealthRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	count, err := testutil.GatherAndCount(metrics.Registry(), "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
