package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelchat/internal/pkg/jwtutil"
)

func newOwnerRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/owner", mw, func(c *gin.Context) {
		c.String(http.StatusOK, OwnerID(c))
	})
	return r
}

func get(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/owner", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOptionalAuth(t *testing.T) {
	token, err := jwtutil.GenerateToken("secret", time.Hour, "u1", "ana")
	require.NoError(t, err)
	r := newOwnerRouter(OptionalAuth("secret"))

	w := get(r, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())

	for _, header := range []string{"", "Basic abc", "Bearer garbage"} {
		w := get(r, header)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
	}
}

func TestAuthJWT(t *testing.T) {
	token, err := jwtutil.GenerateToken("secret", time.Hour, "u1", "ana")
	require.NoError(t, err)
	r := newOwnerRouter(AuthJWT("secret"))

	assert.Equal(t, http.StatusOK, get(r, "Bearer "+token).Code)

	w := get(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing authorization header")

	w = get(r, "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid or expired token")
}
