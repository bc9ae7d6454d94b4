package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func request(origins []string, method, origin string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(origins))
	r.Any("/api/courses", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(method, "/api/courses", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORSListedOrigin(t *testing.T) {
	w := request([]string{"https://lms.test/"}, http.MethodGet, "https://lms.test")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://lms.test", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
}

func TestCORSPreflight(t *testing.T) {
	w := request([]string{"https://lms.test"}, http.MethodOptions, "https://lms.test")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotContains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestCORSRejectsUnknownOriginPreflight(t *testing.T) {
	w := request([]string{"https://lms.test"}, http.MethodOptions, "https://evil.test")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWildcardWithoutCredentials(t *testing.T) {
	w := request(nil, http.MethodGet, "https://any.test")

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}
