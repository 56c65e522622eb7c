package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// authProbe mounts a trivial route behind bearerAuth and fires one request.
func authProbe(t *testing.T, configured, header string) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.GET("/probe", bearerAuth(configured), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBearerAuth(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		header     string
		wantStatus int
	}{
		{"valid token", "s3cret", "Bearer s3cret", http.StatusOK},
		{"missing header", "s3cret", "", http.StatusUnauthorized},
		{"wrong token", "s3cret", "Bearer nope", http.StatusForbidden},
		{"wrong scheme", "s3cret", "Basic s3cret", http.StatusForbidden},
		{"bare token without scheme", "s3cret", "s3cret", http.StatusForbidden},
		{"unset token admits everything", "", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := authProbe(t, tt.configured, tt.header)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				assert.Contains(t, w.Body.String(), `"success":false`)
				assert.Contains(t, w.Body.String(), `"kind":"authz"`)
			}
		})
	}
}
