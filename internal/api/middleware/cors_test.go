package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/osms-business/osms_server/config"
)

var dashboardCORS = config.CORSConfig{
	AllowedOrigins: []string{"https://app.osms.example", "http://localhost:3000"},
	AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	AllowedHeaders: []string{"Authorization", "Content-Type"},
}

func corsRouter(cfg config.CORSConfig) *gin.Engine {
	router := gin.New()
	router.Use(CORS(cfg))
	router.POST("/api/v1/sms/send", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestCORS_DashboardOrigins(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.CORSConfig
		origin     string
		wantOrigin string
	}{
		{"production dashboard", dashboardCORS, "https://app.osms.example", "https://app.osms.example"},
		{"local dashboard", dashboardCORS, "http://localhost:3000", "http://localhost:3000"},
		{"unknown site", dashboardCORS, "https://evil.example", ""},
		{"server to server", dashboardCORS, "", ""},
		{"wildcard echoes caller", config.CORSConfig{AllowedOrigins: []string{"*"}}, "https://partner.example", "https://partner.example"},
		{"nothing configured", config.CORSConfig{}, "https://app.osms.example", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/sms/send", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			corsRouter(tt.cfg).ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantOrigin != "" {
				assert.Equal(t, "Origin", w.Header().Get("Vary"))
			}
		})
	}
}

func TestCORS_PreflightForAuthorizedSend(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sms/send", nil)
	req.Header.Set("Origin", "https://app.osms.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	w := httptest.NewRecorder()

	corsRouter(dashboardCORS).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.osms.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Authorization, Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
}
