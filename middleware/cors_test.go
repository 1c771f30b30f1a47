package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func serve(allowed []string, method, origin string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware(allowed))
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(method, "/x", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORSOpenByDefault(t *testing.T) {
	w := serve(nil, http.MethodGet, "https://any.example")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow origin = %q", got)
	}
}

func TestCORSAllowList(t *testing.T) {
	allowed := []string{"https://panel.example/"}

	w := serve(allowed, http.MethodGet, "https://panel.example")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://panel.example" {
		t.Fatalf("allowed origin = %q", got)
	}

	w = serve(allowed, http.MethodGet, "https://evil.example")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("foreign origin = %q", got)
	}

	w = serve(allowed, http.MethodOptions, "https://panel.example")
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight = %d", w.Code)
	}
}
