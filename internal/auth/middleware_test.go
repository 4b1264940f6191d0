package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/r9s-ai/gptdesk/internal/keystore"
)

func newRouter(store *keystore.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(func() *keystore.Store { return store }))
	r.GET("/ok", func(c *gin.Context) { c.String(200, c.GetString(CtxAccessKeyName)) })
	return r
}

func TestMiddleware(t *testing.T) {
	r := newRouter(keystore.NewStatic("local-key"))
	cases := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"bearer", "Authorization", "Bearer local-key", http.StatusOK},
		{"bearer lowercase scheme", "Authorization", "bearer local-key", http.StatusOK},
		{"x-api-key", "x-api-key", "local-key", http.StatusOK},
		{"wrong key", "Authorization", "Bearer nope", http.StatusUnauthorized},
		{"missing", "", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ok", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("code=%d want=%d body=%s", w.Code, tc.want, w.Body.String())
			}
			if tc.want == http.StatusOK && w.Body.String() != "static-1" {
				t.Fatalf("key name got=%q", w.Body.String())
			}
		})
	}
}

func TestMiddleware_NoKeys(t *testing.T) {
	r := newRouter(keystore.NewStatic())
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("Authorization", "Bearer anything")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("code=%d", w.Code)
	}
}
