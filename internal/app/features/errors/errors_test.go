package errors_test

import (
	"net/http"
	"testing"

	apierrors "github.com/dalemusser/groupshare/internal/app/features/errors"
	"github.com/dalemusser/groupshare/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func newRouter() chi.Router {
	h := apierrors.NewHandler(zap.NewNop())
	r := chi.NewRouter()
	r.Use(h.Recover)
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)
	r.Get("/ok", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) { panic("boom") })
	return r
}

func TestFallbacks(t *testing.T) {
	r := newRouter()
	tests := []struct {
		name   string
		method string
		path   string
		status int
		code   string
	}{
		{"unknown path", "GET", "/nope", http.StatusNotFound, "not_found"},
		{"wrong method", "POST", "/ok", http.StatusMethodNotAllowed, "method_not_allowed"},
		{"panic", "GET", "/boom", http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			r.ServeHTTP(rec, testutil.NewRequest(tt.method, tt.path))
			rec.AssertStatus(t, tt.status)
			rec.AssertErrorCode(t, tt.code)
		})
	}

	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.NewRequest("GET", "/ok"))
	rec.AssertStatus(t, http.StatusNoContent)
}
