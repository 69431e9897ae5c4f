// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/groupshare/internal/app/system/apperr"
	"github.com/dalemusser/groupshare/internal/app/system/httpjson"
	"go.uber.org/zap"
)

// Handler writes the API's fallback error responses. Every body has the
// same {"error","message"} shape as the feature handlers produce.
type Handler struct {
	Log *zap.Logger
}

// NewHandler constructs an errors Handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

// NotFound is the router's fallback for unknown paths.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	httpjson.Error(w, h.Log, apperr.ErrNotFound)
}

// MethodNotAllowed is the router's fallback for a known path with the
// wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusMethodNotAllowed, httpjson.ErrorBody{
		Error:   "method_not_allowed",
		Message: r.Method + " is not supported here",
	})
}

// Recover turns a panic in a downstream handler into a logged 500 internal
// response.
func (h *Handler) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			h.Log.Error("panic serving request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Any("panic", rec),
				zap.Stack("stack"))
			httpjson.Error(w, nil, apperr.ErrInternal)
		}()
		next.ServeHTTP(w, r)
	})
}
