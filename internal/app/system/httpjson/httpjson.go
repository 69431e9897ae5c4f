// Package httpjson writes JSON responses and classified JSON errors.
package httpjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dalemusser/groupshare/internal/app/system/apperr"
	"go.uber.org/zap"
)

// MaxBodyBytes caps request bodies read by Decode.
const MaxBodyBytes = 1 << 20

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Write encodes v as the JSON response with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error maps err onto its apperr classification and writes it. Unclassified
// errors are logged and surface as 500 internal without detail.
func Error(w http.ResponseWriter, log *zap.Logger, err error) {
	e := apperr.From(err)
	if e.Status >= http.StatusInternalServerError && log != nil {
		log.Error("request failed", zap.Error(err))
	}
	Write(w, e.Status, ErrorBody{Error: e.Code, Message: e.Message})
}

// Decode reads a JSON body into v. An empty body leaves v untouched.
// Malformed input is reported as apperr.ErrBadRequest.
func Decode(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode body: %v: %w", err, apperr.ErrBadRequest)
	}
	return nil
}
