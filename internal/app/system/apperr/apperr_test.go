package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/dalemusser/groupshare/internal/app/system/apperr"
)

func TestFrom(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"sentinel", apperr.ErrTokenAlreadyUsed, "token_already_used", http.StatusBadRequest},
		{"wrapped", fmt.Errorf("verify: %w", apperr.ErrExpiredToken), "expired_token", http.StatusBadRequest},
		{"cross tenant", fmt.Errorf("photo: %w", apperr.ErrNotFound), "not_found", http.StatusNotFound},
		{"refresh", apperr.ErrInvalidRefresh, "invalid_refresh", http.StatusUnauthorized},
		{"plain error", errors.New("mongo down"), "internal", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := apperr.From(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("Code: got %q, want %q", got.Code, tt.wantCode)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("Status: got %d, want %d", got.Status, tt.wantStatus)
			}
		})
	}
}

func TestErrorsIs_WrappedSentinel(t *testing.T) {
	err := fmt.Errorf("change role: %w", apperr.ErrLastAdminProtection)
	if !errors.Is(err, apperr.ErrLastAdminProtection) {
		t.Error("expected errors.Is to match wrapped sentinel")
	}
	if errors.Is(err, apperr.ErrCannotModifyOwner) {
		t.Error("expected errors.Is not to match a different sentinel")
	}
	if !apperr.Classified(err) {
		t.Error("expected wrapped sentinel to be classified")
	}
	if apperr.Classified(errors.New("boom")) {
		t.Error("expected plain error to be unclassified")
	}
}
