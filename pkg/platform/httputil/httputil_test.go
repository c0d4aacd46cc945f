package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	dErrors "nbtbook/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != string(dErrors.CodeInternal) {
			t.Fatalf("expected error code %q, got %q", dErrors.CodeInternal, body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("validation error includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeValidation, "national id check digit is invalid"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != string(dErrors.CodeValidation) {
			t.Fatalf("expected error code %q, got %q", dErrors.CodeValidation, body["error"])
		}
		if body["error_description"] != "national id check digit is invalid" {
			t.Fatalf("expected error_description to carry the reason, got %q", body["error_description"])
		}
	})

	t.Run("uncoded error maps to internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, http.ErrBodyNotAllowed)
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
	})

	t.Run("status mapping", func(t *testing.T) {
		tests := map[dErrors.Code]int{
			dErrors.CodeInvalidInput: http.StatusBadRequest,
			dErrors.CodeNotFound:     http.StatusNotFound,
			dErrors.CodeConflict:     http.StatusConflict,
			dErrors.CodeUnauthorized: http.StatusUnauthorized,
			dErrors.CodeForbidden:    http.StatusForbidden,
			dErrors.CodeUnavailable:  http.StatusServiceUnavailable,
		}
		for code, want := range tests {
			if got := StatusOf(code); got != want {
				t.Fatalf("code %s: expected status %d, got %d", code, want, got)
			}
		}
	})
}
