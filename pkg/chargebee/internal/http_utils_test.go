package internal

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestReadBodyStrict(t *testing.T) {
	t.Run("reads body within limit", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"ok":true}`))
		w := httptest.NewRecorder()

		body, err := ReadBodyStrict(w, req, 1024)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if string(body) != `{"ok":true}` {
			t.Errorf("Unexpected body: %q", body)
		}
	})

	t.Run("rejects body over limit", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat("x", 100)))
		w := httptest.NewRecorder()

		_, err := ReadBodyStrict(w, req, 10)
		if !errors.Is(err, ErrPayloadTooLarge) {
			t.Errorf("Expected ErrPayloadTooLarge, got %v", err)
		}
	})

	t.Run("rejects empty body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", http.NoBody)
		w := httptest.NewRecorder()

		_, err := ReadBodyStrict(w, req, 1024)
		if err == nil {
			t.Error("Expected error for empty body")
		}
	})
}
