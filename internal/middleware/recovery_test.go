package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRecovererTurnsPanicsInto500(t *testing.T) {
	tests := []struct {
		name  string
		panic any
	}{
		{name: "string", panic: "catalog index out of range"},
		{name: "error", panic: errors.New("vips: image corrupted")},
		{name: "arbitrary value", panic: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				panic(tt.panic)
			}))

			rr := httptest.NewRecorder()
			// Must not propagate the panic.
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/admin/media/", nil))

			if rr.Code != http.StatusInternalServerError {
				t.Errorf("status: got %d, want 500", rr.Code)
			}
		})
	}
}

func TestRecovererPassesThroughHealthyHandlers(t *testing.T) {
	handler := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"n1"}`))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/admin/notices/", nil))

	if rr.Code != http.StatusCreated {
		t.Errorf("status: got %d, want 201", rr.Code)
	}
	if rr.Body.String() != `{"id":"n1"}` {
		t.Errorf("body: got %q", rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
}
