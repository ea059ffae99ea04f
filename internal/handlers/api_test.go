package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, http.StatusTeapot, "nope")

	if rr.Code != http.StatusTeapot {
		t.Errorf("status: got %d, want 418", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}

	var resp errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "nope" {
		t.Errorf("error message: got %q", resp.Error)
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok"}`))
		var p payload
		if err := decodeJSON(httptest.NewRecorder(), req, &p); err != nil {
			t.Fatalf("decodeJSON: %v", err)
		}
		if p.Name != "ok" {
			t.Errorf("Name: got %q", p.Name)
		}
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok","bogus":1}`))
		var p payload
		if err := decodeJSON(httptest.NewRecorder(), req, &p); err == nil {
			t.Error("expected error for unknown field")
		}
	})

	t.Run("trailing garbage rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok"}{"name":"again"}`))
		var p payload
		if err := decodeJSON(httptest.NewRecorder(), req, &p); err == nil {
			t.Error("expected error for trailing data")
		}
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
		var p payload
		if err := decodeJSON(httptest.NewRecorder(), req, &p); err == nil {
			t.Error("expected error for malformed JSON")
		}
	})
}
