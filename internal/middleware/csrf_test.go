package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// issueToken runs one safe request through the middleware and returns the
// CSRF cookie it set.
func issueToken(t *testing.T, handler http.Handler) *http.Cookie {
	t.Helper()

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/admin/me", nil))

	for _, c := range rr.Result().Cookies() {
		if c.Name == CSRFCookieName {
			return c
		}
	}
	t.Fatal("CSRF cookie not issued")
	return nil
}

func passHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCSRFIssuesCookie(t *testing.T) {
	for _, secure := range []bool{false, true} {
		handler := NewCSRF(secure)(passHandler())
		cookie := issueToken(t, handler)

		if cookie.Value == "" {
			t.Error("issued token is empty")
		}
		if cookie.Secure != secure {
			t.Errorf("Secure = %v, want %v", cookie.Secure, secure)
		}
		if cookie.SameSite != http.SameSiteStrictMode {
			t.Errorf("SameSite = %v, want Strict", cookie.SameSite)
		}
		// The admin frontend reads the cookie to echo it into the header,
		// so it must not be HttpOnly.
		if cookie.HttpOnly {
			t.Error("CSRF cookie must be readable by scripts")
		}
	}
}

func TestCSRFTokenReachesContext(t *testing.T) {
	var seen string
	handler := NewCSRF(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CSRFTokenFromCtx(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	cookie := issueToken(t, handler)
	if seen == "" || seen != cookie.Value {
		t.Errorf("context token %q, cookie token %q", seen, cookie.Value)
	}

	// A request presenting the cookie keeps the same token instead of
	// minting a new one.
	req := httptest.NewRequest(http.MethodGet, "/api/admin/notices/", nil)
	req.AddCookie(cookie)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != cookie.Value {
		t.Errorf("token rotated across requests: %q != %q", seen, cookie.Value)
	}
}

func TestCSRFTokenFromCtxWithoutMiddleware(t *testing.T) {
	if got := CSRFTokenFromCtx(httptest.NewRequest(http.MethodGet, "/", nil).Context()); got != "" {
		t.Errorf("got %q, want empty string", got)
	}
}

func TestCSRFGuardsMutatingMethods(t *testing.T) {
	handler := NewCSRF(false)(passHandler())
	cookie := issueToken(t, handler)

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		t.Run(method+" without token", func(t *testing.T) {
			req := httptest.NewRequest(method, "/api/admin/notices/", nil)
			req.AddCookie(cookie)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusForbidden {
				t.Errorf("status: got %d, want 403", rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type: got %q, want application/json", ct)
			}
			if !strings.Contains(rr.Body.String(), "error") {
				t.Errorf("body: got %q, want JSON error envelope", rr.Body.String())
			}
		})

		t.Run(method+" with header token", func(t *testing.T) {
			req := httptest.NewRequest(method, "/api/admin/notices/", nil)
			req.AddCookie(cookie)
			req.Header.Set(CSRFHeaderName, cookie.Value)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Errorf("status: got %d, want 200", rr.Code)
			}
		})
	}
}

func TestCSRFSafeMethodsSkipValidation(t *testing.T) {
	handler := NewCSRF(false)(passHandler())
	cookie := issueToken(t, handler)

	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		req := httptest.NewRequest(method, "/api/admin/media/", nil)
		req.AddCookie(cookie)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("%s: got %d, want 200", method, rr.Code)
		}
	}
}

func TestCSRFAcceptsFormFieldToken(t *testing.T) {
	handler := NewCSRF(false)(passHandler())
	cookie := issueToken(t, handler)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/logout?"+CSRFFormField+"="+cookie.Value, nil)
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rr.Code)
	}
}

func TestCSRFRejectsMismatchedToken(t *testing.T) {
	handler := NewCSRF(false)(passHandler())
	cookie := issueToken(t, handler)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/notices/", nil)
	req.AddCookie(cookie)
	req.Header.Set(CSRFHeaderName, "not-the-issued-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want 403", rr.Code)
	}
}
