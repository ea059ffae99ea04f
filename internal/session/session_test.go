package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// newTestStore builds a session store over the test Valkey (DB 15),
// skipping the test when Valkey is unreachable. Session keys written
// during the test are removed on cleanup.
func newTestStore(t *testing.T, secure bool) *Store {
	t.Helper()

	host := os.Getenv("VALKEY_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("VALKEY_PORT")
	if port == "" {
		port = "6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("VALKEY_PASSWORD"),
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping: Valkey not reachable: %v", err)
	}
	t.Cleanup(func() {
		if keys, _ := client.Keys(ctx, keyPrefix+"*").Result(); len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})

	return NewStore(client, secure)
}

// login creates a session for the given user and returns its cookie.
func login(t *testing.T, store *Store, data *Data) *http.Cookie {
	t.Helper()

	w := httptest.NewRecorder()
	if _, err := store.Create(context.Background(), w, data); err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestSessionRoundTrip(t *testing.T) {
	store := newTestStore(t, false)
	ctx := context.Background()

	userID := uuid.New()
	cookie := login(t, store, &Data{
		UserID:      userID,
		Email:       "wache12@polizei.example",
		DisplayName: "Dienststelle Mitte",
		Role:        "editor",
	})

	if cookie.Value == "" {
		t.Error("session ID is empty")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if cookie.Secure {
		t.Error("Secure flag set on a non-TLS store")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/me", nil)
	req.AddCookie(cookie)

	got, err := store.Get(ctx, req)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("session not found after create")
	}
	if got.UserID != userID {
		t.Errorf("UserID: got %s, want %s", got.UserID, userID)
	}
	if got.Email != "wache12@polizei.example" || got.Role != "editor" {
		t.Errorf("payload mangled: %+v", got)
	}
	if got.TwoFADone {
		t.Error("fresh session must start with TwoFADone=false")
	}
}

func TestSessionSecureCookieFlag(t *testing.T) {
	store := newTestStore(t, true)

	cookie := login(t, store, &Data{
		UserID: uuid.New(), Email: "tls@polizei.example", Role: "admin",
	})
	if !cookie.Secure {
		t.Error("Secure flag missing on a TLS store's cookie")
	}
}

func TestSessionGetWithoutValidCookie(t *testing.T) {
	store := newTestStore(t, false)
	ctx := context.Background()

	t.Run("no cookie", func(t *testing.T) {
		got, err := store.Get(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got != nil {
			t.Errorf("got %+v, want nil", got)
		}
	})

	t.Run("stale cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: "long-gone"})

		got, err := store.Get(ctx, req)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got != nil {
			t.Errorf("got %+v, want nil", got)
		}
	})
}

func TestSessionTwoFAPromotion(t *testing.T) {
	store := newTestStore(t, false)
	ctx := context.Background()

	data := &Data{UserID: uuid.New(), Email: "lka@polizei.example", Role: "admin"}
	cookie := login(t, store, data)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	data.TwoFADone = true
	if err := store.Update(ctx, req, data); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := store.Get(ctx, req)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || !got.TwoFADone {
		t.Errorf("TwoFADone not persisted: %+v", got)
	}
}

func TestSessionUpdateRequiresCookie(t *testing.T) {
	store := newTestStore(t, false)

	err := store.Update(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil), &Data{})
	if err == nil {
		t.Error("Update without cookie must fail")
	}
}

func TestSessionDestroy(t *testing.T) {
	store := newTestStore(t, false)
	ctx := context.Background()

	cookie := login(t, store, &Data{
		UserID: uuid.New(), Email: "logout@polizei.example", Role: "editor",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/logout", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()

	if err := store.Destroy(ctx, w, req); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName && c.MaxAge != -1 {
			t.Errorf("cookie MaxAge = %d, want -1", c.MaxAge)
		}
	}

	got, err := store.Get(ctx, req)
	if err != nil {
		t.Fatalf("Get after destroy: %v", err)
	}
	if got != nil {
		t.Error("session survived destroy")
	}
}

func TestSessionDestroyWithoutCookie(t *testing.T) {
	store := newTestStore(t, false)

	err := store.Destroy(context.Background(), httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	if err != nil {
		t.Errorf("Destroy without cookie: %v, want nil", err)
	}
}
