package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/tieiiikw/Laampay/internal/adapter/storage/memory"
	"github.com/tieiiikw/Laampay/internal/core/security"
)

func TestProtected(t *testing.T) {
	store := memory.NewStore()

	realKey, keyHash, err := security.GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	if err := store.SaveAPIKey(context.Background(), "u1", keyHash); err != nil {
		t.Fatalf("SaveAPIKey: %v", err)
	}

	app := fiber.New()
	app.Get("/private", Protected(store), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"merchant_id": c.Locals("merchant_id")})
	})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"malformed header", "Token abc", http.StatusUnauthorized},
		{"wrong key", "Bearer lp_live_wrong", http.StatusUnauthorized},
		{"valid key", "Bearer " + realKey, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tc.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestIdempotency_ReplaysCachedResponse(t *testing.T) {
	store := memory.NewStore()

	var handled atomic.Int32
	app := fiber.New()
	app.Post("/pay", Idempotency(store), func(c *fiber.Ctx) error {
		handled.Add(1)
		return c.Status(http.StatusAccepted).JSON(fiber.Map{"n": handled.Load()})
	})

	send := func(key string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/pay", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		return resp
	}

	first := send("k1")
	if first.StatusCode != http.StatusAccepted {
		t.Fatalf("first status = %d", first.StatusCode)
	}

	second := send("k1")
	if second.StatusCode != http.StatusAccepted {
		t.Errorf("replay status = %d, want 202", second.StatusCode)
	}
	if second.Header.Get("X-Idempotency-Hit") != "true" {
		t.Error("expected replay marker header")
	}
	if got := handled.Load(); got != 1 {
		t.Errorf("handler ran %d times, want 1", got)
	}

	// No key means no caching.
	send("")
	send("")
	if got := handled.Load(); got != 3 {
		t.Errorf("handler ran %d times, want 3", got)
	}
}
