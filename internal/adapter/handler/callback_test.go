package handler

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tieiiikw/Laampay/internal/adapter/gateway"
	"github.com/tieiiikw/Laampay/internal/adapter/storage/memory"
	"github.com/tieiiikw/Laampay/internal/core/domain"
	"github.com/tieiiikw/Laampay/internal/core/events"
	"github.com/tieiiikw/Laampay/internal/core/payments"
	"github.com/tieiiikw/Laampay/internal/core/security"
	"github.com/tieiiikw/Laampay/internal/core/worker"
	"github.com/tieiiikw/Laampay/internal/metrics"
)

type stubGateway struct{}

func (stubGateway) Initiate(ctx context.Context, tx *domain.Transaction) (*gateway.InitiateResult, error) {
	return &gateway.InitiateResult{ProviderRef: "r1", Status: "PENDING", CheckoutURL: "https://checkout.example/r1"}, nil
}

func setupCallbackApp(t *testing.T) (*fiber.App, *memory.Store, *security.Signer, *payments.Service) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pubDER, _ := x509.MarshalPKIXPublicKey(&key.PublicKey)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	signer, err := security.NewSigner(privPEM)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	verifier, err := security.NewVerifier(pubPEM, security.ModeStrict)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	store := memory.NewStore()
	scheduler := worker.NewScheduler()
	t.Cleanup(scheduler.Stop)

	service := payments.NewService(store, stubGateway{}, verifier, scheduler, events.NoopPublisher{}, metrics.NoOpCollector{}, payments.Config{
		WithdrawDelay: time.Second,
	})

	app := fiber.New()
	h := &CallbackHandler{Service: service}
	app.Post("/v1/payments/callback", h.ProviderCallback)

	return app, store, signer, service
}

func TestProviderCallback_AcceptsSignedPayload(t *testing.T) {
	app, store, signer, service := setupCallbackApp(t)

	deposit, err := service.Deposit(context.Background(), "u1", "+251911000000", 100)
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	raw, _ := json.Marshal(map[string]any{
		"orderId": deposit.TransactionID,
		"status":  "SUCCESS",
		"amount":  100,
	})
	token, err := signer.Sign(raw)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/payments/callback", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Signature", token)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	balance, _ := store.GetBalance(context.Background(), "u1")
	if balance != 100 {
		t.Errorf("balance = %d, want 100", balance)
	}
}

func TestProviderCallback_RejectsBadSignature(t *testing.T) {
	app, store, _, service := setupCallbackApp(t)

	deposit, err := service.Deposit(context.Background(), "u1", "+251911000000", 100)
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	raw, _ := json.Marshal(map[string]any{
		"orderId": deposit.TransactionID,
		"status":  "SUCCESS",
		"amount":  100,
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/payments/callback", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Signature", "bm90IGEgcmVhbCBzaWduYXR1cmU=")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}

	balance, _ := store.GetBalance(context.Background(), "u1")
	if balance != 0 {
		t.Errorf("balance moved on rejected callback: %d", balance)
	}
}

func TestProviderCallback_AcknowledgesDuplicatesAndUnknowns(t *testing.T) {
	app, _, signer, service := setupCallbackApp(t)

	deposit, err := service.Deposit(context.Background(), "u1", "+251911000000", 100)
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	send := func(orderID string) (int, map[string]any) {
		raw, _ := json.Marshal(map[string]any{"orderId": orderID, "status": "SUCCESS", "amount": 100})
		token, err := signer.Sign(raw)
		if err != nil {
			t.Fatalf("Sign: %v", err)
		}

		req := httptest.NewRequest(http.MethodPost, "/v1/payments/callback", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Signature", token)

		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		var body map[string]any
		json.NewDecoder(resp.Body).Decode(&body)
		return resp.StatusCode, body
	}

	if status, body := send(deposit.TransactionID); status != http.StatusOK || body["outcome"] != "processed" {
		t.Errorf("first delivery: status=%d body=%v", status, body)
	}
	if status, body := send(deposit.TransactionID); status != http.StatusOK || body["outcome"] != "duplicate" {
		t.Errorf("duplicate delivery: status=%d body=%v", status, body)
	}
	if status, body := send("no-such-tx"); status != http.StatusOK || body["outcome"] != "unknown" {
		t.Errorf("unknown delivery: status=%d body=%v", status, body)
	}
}
