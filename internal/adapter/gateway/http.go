package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tieiiikw/Laampay/internal/core/domain"
	"github.com/tieiiikw/Laampay/internal/core/security"
)

// HTTPGateway talks to the provider's initiate-payment endpoint. The
// outbound payload is signed with the merchant private key; a circuit
// breaker keeps a flapping provider from tying up every deposit request.
type HTTPGateway struct {
	url    string
	client *http.Client
	signer *security.Signer
	cb     *gobreaker.CircuitBreaker
}

func NewHTTPGateway(url string, signer *security.Signer) *HTTPGateway {
	return &HTTPGateway{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		signer: signer,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "payment-provider",
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("gateway circuit breaker state changed",
					"name", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

type initiateRequest struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Phone    string `json:"phone,omitempty"`
}

type initiateResponse struct {
	ReferenceID string `json:"referenceId"`
	Status      string `json:"status"`
	CheckoutURL string `json:"checkoutUrl"`
	RedirectURL string `json:"redirectUrl"`
}

func (g *HTTPGateway) Initiate(ctx context.Context, tx *domain.Transaction) (*InitiateResult, error) {
	body, err := json.Marshal(initiateRequest{
		OrderID:  tx.ID,
		Amount:   tx.Amount,
		Currency: domain.DefaultCurrency,
		Phone:    tx.Meta.Phone,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal initiate payload: %v", domain.ErrGateway, err)
	}

	signature, err := g.signer.Sign(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}

	result, err := g.cb.Execute(func() (any, error) {
		return g.post(ctx, body, signature)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	return result.(*InitiateResult), nil
}

func (g *HTTPGateway) post(ctx context.Context, body []byte, signature string) (*InitiateResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Laampay/1.0")
	if signature != "" {
		req.Header.Set("Signature", signature)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed initiateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}

	checkout := parsed.CheckoutURL
	if checkout == "" {
		checkout = parsed.RedirectURL
	}

	return &InitiateResult{
		ProviderRef: parsed.ReferenceID,
		Status:      parsed.Status,
		CheckoutURL: checkout,
	}, nil
}

var _ PaymentGateway = (*HTTPGateway)(nil)
