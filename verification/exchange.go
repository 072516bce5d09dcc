package verification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ExchangeClient obtains the opaque request reference the wallet holder must
// present to their wallet to answer a verification request.
type ExchangeClient interface {
	CreateRequest(ctx context.Context, tx Transaction, callbackURL string) (requestRef string, err error)
}

// LocalExchange serves the request object from this deployment itself. The
// wallet fetches it from our request-object endpoint; used when no external
// exchange is configured.
type LocalExchange struct {
	baseURL string
}

func NewLocalExchange(baseURL string) *LocalExchange {
	return &LocalExchange{baseURL: strings.TrimRight(baseURL, "/")}
}

func (e *LocalExchange) CreateRequest(ctx context.Context, tx Transaction, callbackURL string) (string, error) {
	return fmt.Sprintf("%s/api/v1/request-object/%s", e.baseURL, url.PathEscape(tx.ID)), nil
}

// HTTPExchange registers the verification request with an external wallet
// exchange and relays back the reference it issues.
type HTTPExchange struct {
	exchangeURL string
	client      *http.Client
}

func NewHTTPExchange(exchangeURL string) *HTTPExchange {
	return &HTTPExchange{
		exchangeURL: strings.TrimRight(exchangeURL, "/"),
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (e *HTTPExchange) CreateRequest(ctx context.Context, tx Transaction, callbackURL string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"transactionId": tx.ID,
		"companyCode":   tx.CompanyCode,
		"nonce":         tx.Nonce,
		"callbackUrl":   callbackURL,
	})
	if err != nil {
		return "", fmt.Errorf("verification: encode exchange request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.exchangeURL+"/requests", strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("verification: build exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("verification: exchange call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("verification: exchange returned %d", resp.StatusCode)
	}

	var out struct {
		RequestURI string `json:"requestUri"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("verification: decode exchange response: %w", err)
	}
	if out.RequestURI == "" {
		return "", fmt.Errorf("verification: exchange returned no request uri")
	}
	return out.RequestURI, nil
}
