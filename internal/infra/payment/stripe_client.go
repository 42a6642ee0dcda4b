package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.stripe.com"

// APIError is a non-2xx answer from the processor.
type APIError struct {
	StatusCode int
	Type       string `json:"type"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payment api: status %d: %s", e.StatusCode, e.Message)
}

type StripeClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	verifier   *Verifier
}

var _ Provider = (*StripeClient)(nil)

func NewStripeClient(baseURL, secretKey string, timeout time.Duration, verifier *Verifier) *StripeClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &StripeClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		verifier: verifier,
	}
}

func (c *StripeClient) CreateIntent(ctx context.Context, params IntentParams) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(params.AmountCents, 10))
	form.Set("currency", params.Currency)
	form.Set("automatic_payment_methods[enabled]", "true")
	for k, v := range params.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	var intent Intent
	if err := c.do(ctx, http.MethodPost, "/v1/payment_intents", form, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (c *StripeClient) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	var intent Intent
	err := c.do(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(id), nil, &intent)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, ErrIntentNotFound
		}
		return nil, err
	}
	return &intent, nil
}

func (c *StripeClient) Refund(ctx context.Context, params RefundParams) (*Refund, error) {
	form := url.Values{}
	form.Set("payment_intent", params.PaymentIntentID)
	if params.AmountCents > 0 {
		form.Set("amount", strconv.FormatInt(params.AmountCents, 10))
	}
	if params.Reason != "" {
		form.Set("reason", params.Reason)
	}

	var refund Refund
	if err := c.do(ctx, http.MethodPost, "/v1/refunds", form, &refund); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, ErrIntentNotFound
		}
		return nil, err
	}
	return &refund, nil
}

func (c *StripeClient) ConstructEvent(payload []byte, signatureHeader string) (*Event, error) {
	return c.verifier.ConstructEvent(payload, signatureHeader)
}

func (c *StripeClient) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("payment api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope struct {
			Error APIError `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		apiErr := envelope.Error
		apiErr.StatusCode = resp.StatusCode
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return &apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("payment api: decode %s: %w", path, err)
	}
	return nil
}
