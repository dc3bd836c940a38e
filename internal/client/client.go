// Package client is a merchant-side client for the acquirer's terminal API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/josh-kwaku/acquisim/internal/logging"
	"github.com/josh-kwaku/acquisim/internal/secret"
	"github.com/josh-kwaku/acquisim/internal/token"
)

type Client struct {
	baseURL    string
	terminal   secret.Secret
	httpClient *http.Client
}

func New(baseURL string, terminal secret.Secret) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		terminal: terminal,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type InitPaymentRequest struct {
	NotificationURL string
	SuccessURL      string
	FailURL         string
	Amount          int64
}

type RegisterCardTokenRequest struct {
	NotificationURL string
	SuccessURL      string
	FailURL         string
}

type initPaymentPayload struct {
	NotificationURL string `json:"notification_url"`
	SuccessURL      string `json:"success_url"`
	FailURL         string `json:"fail_url"`
	Amount          int64  `json:"amount"`
	Token           string `json:"token"`
}

type registerCardTokenPayload struct {
	NotificationURL string `json:"notification_url"`
	SuccessURL      string `json:"success_url"`
	FailURL         string `json:"fail_url"`
	Token           string `json:"token"`
}

// StatusError reports a non-200 answer from the acquirer.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("acquirer returned status %d", e.StatusCode)
}

// SignInitPayment canonicalizes the URLs and computes the request token.
func SignInitPayment(req InitPaymentRequest, terminal secret.Secret) (string, InitPaymentRequest, error) {
	urls, err := canonical(req.NotificationURL, req.SuccessURL, req.FailURL)
	if err != nil {
		return "", InitPaymentRequest{}, fmt.Errorf("SignInitPayment: %w", err)
	}
	req.NotificationURL, req.SuccessURL, req.FailURL = urls[0], urls[1], urls[2]
	fields := token.InitPaymentFields(req.NotificationURL, req.SuccessURL, req.FailURL, req.Amount)
	return token.Generate(fields, terminal), req, nil
}

func SignRegisterCardToken(req RegisterCardTokenRequest, terminal secret.Secret) (string, RegisterCardTokenRequest, error) {
	urls, err := canonical(req.NotificationURL, req.SuccessURL, req.FailURL)
	if err != nil {
		return "", RegisterCardTokenRequest{}, fmt.Errorf("SignRegisterCardToken: %w", err)
	}
	req.NotificationURL, req.SuccessURL, req.FailURL = urls[0], urls[1], urls[2]
	fields := token.RegisterCardTokenFields(req.NotificationURL, req.SuccessURL, req.FailURL)
	return token.Generate(fields, terminal), req, nil
}

// InitPayment returns the hosted payment page URL.
func (c *Client) InitPayment(ctx context.Context, req InitPaymentRequest) (string, error) {
	tok, req, err := SignInitPayment(req, c.terminal)
	if err != nil {
		return "", fmt.Errorf("InitPayment: %w", err)
	}

	var resp struct {
		PaymentURL string `json:"payment_url"`
	}
	err = c.post(ctx, "/api/InitPayment", initPaymentPayload{
		NotificationURL: req.NotificationURL,
		SuccessURL:      req.SuccessURL,
		FailURL:         req.FailURL,
		Amount:          req.Amount,
		Token:           tok,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("InitPayment: %w", err)
	}
	return resp.PaymentURL, nil
}

// RegisterCardToken returns the hosted card registration page URL.
func (c *Client) RegisterCardToken(ctx context.Context, req RegisterCardTokenRequest) (string, error) {
	tok, req, err := SignRegisterCardToken(req, c.terminal)
	if err != nil {
		return "", fmt.Errorf("RegisterCardToken: %w", err)
	}

	var resp struct {
		RegisterCardTokenURL string `json:"register_card_token_url"`
	}
	err = c.post(ctx, "/api/RegisterCardToken", registerCardTokenPayload{
		NotificationURL: req.NotificationURL,
		SuccessURL:      req.SuccessURL,
		FailURL:         req.FailURL,
		Token:           tok,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("RegisterCardToken: %w", err)
	}
	return resp.RegisterCardTokenURL, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	log := logging.FromContext(ctx)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	log.Debug("acquirer response received",
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func canonical(raw ...string) ([]string, error) {
	out := make([]string, len(raw))
	for i, r := range raw {
		u, err := token.CanonicalURL(r)
		if err != nil {
			return nil, err
		}
		out[i] = u
	}
	return out, nil
}
