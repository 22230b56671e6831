package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/giftgate/giftgate/internal/logging"
)

// Verifier asks the verification endpoint whether shared contact data is
// genuine. With failOpen set, transport and decode failures count as verified.
type Verifier struct {
	endpoint   string
	failOpen   bool
	httpClient *http.Client
	logger     *slog.Logger
}

// NewVerifier builds a verification client for endpoint.
func NewVerifier(endpoint string, failOpen bool, timeout time.Duration, logger *slog.Logger) *Verifier {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Verifier{
		endpoint:   endpoint,
		failOpen:   failOpen,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.Component(logger, "telegram.verifier"),
	}
}

type verifyResponse struct {
	Verified bool `json:"verified"`
}

// Verify posts data to the endpoint and reports the verdict.
func (v *Verifier) Verify(ctx context.Context, data ContactAuthData) (bool, error) {
	ok, err := v.post(ctx, data)
	if err == nil {
		return ok, nil
	}
	if v.failOpen {
		v.logger.Warn("verification unavailable, accepting contact", slog.Any("error", err))
		return true, nil
	}
	return false, err
}

func (v *Verifier) post(ctx context.Context, data ContactAuthData) (bool, error) {
	if v.endpoint == "" {
		return false, fmt.Errorf("verification endpoint not configured")
	}
	body, err := json.Marshal(data)
	if err != nil {
		return false, fmt.Errorf("encode auth data: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("verify request: %w", err)
	}
	defer resp.Body.Close()

	var result verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("decode verify response: %w", err)
	}
	return result.Verified, nil
}
