// internal/identity/http_provider.go
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// HTTPProvider talks to the identity service over its internal REST API.
type HTTPProvider struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPProvider(baseURL string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (p *HTTPProvider) IsEmailVerified(ctx context.Context, userID uuid.UUID) (bool, error) {
	url := fmt.Sprintf("%s/internal/users/%s", p.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("identity request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return false, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("identity lookup returned %d: %s", resp.StatusCode, body)
	}

	var user struct {
		EmailVerified bool `json:"email_verified"`
	}
	if err := json.Unmarshal(body, &user); err != nil {
		return false, fmt.Errorf("decode user: %w", err)
	}
	return user.EmailVerified, nil
}

func (p *HTTPProvider) SetCustomClaims(ctx context.Context, userID uuid.UUID, claims map[string]interface{}) error {
	payload, err := json.Marshal(map[string]interface{}{"claims": claims})
	if err != nil {
		return fmt.Errorf("marshal claims: %w", err)
	}

	url := fmt.Sprintf("%s/internal/users/%s/claims", p.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return fmt.Errorf("set claims returned %d: %s", resp.StatusCode, body)
	}
	return nil
}
