package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// tokenSafetyMargin is subtracted from the provider-reported lifetime so a
// token is never handed out moments before the provider rejects it.
const tokenSafetyMargin = 60 * time.Second

// TokenSource holds a single cached bearer token obtained through an OAuth
// client-credentials exchange. Concurrent callers that find the token
// expired collapse into one exchange.
type TokenSource struct {
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client
	now          func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	group singleflight.Group
}

// NewTokenSource creates a TokenSource for the given token endpoint.
func NewTokenSource(clientID, clientSecret, tokenURL string, httpClient *http.Client) *TokenSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &TokenSource{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     tokenURL,
		httpClient:   httpClient,
		now:          time.Now,
	}
}

// Token returns the cached token if it is still inside its safety-adjusted
// lifetime, otherwise performs one exchange and caches the result. A failed
// exchange caches nothing.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	if t.token != "" && t.now().Before(t.expiresAt) {
		tok := t.token
		t.mu.Unlock()
		return tok, nil
	}
	t.mu.Unlock()

	v, err, _ := t.group.Do("token", func() (any, error) {
		// Re-check under the flight: another caller may have refreshed
		// between the unlock above and entering the group.
		t.mu.Lock()
		if t.token != "" && t.now().Before(t.expiresAt) {
			tok := t.token
			t.mu.Unlock()
			return tok, nil
		}
		t.mu.Unlock()
		return t.exchange(ctx)
	})
	if err != nil {
		return "", fmt.Errorf("auth failed: %w", err)
	}
	return v.(string), nil
}

func (t *TokenSource) exchange(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", t.clientID)
	form.Set("client_secret", t.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request failed (%d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if result.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	issued := t.now()
	t.mu.Lock()
	t.token = result.AccessToken
	t.expiresAt = issued.Add(time.Duration(result.ExpiresIn)*time.Second - tokenSafetyMargin)
	t.mu.Unlock()

	return result.AccessToken, nil
}
