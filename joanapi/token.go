package joanapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/factorydtw/roomboard/telemetry"
)

// RefreshWindow is the lead time before expiry during which a token is
// treated as stale and refreshed before use.
const RefreshWindow = 300 * time.Second

const (
	tokenPath  = "/api/token/"
	tokenScope = "read write"
)

// Token is the single live bearer credential. It is replaced wholesale on
// refresh, never mutated in place.
type Token struct {
	Secret    string
	ExpiresAt time.Time
	Scopes    []string
}

// TokenSource fetches and caches the Joan app access (client credentials) token.
// The process holds exactly one live token; concurrent callers that arrive while
// a refresh is in flight block on the same grant instead of issuing their own.
type TokenSource struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
	Now          func() time.Time // test hook; defaults to time.Now

	mu    sync.RWMutex
	token Token
}

func (ts *TokenSource) now() time.Time {
	if ts.Now != nil {
		return ts.Now()
	}
	return time.Now()
}

func fresh(tok Token, now time.Time) bool {
	return tok.Secret != "" && now.Before(tok.ExpiresAt.Add(-RefreshWindow))
}

// Get returns a valid (fresh or cached) access token. The returned token always
// has at least RefreshWindow of lifetime left at the moment of return.
func (ts *TokenSource) Get(ctx context.Context) (Token, error) {
	ts.mu.RLock()
	if fresh(ts.token, ts.now()) {
		tok := ts.token
		ts.mu.RUnlock()
		return tok, nil
	}
	ts.mu.RUnlock()
	return ts.refresh(ctx)
}

// refresh performs the client-credentials grant. The write lock is held across
// the HTTP exchange: late arrivals queue here, recheck, and reuse the result,
// so a burst of callers produces exactly one grant request.
func (ts *TokenSource) refresh(ctx context.Context) (Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if fresh(ts.token, ts.now()) {
		return ts.token, nil
	}
	if ts.ClientID == "" || ts.ClientSecret == "" {
		return Token{}, &AuthError{Err: errors.New("missing consumer key/secret for joan token")}
	}
	form := url.Values{}
	form.Set("client_id", ts.ClientID)
	form.Set("client_secret", ts.ClientSecret)
	form.Set("grant_type", "client_credentials")
	form.Set("scope", tokenScope)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.BaseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, &AuthError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	hc := ts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		telemetry.IncTokenGrantFailed()
		return Token{}, &AuthError{Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		telemetry.IncTokenGrantFailed()
		return Token{}, &AuthError{Err: fmt.Errorf("token request failed: %s: %s", resp.Status, string(b))}
	}
	var at struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&at); err != nil {
		telemetry.IncTokenGrantFailed()
		return Token{}, &AuthError{Err: err}
	}
	if at.AccessToken == "" {
		telemetry.IncTokenGrantFailed()
		return Token{}, &AuthError{Err: errors.New("empty access_token in joan response")}
	}
	ts.token = Token{
		Secret:    at.AccessToken,
		ExpiresAt: ts.now().Add(time.Duration(at.ExpiresIn) * time.Second),
		Scopes:    strings.Fields(tokenScope),
	}
	telemetry.IncTokenRefreshed()
	return ts.token, nil
}
