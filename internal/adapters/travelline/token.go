package travelline

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

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/nayzeok/tourist-tour-back/internal/adapters/observability"
	"github.com/nayzeok/tourist-tour-back/internal/domain"
)

const tokenCacheKey = "auth:token"

// cachedToken is the shared-tier representation. ExpiresAt already has the
// safety margin subtracted, so validity is a plain time comparison.
type cachedToken struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expiresAt"`
	Scope     string    `json:"scope,omitempty"`
}

func (t cachedToken) valid() bool {
	return t.Value != "" && time.Now().Before(t.ExpiresAt)
}

// TokenManager owns the client-credentials token lifecycle. Reads go local
// tier, then shared tier, then the token endpoint; at most one endpoint
// call is in flight per process (singleflight), so concurrent callers at
// startup or after expiry never stampede the auth server.
type TokenManager struct {
	hc           *http.Client
	tokenURL     string
	clientID     string
	clientSecret string
	margin       time.Duration
	shared       domain.Cache

	mu  sync.Mutex
	tok cachedToken
	sf  singleflight.Group
}

func NewTokenManager(tokenURL, clientID, clientSecret string, margin time.Duration, shared domain.Cache) (*TokenManager, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("client credentials are required")
	}
	if margin < 60*time.Second {
		margin = 60 * time.Second
	}
	return &TokenManager{
		hc:           &http.Client{Timeout: 15 * time.Second},
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		margin:       margin,
		shared:       shared,
	}, nil
}

// Token returns a currently valid access token, obtaining one if needed.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	if t, ok := m.local(); ok {
		return t, nil
	}
	v, err, _ := m.sf.Do("token", func() (any, error) {
		// a racer may have filled the local tier while we queued
		if t, ok := m.local(); ok {
			return t, nil
		}
		var ct cachedToken
		if ok, err := m.shared.Get(ctx, tokenCacheKey, &ct); err == nil && ok && ct.valid() {
			m.adopt(ct)
			return ct.Value, nil
		}
		return m.obtain(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Refresh invalidates both tiers and obtains a fresh token. Used after an
// authorized call comes back 401/403.
func (m *TokenManager) Refresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.tok = cachedToken{}
	m.mu.Unlock()
	if err := m.shared.Del(ctx, tokenCacheKey); err != nil {
		log.Warn().Err(err).Msg("shared token invalidation failed")
	}
	// a Token call that started before the invalidation may still be in
	// flight with the now-rejected token; never attach to it
	m.sf.Forget("token")
	v, err, _ := m.sf.Do("token", func() (any, error) {
		return m.obtain(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *TokenManager) local() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tok.valid() {
		return m.tok.Value, true
	}
	return "", false
}

func (m *TokenManager) adopt(t cachedToken) {
	m.mu.Lock()
	m.tok = t
	m.mu.Unlock()
}

// obtain performs the client-credentials grant and fills both cache tiers.
func (m *TokenManager) obtain(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(m.clientID, m.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.hc.Do(req)
	if err != nil {
		observability.TokenRefreshes.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: %v", domain.ErrAuthUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		observability.TokenRefreshes.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: token endpoint returned %d", domain.ErrAuthUnavailable, resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
		Scope       string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		observability.TokenRefreshes.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: decode token response: %v", domain.ErrAuthUnavailable, err)
	}
	if body.AccessToken == "" || body.ExpiresIn <= 0 {
		observability.TokenRefreshes.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: token endpoint returned empty grant", domain.ErrAuthUnavailable)
	}

	ttl := time.Duration(body.ExpiresIn)*time.Second - m.margin
	tok := cachedToken{
		Value:     body.AccessToken,
		ExpiresAt: time.Now().Add(ttl),
		Scope:     body.Scope,
	}
	m.adopt(tok)
	if ttl > 0 {
		// the shared tier must expire before the token actually does
		if err := m.shared.Set(ctx, tokenCacheKey, tok, int(ttl.Seconds())); err != nil {
			log.Warn().Err(err).Msg("shared token cache write failed")
		}
	}
	observability.TokenRefreshes.WithLabelValues("ok").Inc()
	log.Debug().Time("expiresAt", tok.ExpiresAt).Msg("access token obtained")
	return tok.Value, nil
}
