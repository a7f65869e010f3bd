// Package auth provides the OAuth credential used for every Google Tasks call.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/harrisonrobin/gradesync/pkg/gateway"
	"golang.org/x/oauth2"
)

var (
	// ErrCredentialMissing means there is no client configuration or no token
	// and interactive consent is not allowed.
	ErrCredentialMissing = errors.New("credential missing")

	ErrCredentialExpired = gateway.ErrCredentialExpired
)

// expiryDelta treats tokens this close to expiry as already expired.
const expiryDelta = 10 * time.Second

// CredentialProvider yields a usable bearer credential or fails.
type CredentialProvider interface {
	Token(ctx context.Context) (*oauth2.Token, error)
	Invalidate()
}

// TokenCache caches the token in memory and on disk, refreshing or
// re-authorizing when it expires.
type TokenCache struct {
	mu          sync.Mutex
	config      *oauth2.Config
	tok         *oauth2.Token
	path        string
	interactive bool

	now       func() time.Time
	refresh   func(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token) (*oauth2.Token, error)
	authorize func(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error)
}

// NewTokenCache builds a cache around cfg. A nil cfg yields a cache whose
// Token always fails with ErrCredentialMissing.
func NewTokenCache(cfg *oauth2.Config, tokenPath string, interactive bool) *TokenCache {
	c := &TokenCache{
		config:      cfg,
		path:        tokenPath,
		interactive: interactive,
		now:         time.Now,
		refresh:     refreshToken,
		authorize:   getTokenFromWeb,
	}
	if tokenPath != "" {
		if tok, err := tokenFromFile(tokenPath); err == nil {
			c.tok = tok
		}
	}
	return c
}

// Load reads credentials.json and token.json from dir. A missing
// credentials.json is not an error here; it surfaces on the first Token call.
func Load(dir string, interactive bool) (*TokenCache, error) {
	cfg, err := GetConfig(dir, Scopes)
	if err != nil && !errors.Is(err, ErrCredentialMissing) {
		return nil, err
	}
	return NewTokenCache(cfg, filepath.Join(dir, TokenFile), interactive), nil
}

func refreshToken(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token) (*oauth2.Token, error) {
	return cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: tok.RefreshToken}).Token()
}

func (c *TokenCache) valid() bool {
	if c.tok == nil || c.tok.AccessToken == "" {
		return false
	}
	if c.tok.Expiry.IsZero() {
		return true
	}
	return c.now().Add(expiryDelta).Before(c.tok.Expiry)
}

// Token returns the cached token, refreshing it or running the consent flow
// when needed.
func (c *TokenCache) Token(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.config == nil {
		return nil, fmt.Errorf("%w: no OAuth client configured (place %s in the config directory)", ErrCredentialMissing, ClientSecretsFile)
	}
	if c.valid() {
		return c.tok, nil
	}

	if c.tok != nil && c.tok.RefreshToken != "" {
		fresh, err := c.refresh(ctx, c.config, c.tok)
		if err == nil {
			if fresh.RefreshToken == "" {
				fresh.RefreshToken = c.tok.RefreshToken
			}
			c.store(fresh)
			return fresh, nil
		}
		log.Printf("Warning: token refresh failed: %v", err)
	}

	if c.interactive {
		tok, err := c.authorize(ctx, c.config)
		if err != nil {
			return nil, fmt.Errorf("failed to get token from web: %w", err)
		}
		c.store(tok)
		return tok, nil
	}

	if c.tok == nil {
		return nil, fmt.Errorf("%w: no token cached, run 'gradesync auth'", ErrCredentialMissing)
	}
	return nil, fmt.Errorf("%w: re-run 'gradesync auth'", ErrCredentialExpired)
}

func (c *TokenCache) store(tok *oauth2.Token) {
	c.tok = tok
	if c.path == "" {
		return
	}
	if err := saveToken(c.path, tok); err != nil {
		log.Printf("Warning: %v", err)
	}
}

// Invalidate drops the access token while keeping the refresh token, so the
// next Token call re-acquires.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tok == nil {
		return
	}
	stale := *c.tok
	stale.AccessToken = ""
	c.tok = &stale
}

// Authenticated reports whether a token (possibly refreshable) is held.
func (c *TokenCache) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config != nil && c.tok != nil && (c.tok.AccessToken != "" || c.tok.RefreshToken != "")
}

// TokenSource adapts a CredentialProvider to oauth2.TokenSource.
func TokenSource(ctx context.Context, p CredentialProvider) oauth2.TokenSource {
	return tokenSourceFunc(func() (*oauth2.Token, error) {
		return p.Token(ctx)
	})
}

type tokenSourceFunc func() (*oauth2.Token, error)

func (f tokenSourceFunc) Token() (*oauth2.Token, error) {
	return f()
}

// HTTPClient returns a client that attaches the provider's bearer token to
// every request. No token reuse wrapper is added, so Invalidate takes effect
// on the very next call.
func HTTPClient(ctx context.Context, p CredentialProvider) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: TokenSource(ctx, p),
			Base:   http.DefaultTransport,
		},
		Timeout: 30 * time.Second,
	}
}
