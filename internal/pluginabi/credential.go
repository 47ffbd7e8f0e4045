package pluginabi

import (
	"context"
	"errors"
	"sync"
	"time"
)

// CredentialErrorKind classifies a failure from a CredentialSource, mirroring
// the shape of the dropped go-opencode-ai-zen-sdk's error taxonomy (its
// zen.APIError / token-refresh errors that internal/provider/zen.go checked
// with errors.As) — salvaged here since TomeHostV2.Chat still needs a
// host-mediated credential that can expire and be refreshed, even though the
// SDK itself has no import site anywhere in this module.
type CredentialErrorKind int

const (
	// ErrKindInvalidToken means the cached token was rejected outright and
	// a fresh TokenExchange is required, not just a refresh.
	ErrKindInvalidToken CredentialErrorKind = iota
	// ErrKindTokenExchange means the initial exchange (e.g. an OAuth
	// authorization-code or API-key bootstrap) itself failed.
	ErrKindTokenExchange
	// ErrKindTokenRefresh means a refresh of an otherwise-valid token
	// failed.
	ErrKindTokenRefresh
	// ErrKindNetwork means the credential endpoint could not be reached at
	// all; callers should retry with backoff rather than re-prompt.
	ErrKindNetwork
)

func (k CredentialErrorKind) String() string {
	switch k {
	case ErrKindInvalidToken:
		return "invalid_token"
	case ErrKindTokenExchange:
		return "token_exchange"
	case ErrKindTokenRefresh:
		return "token_refresh"
	case ErrKindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// CredentialError wraps the underlying transport error with a
// CredentialErrorKind so callers can decide whether to re-prompt the user
// or just retry.
type CredentialError struct {
	Kind CredentialErrorKind
	Err  error
}

func (e *CredentialError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *CredentialError) Unwrap() error { return e.Err }

// Token is a credential with an expiry, refreshed lazily by a
// CredentialSource.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

func (t Token) expired(now time.Time) bool {
	return t.ExpiresAt.IsZero() || !now.Before(t.ExpiresAt)
}

// CredentialSource produces a fresh Token for a named external endpoint a
// plugin wants to reach through TomeHostV2.Chat. Implementations typically
// wrap an OAuth token-exchange/refresh flow; Refresh should return a
// *CredentialError on failure so the host can classify it.
type CredentialSource interface {
	Refresh(ctx context.Context) (Token, error)
}

// cachingSource wraps a CredentialSource with a mutex-guarded cache so
// concurrent plugin calls to the same endpoint share one in-flight refresh,
// grounded on the host-owned-credential model in spec.md §4.11 (plugins
// never see the raw token, only the host-mediated Chat call).
type cachingSource struct {
	mu     sync.Mutex
	src    CredentialSource
	cached Token
}

// NewCachingSource wraps src so repeated Refresh() calls reuse a cached,
// not-yet-expired token instead of round-tripping a refresh every call.
func NewCachingSource(src CredentialSource) CredentialSource {
	return &cachingSource{src: src}
}

func (c *cachingSource) Refresh(ctx context.Context) (Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.cached.expired(time.Now()) {
		return c.cached, nil
	}
	tok, err := c.src.Refresh(ctx)
	if err != nil {
		var credErr *CredentialError
		if !errors.As(err, &credErr) {
			err = &CredentialError{Kind: ErrKindNetwork, Err: err}
		}
		return Token{}, err
	}
	c.cached = tok
	return tok, nil
}
