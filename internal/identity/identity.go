// Package identity verifies the bearer tokens issued by the external auth
// service and tracks sign-in and sign-out transitions.
package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/wingmentor/wingmentor-api/pkg/jwt"
	"github.com/wingmentor/wingmentor-api/pkg/logger"
	"go.uber.org/zap"
)

// ErrRevoked is returned for tokens that were signed out
var ErrRevoked = errors.New("token has been revoked")

// User is the authenticated caller
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Change describes an auth state transition. User is nil on sign-out.
type Change struct {
	UserID string
	User   *User
}

// SignedIn reports whether the change is a sign-in
func (c Change) SignedIn() bool {
	return c.User != nil
}

// Provider authenticates tokens. Revoked tokens are remembered until they
// would have expired anyway; the first use of a token counts as a sign-in.
type Provider struct {
	tokens  *jwt.TokenManager
	revoked *cache.Cache
	seen    *cache.Cache

	mu        sync.RWMutex
	listeners map[int]func(Change)
	nextID    int
}

// NewProvider creates a provider. maxTokenTTL bounds how long revocations and
// sign-in markers are kept for tokens without a usable expiry.
func NewProvider(tokens *jwt.TokenManager, maxTokenTTL time.Duration) *Provider {
	return &Provider{
		tokens:    tokens,
		revoked:   cache.New(maxTokenTTL, 10*time.Minute),
		seen:      cache.New(maxTokenTTL, 10*time.Minute),
		listeners: make(map[int]func(Change)),
	}
}

// Authenticate validates token and returns its user
func (p *Provider) Authenticate(token string) (*User, error) {
	claims, err := p.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	key := tokenKey(token)
	if _, revoked := p.revoked.Get(key); revoked {
		return nil, ErrRevoked
	}

	user := &User{ID: claims.UserID(), DisplayName: claims.DisplayName, Email: claims.Email}
	if p.seen.Add(key, user.ID, ttlOf(claims)) == nil {
		logger.Info("User signed in", zap.String("uid", user.ID))
		p.notify(Change{UserID: user.ID, User: user})
	}
	return user, nil
}

// SignOut revokes token and notifies listeners
func (p *Provider) SignOut(token string) error {
	claims, err := p.tokens.ValidateToken(token)
	if err != nil {
		return err
	}
	key := tokenKey(token)
	p.revoked.Set(key, struct{}{}, ttlOf(claims))
	p.seen.Delete(key)

	logger.Info("User signed out", zap.String("uid", claims.UserID()))
	p.notify(Change{UserID: claims.UserID()})
	return nil
}

// OnAuthStateChanged registers cb for sign-in and sign-out transitions and
// returns a function that removes it
func (p *Provider) OnAuthStateChanged(cb func(Change)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = cb
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

func (p *Provider) notify(change Change) {
	p.mu.RLock()
	listeners := make([]func(Change), 0, len(p.listeners))
	for _, cb := range p.listeners {
		listeners = append(listeners, cb)
	}
	p.mu.RUnlock()

	for _, cb := range listeners {
		cb(change)
	}
}

type contextKey struct{}

// WithUser returns a context carrying user
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// CurrentUser returns the authenticated user of the request, or nil
func CurrentUser(ctx context.Context) *User {
	user, _ := ctx.Value(contextKey{}).(*User)
	return user
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func ttlOf(claims *jwt.UserClaims) time.Duration {
	if claims.ExpiresAt == nil {
		return cache.DefaultExpiration
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return time.Second
	}
	return ttl
}
