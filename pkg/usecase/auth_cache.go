package usecase

import (
	"crypto/sha256"
	"sync"
	"time"

	"github.com/gaprio/gaprio/pkg/domain/model/auth"
)

const (
	authCacheTTL = 5 * time.Minute
)

type cachedPrincipal struct {
	principal *auth.Principal
	expiresAt time.Time
}

// authCache keeps verified principals keyed by the token digest
type authCache struct {
	cache sync.Map
}

func newAuthCache() *authCache {
	return &authCache{}
}

func (c *authCache) get(token string) (*auth.Principal, bool) {
	key := sha256.Sum256([]byte(token))
	val, ok := c.cache.Load(key)
	if !ok {
		return nil, false
	}

	cached := val.(*cachedPrincipal)
	if time.Now().After(cached.expiresAt) {
		c.cache.Delete(key)
		return nil, false
	}

	return cached.principal, true
}

// set caches p until the token expires or the TTL passes, whichever comes first
func (c *authCache) set(token string, p *auth.Principal, tokenExpiry time.Time) {
	expiresAt := time.Now().Add(authCacheTTL)
	if !tokenExpiry.IsZero() && tokenExpiry.Before(expiresAt) {
		expiresAt = tokenExpiry
	}
	c.cache.Store(sha256.Sum256([]byte(token)), &cachedPrincipal{
		principal: p,
		expiresAt: expiresAt,
	})
}
