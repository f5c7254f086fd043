package usecase

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/gaprio/gaprio/pkg/domain/model/auth"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
)

// AuthUseCaseInterface authenticates callers of the HTTP surface
type AuthUseCaseInterface interface {
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
	IsNoAuthn() bool
}

const userIDClaim = "id"

// AuthUseCase verifies HS256 bearer tokens issued by the identity service
type AuthUseCase struct {
	secret []byte
	skew   time.Duration
	cache  *authCache
}

// AuthOption is a functional option for AuthUseCase
type AuthOption func(*AuthUseCase)

// WithAcceptableSkew sets the tolerated clock difference for exp/nbf checks
func WithAcceptableSkew(d time.Duration) AuthOption {
	return func(uc *AuthUseCase) {
		uc.skew = d
	}
}

func NewAuthUseCase(secret string, options ...AuthOption) (*AuthUseCase, error) {
	if secret == "" {
		return nil, goerr.New("JWT secret is required")
	}

	uc := &AuthUseCase{
		secret: []byte(secret),
		skew:   10 * time.Second,
		cache:  newAuthCache(),
	}
	for _, opt := range options {
		opt(uc)
	}
	return uc, nil
}

// IsNoAuthn returns false for AuthUseCase
func (uc *AuthUseCase) IsNoAuthn() bool {
	return false
}

// Authenticate verifies token and extracts the numeric user ID from the "id"
// claim, falling back to a numeric "sub"
func (uc *AuthUseCase) Authenticate(ctx context.Context, token string) (*auth.Principal, error) {
	if token == "" {
		return nil, goerr.Wrap(ErrUnauthenticated, "token is empty")
	}
	if p, ok := uc.cache.get(token); ok {
		return p, nil
	}

	parsed, err := jwt.Parse([]byte(token),
		jwt.WithKey(jwa.HS256, uc.secret),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(uc.skew),
	)
	if err != nil {
		return nil, goerr.Wrap(ErrUnauthenticated, "failed to verify token", goerr.V("error", err.Error()))
	}

	userID, err := principalUserID(parsed)
	if err != nil {
		return nil, err
	}

	p := &auth.Principal{UserID: userID, Sub: parsed.Subject()}
	uc.cache.set(token, p, parsed.Expiration())
	return p, nil
}

func principalUserID(token jwt.Token) (int64, error) {
	if v, ok := token.Get(userIDClaim); ok {
		if id, ok := toUserID(v); ok {
			return id, nil
		}
		return 0, goerr.Wrap(ErrUnauthenticated, "id claim is not a positive integer", goerr.V("id", v))
	}

	if id, err := strconv.ParseInt(token.Subject(), 10, 64); err == nil && id > 0 {
		return id, nil
	}
	return 0, goerr.Wrap(ErrUnauthenticated, "token has no numeric user id", goerr.V("sub", token.Subject()))
}

func toUserID(v any) (int64, bool) {
	var id int64
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		id = int64(n)
	case int64:
		id = n
	case int:
		id = int64(n)
	case json.Number:
		parsed, err := n.Int64()
		if err != nil {
			return 0, false
		}
		id = parsed
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, false
		}
		id = parsed
	default:
		return 0, false
	}
	return id, id > 0
}
