package usecase

import (
	"context"

	"github.com/gaprio/gaprio/pkg/domain/model/auth"
)

// NoAuthnUseCase authenticates every request as a fixed user (for development/testing)
type NoAuthnUseCase struct {
	userID int64
}

// NewNoAuthnUseCase creates a NoAuthnUseCase acting as userID
func NewNoAuthnUseCase(userID int64) *NoAuthnUseCase {
	return &NoAuthnUseCase{userID: userID}
}

// Authenticate ignores token and returns the configured user
func (uc *NoAuthnUseCase) Authenticate(ctx context.Context, token string) (*auth.Principal, error) {
	return &auth.Principal{UserID: uc.userID, Sub: "no-auth"}, nil
}

// IsNoAuthn returns true for NoAuthnUseCase
func (uc *NoAuthnUseCase) IsNoAuthn() bool {
	return true
}
