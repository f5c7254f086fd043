package config

import (
	"log/slog"
	"time"

	"github.com/gaprio/gaprio/pkg/usecase"
	"github.com/gaprio/gaprio/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

type Auth struct {
	jwtSecret string
	skew      time.Duration
	noAuthUID int64
}

func (x *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "jwt-secret",
			Usage:       "HMAC secret used to verify bearer tokens",
			Category:    "Auth",
			Destination: &x.jwtSecret,
			Sources:     cli.EnvVars("GAPRIO_JWT_SECRET"),
		},
		&cli.DurationFlag{
			Name:        "jwt-acceptable-skew",
			Usage:       "Clock skew tolerated when validating token expiry",
			Category:    "Auth",
			Value:       30 * time.Second,
			Destination: &x.skew,
			Sources:     cli.EnvVars("GAPRIO_JWT_ACCEPTABLE_SKEW"),
		},
		&cli.Int64Flag{
			Name:        "no-auth",
			Usage:       "Skip authentication and act as the given user ID (development only)",
			Category:    "Auth",
			Destination: &x.noAuthUID,
			Sources:     cli.EnvVars("GAPRIO_NO_AUTH"),
		},
	}
}

func (x Auth) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("jwt-secret.len", len(x.jwtSecret)),
		slog.Duration("jwt-acceptable-skew", x.skew),
		slog.Int64("no-auth", x.noAuthUID),
	)
}

// IsNoAuthMode returns true if no-auth mode is enabled
func (x *Auth) IsNoAuthMode() bool {
	return x.noAuthUID > 0
}

// Configure returns the authentication use case. --no-auth takes precedence over --jwt-secret.
func (x *Auth) Configure() (usecase.AuthUseCaseInterface, error) {
	if x.noAuthUID < 0 {
		return nil, goerr.Wrap(ErrInvalidConfig, "--no-auth must be a positive user ID", goerr.V("no_auth", x.noAuthUID))
	}

	if x.IsNoAuthMode() {
		if x.jwtSecret != "" {
			logging.Default().Warn("--no-auth is set, ignoring --jwt-secret")
		}
		logging.Default().Warn("Authentication is disabled", "user_id", x.noAuthUID)
		return usecase.NewNoAuthnUseCase(x.noAuthUID), nil
	}

	if x.jwtSecret == "" {
		return nil, goerr.Wrap(ErrMissingParameter, "authentication is required: set --jwt-secret, or use --no-auth with a user ID")
	}

	uc, err := usecase.NewAuthUseCase(x.jwtSecret, usecase.WithAcceptableSkew(x.skew))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create auth use case")
	}
	return uc, nil
}
