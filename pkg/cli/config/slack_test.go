package config_test

import (
	"testing"

	"github.com/gaprio/gaprio/pkg/cli/config"
	"github.com/m-mizutani/gt"
)

func TestSlack_Configure(t *testing.T) {
	t.Run("bot token builds a service", func(t *testing.T) {
		cfg := config.NewSlackForTest("xoxb-test", "")
		gt.True(t, cfg.IsConfigured())
		gt.False(t, cfg.IsWebhookConfigured())

		svc, err := cfg.Configure()
		gt.NoError(t, err).Required()
		gt.Value(t, svc).NotNil()
	})

	t.Run("without bot token", func(t *testing.T) {
		cfg := config.NewSlackForTest("", "signing")
		gt.False(t, cfg.IsConfigured())
		gt.True(t, cfg.IsWebhookConfigured())
		gt.Value(t, cfg.SigningSecret()).Equal("signing")

		svc, err := cfg.Configure()
		gt.NoError(t, err).Required()
		gt.Value(t, svc).Nil()
	})
}
