package cli_test

import (
	"testing"

	"github.com/gaprio/gaprio/pkg/cli"
	"github.com/m-mizutani/gt"
)

func TestGetIndexConfig(t *testing.T) {
	t.Run("default names", func(t *testing.T) {
		cfg := cli.GetIndexConfig("")
		gt.Array(t, cfg.Collections).Length(2).Required()
		gt.Value(t, cfg.Collections[0].Name).Equal("suggested_actions")
		gt.Value(t, cfg.Collections[1].Name).Equal("monitored_channels")
		gt.Array(t, cfg.Collections[0].Indexes).Length(3)
	})

	t.Run("prefixed names", func(t *testing.T) {
		cfg := cli.GetIndexConfig("staging")
		gt.Value(t, cfg.Collections[0].Name).Equal("staging_suggested_actions")
		gt.Value(t, cfg.Collections[1].Name).Equal("staging_monitored_channels")
	})
}
