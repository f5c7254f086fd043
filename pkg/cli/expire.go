package cli

import (
	"context"

	"github.com/gaprio/gaprio/pkg/cli/config"
	"github.com/gaprio/gaprio/pkg/service/worker"
	"github.com/gaprio/gaprio/pkg/usecase"
	"github.com/gaprio/gaprio/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdExpire() *cli.Command {
	var configPath string
	var repoCfg config.Repository

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to the TOML configuration file",
			Sources:     cli.EnvVars("GAPRIO_CONFIG"),
			Destination: &configPath,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:  "expire",
		Usage: "Expire stale pending suggested actions once and exit",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			appCfg, err := loadAppConfig(configPath)
			if err != nil {
				return err
			}
			policy := appCfg.ToMonitoringPolicy()

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			uc := usecase.New(repo, usecase.WithMonitoringPolicy(policy))
			w := worker.NewActionExpiryWorker(uc.Action, policy.ExpireAfter, policy.SweepInterval)
			return w.Sweep(ctx)
		},
	}
}
