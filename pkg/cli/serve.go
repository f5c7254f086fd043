package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/gaprio/gaprio/pkg/cli/config"
	httpctrl "github.com/gaprio/gaprio/pkg/controller/http"
	"github.com/gaprio/gaprio/pkg/service/provider"
	"github.com/gaprio/gaprio/pkg/service/worker"
	"github.com/gaprio/gaprio/pkg/usecase"
	"github.com/gaprio/gaprio/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// loadAppConfig reads the optional configuration file
func loadAppConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		return &config.AppConfig{}, nil
	}
	appCfg, err := config.LoadAppConfiguration(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load configuration")
	}
	logging.Default().Info("Configuration loaded", "path", path)
	return appCfg, nil
}

func cmdServe() *cli.Command {
	var addr string
	var configPath string
	var repoCfg config.Repository
	var agentCfg config.Agent
	var slackCfg config.Slack
	var authCfg config.Auth

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("GAPRIO_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to the TOML configuration file",
			Sources:     cli.EnvVars("GAPRIO_CONFIG"),
			Destination: &configPath,
		},
	}

	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, agentCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, authCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
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

			authUC, err := authCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure authentication")
			}

			agentSvc, err := agentCfg.Configure(&appCfg.Agent)
			if err != nil {
				return goerr.Wrap(err, "failed to configure agent")
			}

			ucOpts := []usecase.Option{
				usecase.WithMonitoringPolicy(policy),
			}
			if agentSvc != nil {
				ucOpts = append(ucOpts, usecase.WithAgent(agentSvc))
			}

			var providers []provider.MessagingProvider
			slackSvc, err := slackCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to initialize slack service")
			}
			if slackSvc != nil {
				providers = append(providers, provider.NewSlack(slackSvc))
				ucOpts = append(ucOpts, usecase.WithSlackService(slackSvc))
				logging.Default().Info("Slack provider enabled")
			} else {
				logging.Default().Info("Slack Bot Token not configured, Slack features are disabled")
			}
			ucOpts = append(ucOpts, usecase.WithProviders(provider.NewRegistry(providers...)))

			uc := usecase.New(repo, ucOpts...)

			expiryWorker := worker.NewActionExpiryWorker(uc.Action, policy.ExpireAfter, policy.SweepInterval)
			if err := expiryWorker.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start action expiry worker")
			}

			httpOpts := []httpctrl.Options{
				httpctrl.WithAuth(authUC),
			}
			if slackCfg.IsWebhookConfigured() {
				httpOpts = append(httpOpts, httpctrl.WithSlackWebhook(httpctrl.NewSlackWebhookHandler(uc.Slack), slackCfg.SigningSecret()))
				logging.Default().Info("Slack webhook handler enabled")
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc, httpOpts...),
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server",
					"addr", addr,
					"repository", repoCfg,
					"agent", agentCfg,
					"slack", slackCfg,
					"auth", authCfg,
				)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				expiryWorker.Stop()
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				expiryWorker.Stop()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
