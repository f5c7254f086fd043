package cli

import (
	"context"

	"github.com/gaprio/gaprio/pkg/cli/config"
	"github.com/gaprio/gaprio/pkg/repository/firestore"
	"github.com/gaprio/gaprio/pkg/repository/rdb"
	"github.com/gaprio/gaprio/pkg/utils/logging"
	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var repoCfg config.Repository
	var dryRun bool

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Preview changes without applying (firestore backend only)",
			Destination: &dryRun,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate SQL schema or Firestore indexes of the configured backend",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()
			logger.Info("Migrate configuration", "repository", repoCfg, "dryRun", dryRun)

			switch repoCfg.Backend() {
			case config.BackendPostgres, config.BackendSQLite:
				if dryRun {
					logger.Warn("Dry run is not supported for SQL backends, nothing applied")
					return nil
				}
				dialect, dsn, err := repoCfg.SQL()
				if err != nil {
					return err
				}
				if err := rdb.Migrate(dialect, dsn); err != nil {
					return goerr.Wrap(err, "failed to apply SQL migrations")
				}
				logger.Info("SQL migrations applied successfully", "dialect", dialect)
				return nil

			case config.BackendFirestore:
				return migrateFirestore(ctx, &repoCfg, dryRun)

			case config.BackendMemory:
				logger.Info("In-memory backend needs no migration")
				return nil

			default:
				return goerr.Wrap(config.ErrInvalidBackend, "unknown backend", goerr.V(config.BackendKey, repoCfg.Backend()))
			}
		},
	}
}

func migrateFirestore(ctx context.Context, repoCfg *config.Repository, dryRun bool) error {
	logger := logging.Default()

	if repoCfg.ProjectID() == "" {
		return goerr.Wrap(config.ErrMissingParameter, "firestore-project-id is required when using firestore backend")
	}

	indexConfig := getIndexConfig(repoCfg.CollectionPrefix())

	client, err := fireconf.NewClient(ctx, repoCfg.ProjectID(), repoCfg.DatabaseID())
	if err != nil {
		return goerr.Wrap(err, "failed to create fireconf client")
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close fireconf client", "error", err.Error())
		}
	}()

	if dryRun {
		logger.Info("Dry run mode - previewing changes")
		plan, err := client.GetMigrationPlan(ctx, indexConfig)
		if err != nil {
			return goerr.Wrap(err, "failed to create migration plan")
		}

		if len(plan.Steps) == 0 {
			logger.Info("No changes required")
			return nil
		}

		for _, step := range plan.Steps {
			logger.Info("Migration step",
				"collection", step.Collection,
				"operation", step.Operation,
				"description", step.Description,
				"destructive", step.Destructive)
		}
		return nil
	}

	logger.Info("Applying migrations")
	if err := client.Migrate(ctx, indexConfig); err != nil {
		return goerr.Wrap(err, "failed to apply migrations")
	}
	logger.Info("Migrations applied successfully")
	return nil
}

// getIndexConfig returns the Firestore composite indexes used by the repository queries
func getIndexConfig(prefix string) *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: firestore.CollectionName(prefix, firestore.SuggestedActionsCollection),
				Indexes: []fireconf.Index{
					// ListByUser with status filter
					{
						Fields: []fireconf.IndexField{
							{Path: "user_id", Order: fireconf.OrderAscending},
							{Path: "status", Order: fireconf.OrderAscending},
							{Path: "created_at", Order: fireconf.OrderDescending},
							{Path: "id", Order: fireconf.OrderDescending},
						},
					},
					// ListByUser without status filter
					{
						Fields: []fireconf.IndexField{
							{Path: "user_id", Order: fireconf.OrderAscending},
							{Path: "created_at", Order: fireconf.OrderDescending},
							{Path: "id", Order: fireconf.OrderDescending},
						},
					},
					// ExpireOld: status ==, created_at <
					{
						Fields: []fireconf.IndexField{
							{Path: "status", Order: fireconf.OrderAscending},
							{Path: "created_at", Order: fireconf.OrderAscending},
						},
					},
				},
			},
			{
				Name: firestore.CollectionName(prefix, firestore.MonitoredChannelsCollection),
				Indexes: []fireconf.Index{
					{
						Fields: []fireconf.IndexField{
							{Path: "user_id", Order: fireconf.OrderAscending},
							{Path: "is_active", Order: fireconf.OrderAscending},
							{Path: "platform", Order: fireconf.OrderAscending},
						},
					},
					{
						Fields: []fireconf.IndexField{
							{Path: "channel_id", Order: fireconf.OrderAscending},
							{Path: "is_active", Order: fireconf.OrderAscending},
						},
					},
				},
			},
		},
	}
}
