package rdb

import (
	"context"
	"database/sql"
	"time"

	"github.com/gaprio/gaprio/pkg/domain/model"
	"github.com/gaprio/gaprio/pkg/domain/types"
	"github.com/jmoiron/sqlx"
	"github.com/m-mizutani/goerr/v2"
)

type monitoredChannelRepository struct {
	db *sqlx.DB
}

const monitoredChannelColumns = `id, user_id, platform, channel_id, channel_name, is_active, created_at`

type monitoredChannelRow struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	Platform    string    `db:"platform"`
	ChannelID   string    `db:"channel_id"`
	ChannelName string    `db:"channel_name"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
}

func (row *monitoredChannelRow) toModel() *model.MonitoredChannel {
	return &model.MonitoredChannel{
		ID:          row.ID,
		UserID:      row.UserID,
		Platform:    types.Platform(row.Platform),
		ChannelID:   row.ChannelID,
		ChannelName: row.ChannelName,
		IsActive:    row.IsActive,
		CreatedAt:   row.CreatedAt.UTC(),
	}
}

func upsertChannel(ctx context.Context, q sqlx.ExtContext, userID int64, spec model.ChannelSpec) (*model.MonitoredChannel, error) {
	platform := types.PlatformOrDefault(spec.Platform)
	query := q.Rebind(`INSERT INTO monitored_channels
		(user_id, platform, channel_id, channel_name, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, platform, channel_id)
		DO UPDATE SET channel_name = excluded.channel_name, is_active = excluded.is_active
		RETURNING ` + monitoredChannelColumns)

	var row monitoredChannelRow
	if err := sqlx.GetContext(ctx, q, &row, query,
		userID, platform.String(), spec.ChannelID, spec.ChannelName, true, time.Now().UTC(),
	); err != nil {
		return nil, goerr.Wrap(err, "failed to upsert monitored channel",
			goerr.V("user_id", userID),
			goerr.V("platform", platform),
			goerr.V("channel_id", spec.ChannelID))
	}
	return row.toModel(), nil
}

func (r *monitoredChannelRepository) Upsert(ctx context.Context, userID int64, spec model.ChannelSpec) (*model.MonitoredChannel, error) {
	return upsertChannel(ctx, r.db, userID, spec)
}

func (r *monitoredChannelRepository) BulkUpsert(ctx context.Context, userID int64, specs []model.ChannelSpec) error {
	if len(specs) == 0 {
		return nil
	}

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, spec := range specs {
			if _, err := upsertChannel(ctx, tx, userID, spec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *monitoredChannelRepository) ListByUser(ctx context.Context, userID int64, platform types.Platform) ([]*model.MonitoredChannel, error) {
	query := `SELECT ` + monitoredChannelColumns + ` FROM monitored_channels WHERE user_id = ? AND is_active = ?`
	args := []any{userID, true}
	if platform != "" {
		query += ` AND platform = ?`
		args = append(args, platform.String())
	}
	query += ` ORDER BY channel_name ASC, id ASC`

	var rows []monitoredChannelRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, goerr.Wrap(err, "failed to list monitored channels", goerr.V("user_id", userID), goerr.V("platform", platform))
	}

	channels := make([]*model.MonitoredChannel, 0, len(rows))
	for i := range rows {
		channels = append(channels, rows[i].toModel())
	}
	return channels, nil
}

func (r *monitoredChannelRepository) ListUsersByChannel(ctx context.Context, channelID string) ([]int64, error) {
	query := r.db.Rebind(`SELECT DISTINCT user_id FROM monitored_channels
		WHERE channel_id = ? AND is_active = ? ORDER BY user_id ASC`)

	userIDs := []int64{}
	if err := r.db.SelectContext(ctx, &userIDs, query, channelID, true); err != nil {
		return nil, goerr.Wrap(err, "failed to list users by channel", goerr.V("channel_id", channelID))
	}
	return userIDs, nil
}

func (r *monitoredChannelRepository) Get(ctx context.Context, id int64) (*model.MonitoredChannel, error) {
	query := r.db.Rebind(`SELECT ` + monitoredChannelColumns + ` FROM monitored_channels WHERE id = ?`)

	var row monitoredChannelRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get monitored channel", goerr.V("id", id))
	}
	return row.toModel(), nil
}

func (r *monitoredChannelRepository) Deactivate(ctx context.Context, userID int64, channelID string) error {
	query := r.db.Rebind(`UPDATE monitored_channels SET is_active = ? WHERE user_id = ? AND channel_id = ?`)
	if _, err := r.db.ExecContext(ctx, query, false, userID, channelID); err != nil {
		return goerr.Wrap(err, "failed to deactivate channel", goerr.V("user_id", userID), goerr.V("channel_id", channelID))
	}
	return nil
}

func (r *monitoredChannelRepository) DeactivateByID(ctx context.Context, id int64) error {
	query := r.db.Rebind(`UPDATE monitored_channels SET is_active = ? WHERE id = ?`)
	if _, err := r.db.ExecContext(ctx, query, false, id); err != nil {
		return goerr.Wrap(err, "failed to deactivate channel", goerr.V("id", id))
	}
	return nil
}

func (r *monitoredChannelRepository) ReplaceAll(ctx context.Context, userID int64, platform types.Platform, specs []model.ChannelSpec) error {
	platform = types.PlatformOrDefault(platform)

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`UPDATE monitored_channels SET is_active = ?
			WHERE user_id = ? AND platform = ? AND is_active = ?`)
		if _, err := tx.ExecContext(ctx, query, false, userID, platform.String(), true); err != nil {
			return goerr.Wrap(err, "failed to deactivate channels", goerr.V("user_id", userID), goerr.V("platform", platform))
		}

		for _, spec := range specs {
			spec.Platform = platform
			if _, err := upsertChannel(ctx, tx, userID, spec); err != nil {
				return err
			}
		}
		return nil
	})
}
