package rdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/gaprio/gaprio/pkg/domain/interfaces"
	"github.com/gaprio/gaprio/pkg/domain/model"
	"github.com/gaprio/gaprio/pkg/domain/types"
	"github.com/jmoiron/sqlx"
	"github.com/m-mizutani/goerr/v2"
)

type suggestedActionRepository struct {
	db *sqlx.DB
}

const suggestedActionColumns = `id, user_id, source_platform, source_channel, source_context,
	suggested_tool, suggested_params, description, status, edited_params,
	created_at, executed_at, execution_result`

type suggestedActionRow struct {
	ID              int64          `db:"id"`
	UserID          int64          `db:"user_id"`
	SourcePlatform  string         `db:"source_platform"`
	SourceChannel   string         `db:"source_channel"`
	SourceContext   string         `db:"source_context"`
	SuggestedTool   string         `db:"suggested_tool"`
	SuggestedParams string         `db:"suggested_params"`
	Description     string         `db:"description"`
	Status          string         `db:"status"`
	EditedParams    sql.NullString `db:"edited_params"`
	CreatedAt       time.Time      `db:"created_at"`
	ExecutedAt      sql.NullTime   `db:"executed_at"`
	ExecutionResult sql.NullString `db:"execution_result"`
}

func (row *suggestedActionRow) toModel() (*model.SuggestedAction, error) {
	suggested, err := model.DecodeParams(row.SuggestedParams)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid suggested_params", goerr.V("id", row.ID))
	}
	if suggested == nil {
		suggested = model.Params{}
	}

	var edited model.Params
	if row.EditedParams.Valid {
		edited, err = model.DecodeParams(row.EditedParams.String)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid edited_params", goerr.V("id", row.ID))
		}
	}

	action := &model.SuggestedAction{
		ID:              row.ID,
		UserID:          row.UserID,
		SourcePlatform:  types.Platform(row.SourcePlatform),
		SourceChannel:   row.SourceChannel,
		SourceContext:   row.SourceContext,
		SuggestedTool:   row.SuggestedTool,
		SuggestedParams: suggested,
		Description:     row.Description,
		Status:          types.ActionStatus(row.Status),
		EditedParams:    edited,
		CreatedAt:       row.CreatedAt.UTC(),
	}
	if row.ExecutedAt.Valid {
		t := row.ExecutedAt.Time.UTC()
		action.ExecutedAt = &t
	}
	if row.ExecutionResult.Valid {
		action.ExecutionResult = model.DecodeResult(row.ExecutionResult.String)
	}
	return action, nil
}

func insertSuggestedAction(ctx context.Context, q sqlx.ExtContext, action *model.SuggestedAction, now time.Time) (int64, error) {
	params := action.SuggestedParams
	if params == nil {
		params = model.Params{}
	}
	suggested, err := model.EncodeParams(params)
	if err != nil {
		return 0, err
	}

	query := q.Rebind(`INSERT INTO suggested_actions
		(user_id, source_platform, source_channel, source_context, suggested_tool,
		 suggested_params, description, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	var id int64
	if err := sqlx.GetContext(ctx, q, &id, query,
		action.UserID,
		types.PlatformOrDefault(action.SourcePlatform).String(),
		action.SourceChannel,
		action.SourceContext,
		action.SuggestedTool,
		suggested,
		action.Description,
		types.ActionStatusPending.String(),
		now,
	); err != nil {
		return 0, goerr.Wrap(err, "failed to insert suggested action", goerr.V("user_id", action.UserID))
	}
	return id, nil
}

func (r *suggestedActionRepository) Create(ctx context.Context, action *model.SuggestedAction) (*model.SuggestedAction, error) {
	id, err := insertSuggestedAction(ctx, r.db, action, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	created, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, goerr.New("suggested action disappeared after insert", goerr.V("id", id))
	}
	return created, nil
}

func (r *suggestedActionRepository) CreateMany(ctx context.Context, actions []*model.SuggestedAction) (int, error) {
	if len(actions) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	ids := make([]int64, len(actions))
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for i, action := range actions {
			id, err := insertSuggestedAction(ctx, tx, action, now)
			if err != nil {
				return err
			}
			ids[i] = id
		}
		return nil
	})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to insert suggested actions", goerr.V("count", len(actions)))
	}

	for i, action := range actions {
		action.ID = ids[i]
		action.Status = types.ActionStatusPending
		action.CreatedAt = now
	}
	return len(actions), nil
}

func (r *suggestedActionRepository) Get(ctx context.Context, id int64) (*model.SuggestedAction, error) {
	query := r.db.Rebind(`SELECT ` + suggestedActionColumns + ` FROM suggested_actions WHERE id = ?`)

	var row suggestedActionRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get suggested action", goerr.V("id", id))
	}
	return row.toModel()
}

func (r *suggestedActionRepository) ListByUser(ctx context.Context, userID int64, status types.ActionStatus, limit int) ([]*model.SuggestedAction, error) {
	if limit <= 0 {
		limit = interfaces.DefaultListLimit
	}

	query := `SELECT ` + suggestedActionColumns + ` FROM suggested_actions WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status.String())
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	var rows []suggestedActionRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, goerr.Wrap(err, "failed to list suggested actions", goerr.V("user_id", userID), goerr.V("status", status))
	}

	actions := make([]*model.SuggestedAction, 0, len(rows))
	for i := range rows {
		action, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, nil
}

func (r *suggestedActionRepository) CountPending(ctx context.Context, userID int64) (int, error) {
	query := r.db.Rebind(`SELECT COUNT(*) FROM suggested_actions WHERE user_id = ? AND status = ?`)

	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, types.ActionStatusPending.String()); err != nil {
		return 0, goerr.Wrap(err, "failed to count pending actions", goerr.V("user_id", userID))
	}
	return count, nil
}

func (r *suggestedActionRepository) UpdateParams(ctx context.Context, id int64, params model.Params) error {
	if params == nil {
		params = model.Params{}
	}
	encoded, err := model.EncodeParams(params)
	if err != nil {
		return err
	}

	query := r.db.Rebind(`UPDATE suggested_actions SET edited_params = ? WHERE id = ? AND status = ?`)
	if _, err := r.db.ExecContext(ctx, query, encoded, id, types.ActionStatusPending.String()); err != nil {
		return goerr.Wrap(err, "failed to update params", goerr.V("id", id))
	}
	return nil
}

func (r *suggestedActionRepository) UpdateStatus(ctx context.Context, id int64, status types.ActionStatus, result json.RawMessage) error {
	if !types.ActionStatusPending.CanTransitionTo(status) {
		return nil
	}

	var (
		query string
		args  []any
	)
	if status == types.ActionStatusExecuted {
		query = `UPDATE suggested_actions
			SET status = ?, executed_at = ?, execution_result = COALESCE(?, execution_result)
			WHERE id = ? AND status = ?`
		args = []any{status.String(), time.Now().UTC(), nullString(model.EncodeResult(result)), id, types.ActionStatusPending.String()}
	} else {
		query = `UPDATE suggested_actions SET status = ? WHERE id = ? AND status = ?`
		args = []any{status.String(), id, types.ActionStatusPending.String()}
	}

	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return goerr.Wrap(err, "failed to update status", goerr.V("id", id), goerr.V("status", status))
	}
	return nil
}

func (r *suggestedActionRepository) ExpireOld(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	query := r.db.Rebind(`UPDATE suggested_actions SET status = ? WHERE status = ? AND created_at < ?`)

	res, err := r.db.ExecContext(ctx, query, types.ActionStatusExpired.String(), types.ActionStatusPending.String(), cutoff)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to expire old actions", goerr.V("cutoff", cutoff))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, goerr.Wrap(err, "failed to get affected rows")
	}
	return int(affected), nil
}
