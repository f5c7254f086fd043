package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gaprio/gaprio/pkg/domain/interfaces"
	"github.com/gaprio/gaprio/pkg/domain/model"
	"github.com/gaprio/gaprio/pkg/domain/types"
	"github.com/gaprio/gaprio/pkg/service/agent"
	"github.com/gaprio/gaprio/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// ExecutionResult is returned by ExecuteAction on success
type ExecutionResult struct {
	Success bool
	Result  json.RawMessage
}

// ExecutionError carries the message to show when the reasoning service fails
// to execute an action
type ExecutionError struct {
	Detail string
	Cause  error
}

func (e *ExecutionError) Error() string {
	return e.Detail
}

func (e *ExecutionError) Unwrap() []error {
	return []error{ErrExecutionFailed, e.Cause}
}

// ActionUseCase is the review surface of suggested actions
type ActionUseCase struct {
	repo  interfaces.Repository
	agent agent.Service
}

func NewActionUseCase(repo interfaces.Repository, agentSvc agent.Service) *ActionUseCase {
	return &ActionUseCase{
		repo:  repo,
		agent: agentSvc,
	}
}

// getOwned fetches an action and verifies that userID owns it
func (uc *ActionUseCase) getOwned(ctx context.Context, userID, actionID int64) (*model.SuggestedAction, error) {
	action, err := uc.repo.SuggestedAction().Get(ctx, actionID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get action", goerr.V(ActionIDKey, actionID))
	}
	if action == nil {
		return nil, goerr.Wrap(ErrActionNotFound, "action not found", goerr.V(ActionIDKey, actionID))
	}
	if !action.IsOwnedBy(userID) {
		return nil, goerr.Wrap(ErrUnauthorized, "action belongs to another user",
			goerr.V(ActionIDKey, actionID), goerr.V(UserIDKey, userID))
	}
	return action, nil
}

func requirePending(action *model.SuggestedAction) error {
	if action.Status != types.ActionStatusPending {
		return goerr.Wrap(ErrActionNotPending, "action is not pending",
			goerr.V(ActionIDKey, action.ID), goerr.V("status", action.Status))
	}
	return nil
}

// ListActions returns the user's actions newest first. Empty status matches any status.
func (uc *ActionUseCase) ListActions(ctx context.Context, userID int64, status types.ActionStatus, limit int) ([]*model.SuggestedAction, error) {
	if status != "" && !status.IsValid() {
		return nil, goerr.Wrap(ErrInvalidInput, "invalid status filter", goerr.V("status", status))
	}

	actions, err := uc.repo.SuggestedAction().ListByUser(ctx, userID, status, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list actions", goerr.V(UserIDKey, userID))
	}
	return actions, nil
}

func (uc *ActionUseCase) PendingCount(ctx context.Context, userID int64) (int, error) {
	count, err := uc.repo.SuggestedAction().CountPending(ctx, userID)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count pending actions", goerr.V(UserIDKey, userID))
	}
	return count, nil
}

// UpdateParams stores the owner's edited parameters. They take precedence over
// the suggested ones from then on.
func (uc *ActionUseCase) UpdateParams(ctx context.Context, userID, actionID int64, params model.Params) error {
	action, err := uc.getOwned(ctx, userID, actionID)
	if err != nil {
		return err
	}
	if err := requirePending(action); err != nil {
		return err
	}
	if params == nil {
		return goerr.Wrap(ErrInvalidInput, "params is required", goerr.V(ActionIDKey, actionID))
	}

	if err := uc.repo.SuggestedAction().UpdateParams(ctx, actionID, params); err != nil {
		return goerr.Wrap(err, "failed to update params", goerr.V(ActionIDKey, actionID))
	}
	return nil
}

func (uc *ActionUseCase) RejectAction(ctx context.Context, userID, actionID int64) error {
	action, err := uc.getOwned(ctx, userID, actionID)
	if err != nil {
		return err
	}
	if err := requirePending(action); err != nil {
		return err
	}

	if err := uc.repo.SuggestedAction().UpdateStatus(ctx, actionID, types.ActionStatusRejected, nil); err != nil {
		return goerr.Wrap(err, "failed to reject action", goerr.V(ActionIDKey, actionID))
	}
	return nil
}

// ExecuteAction runs the action through the reasoning service with the resolved
// parameters. A failed attempt leaves the action pending.
func (uc *ActionUseCase) ExecuteAction(ctx context.Context, userID, actionID int64) (*ExecutionResult, error) {
	action, err := uc.getOwned(ctx, userID, actionID)
	if err != nil {
		return nil, err
	}
	if err := requirePending(action); err != nil {
		return nil, err
	}
	if uc.agent == nil {
		return nil, goerr.Wrap(ErrExecutionFailed, "agent is not configured", goerr.V(ActionIDKey, actionID))
	}

	result, err := uc.agent.ExecuteAction(ctx, &agent.ExecuteRequest{
		UserID:     userID,
		Tool:       action.SuggestedTool,
		Parameters: action.ResolvedParams(),
	})
	if err != nil {
		return nil, goerr.Wrap(&ExecutionError{Detail: agent.ErrorDetail(err), Cause: err}, "failed to execute action",
			goerr.V(ActionIDKey, actionID),
			goerr.V("tool", action.SuggestedTool))
	}

	if err := uc.repo.SuggestedAction().UpdateStatus(ctx, actionID, types.ActionStatusExecuted, result); err != nil {
		return nil, goerr.Wrap(err, "action executed but status update failed", goerr.V(ActionIDKey, actionID))
	}

	logging.From(ctx).Info("action executed",
		ActionIDKey, actionID,
		UserIDKey, userID,
		"tool", action.SuggestedTool)

	return &ExecutionResult{Success: true, Result: result}, nil
}

// ExpireStale expires pending actions older than olderThan
func (uc *ActionUseCase) ExpireStale(ctx context.Context, olderThan time.Duration) (int, error) {
	n, err := uc.repo.SuggestedAction().ExpireOld(ctx, olderThan)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to expire stale actions", goerr.V("older_than", olderThan.String()))
	}
	return n, nil
}
