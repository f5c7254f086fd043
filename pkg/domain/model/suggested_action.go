package model

import (
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/gaprio/gaprio/pkg/domain/types"
)

// MaxSourceContextLength bounds the stored source context, in runes
const MaxSourceContextLength = 500

// SuggestedAction is an operation proposed by the reasoning service for a user to review
type SuggestedAction struct {
	ID     int64
	UserID int64

	SourcePlatform types.Platform
	SourceChannel  string
	SourceContext  string

	SuggestedTool   string
	SuggestedParams Params
	Description     string

	Status       types.ActionStatus
	EditedParams Params // nil until the owner edits the action

	CreatedAt       time.Time
	ExecutedAt      *time.Time
	ExecutionResult json.RawMessage // opaque payload returned by the executor
}

// NewSuggestedAction builds a pending action. The source context is truncated and
// nil params are replaced by an empty mapping.
func NewSuggestedAction(userID int64, platform types.Platform, channel, context, tool string, params Params, description string) *SuggestedAction {
	if params == nil {
		params = Params{}
	}
	if description == "" {
		description = tool + " action"
	}

	return &SuggestedAction{
		UserID:          userID,
		SourcePlatform:  platform,
		SourceChannel:   channel,
		SourceContext:   TruncateRunes(context, MaxSourceContextLength),
		SuggestedTool:   tool,
		SuggestedParams: params,
		Description:     description,
		Status:          types.ActionStatusPending,
	}
}

// ResolvedParams returns the edited params if the owner has edited them, otherwise the suggested params
func (a *SuggestedAction) ResolvedParams() Params {
	if a.EditedParams != nil {
		return a.EditedParams
	}
	return a.SuggestedParams
}

// IsOwnedBy reports whether userID owns the action
func (a *SuggestedAction) IsOwnedBy(userID int64) bool {
	return a.UserID == userID
}

// Copy returns a deep copy of the action
func (a *SuggestedAction) Copy() *SuggestedAction {
	copied := *a
	copied.SuggestedParams = a.SuggestedParams.Clone()
	copied.EditedParams = a.EditedParams.Clone()
	if a.ExecutedAt != nil {
		t := *a.ExecutedAt
		copied.ExecutedAt = &t
	}
	if a.ExecutionResult != nil {
		copied.ExecutionResult = append(json.RawMessage(nil), a.ExecutionResult...)
	}
	return &copied
}

// TruncateRunes cuts s to at most n runes
func TruncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
