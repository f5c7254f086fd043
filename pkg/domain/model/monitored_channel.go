package model

import (
	"time"

	"github.com/gaprio/gaprio/pkg/domain/types"
)

// MonitoredChannel is an external channel a user opted into for event ingestion.
// Records are never deleted; IsActive is flipped instead.
type MonitoredChannel struct {
	ID          int64
	UserID      int64
	Platform    types.Platform
	ChannelID   string
	ChannelName string // display only
	IsActive    bool
	CreatedAt   time.Time
}

// ChannelSpec is the input of upsert operations
type ChannelSpec struct {
	Platform    types.Platform
	ChannelID   string
	ChannelName string
}

// ChannelKey is the uniqueness key of a monitored channel
type ChannelKey struct {
	UserID    int64
	Platform  types.Platform
	ChannelID string
}

// Key returns the uniqueness key of the channel
func (c *MonitoredChannel) Key() ChannelKey {
	return ChannelKey{UserID: c.UserID, Platform: c.Platform, ChannelID: c.ChannelID}
}

// AvailableChannel is a channel reported by a provider, annotated with the user's monitoring state
type AvailableChannel struct {
	ID          string
	Name        string
	IsPrivate   bool
	NumMembers  int
	Topic       string
	IsMonitored bool
}
