package memory

import (
	"github.com/gaprio/gaprio/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory keeps all records in process memory. Used for development and tests.
type Memory struct {
	suggestedAction  *suggestedActionRepository
	monitoredChannel *monitoredChannelRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		suggestedAction:  newSuggestedActionRepository(),
		monitoredChannel: newMonitoredChannelRepository(),
	}
}

func (m *Memory) SuggestedAction() interfaces.SuggestedActionRepository {
	return m.suggestedAction
}

func (m *Memory) MonitoredChannel() interfaces.MonitoredChannelRepository {
	return m.monitoredChannel
}

func (m *Memory) Close() error {
	return nil
}
