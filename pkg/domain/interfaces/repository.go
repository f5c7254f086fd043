package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	SuggestedAction() SuggestedActionRepository
	MonitoredChannel() MonitoredChannelRepository

	Close() error
}
