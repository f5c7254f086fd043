package provider

import (
	"context"

	"github.com/gaprio/gaprio/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// ErrProviderNotConfigured is returned when no provider is registered for a platform
var ErrProviderNotConfigured = goerr.New("provider is not configured")

// Channel is a conversation space exposed by a provider
type Channel struct {
	ID         string
	Name       string
	IsPrivate  bool
	NumMembers int
	Topic      string
}

// Message is an outgoing message. ThreadID and SenderName are optional.
type Message struct {
	ChannelID  string
	Text       string
	ThreadID   string
	SenderName string
}

// SentMessage identifies a delivered message so that replies can be threaded under it
type SentMessage struct {
	ChannelID string
	MessageID string
}

// MessagingProvider is the capability shared by workspace platforms that carry conversations
type MessagingProvider interface {
	Platform() types.Platform
	ListChannels(ctx context.Context) ([]Channel, error)
	SendMessage(ctx context.Context, msg *Message) (*SentMessage, error)
}

// Registry selects a MessagingProvider by platform
type Registry struct {
	providers map[types.Platform]MessagingProvider
}

// NewRegistry builds a registry. A later provider for the same platform replaces an earlier one.
func NewRegistry(providers ...MessagingProvider) *Registry {
	r := &Registry{providers: make(map[types.Platform]MessagingProvider)}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Platform()] = p
		}
	}
	return r
}

// Get returns the provider for platform
func (r *Registry) Get(platform types.Platform) (MessagingProvider, error) {
	if r != nil {
		if p, ok := r.providers[platform]; ok {
			return p, nil
		}
	}
	return nil, goerr.Wrap(ErrProviderNotConfigured, "no provider for platform", goerr.V("platform", platform))
}

// Platforms lists the configured platforms in declaration order of types.AllPlatforms
func (r *Registry) Platforms() []types.Platform {
	var platforms []types.Platform
	if r == nil {
		return platforms
	}
	for _, p := range types.AllPlatforms() {
		if _, ok := r.providers[p]; ok {
			platforms = append(platforms, p)
		}
	}
	return platforms
}
