package slack

import (
	"context"
)

// Service provides the subset of the Slack API used by the messaging provider and the event webhook
type Service interface {
	// ListChannels retrieves non-archived public and private conversations visible to the bot
	ListChannels(ctx context.Context) ([]Channel, error)

	// GetChannelNames retrieves channel names for the given IDs (with caching)
	GetChannelNames(ctx context.Context, ids []string) (map[string]string, error)

	// GetUserInfo retrieves user information for the given user ID
	GetUserInfo(ctx context.Context, userID string) (*User, error)

	// PostMessage posts a plain text message, optionally as a thread reply
	PostMessage(ctx context.Context, msg *Message) (*PostedMessage, error)
}

// Channel represents a Slack conversation
type Channel struct {
	ID         string
	Name       string
	IsPrivate  bool
	IsMember   bool
	NumMembers int
	Topic      string
}

// User represents a Slack user
type User struct {
	ID       string
	Name     string
	RealName string
	Email    string
	ImageURL string
}

// Message is an outgoing message
type Message struct {
	ChannelID string
	Text      string
	ThreadTS  string
	Username  string
}

// PostedMessage identifies a message accepted by Slack
type PostedMessage struct {
	ChannelID string
	TS        string
}
