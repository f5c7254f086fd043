package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/gaprio/gaprio/pkg/domain/interfaces"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Firestore struct {
	client           *firestore.Client
	suggestedAction  *suggestedActionRepository
	monitoredChannel *monitoredChannelRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.suggestedAction.collectionPrefix = prefix
		f.monitoredChannel.collectionPrefix = prefix
	}
}

// New creates a Firestore backed repository. An empty databaseID selects the default database.
func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	f := &Firestore{
		client:           client,
		suggestedAction:  newSuggestedActionRepository(client),
		monitoredChannel: newMonitoredChannelRepository(client),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) SuggestedAction() interfaces.SuggestedActionRepository {
	return f.suggestedAction
}

func (f *Firestore) MonitoredChannel() interfaces.MonitoredChannelRepository {
	return f.monitoredChannel
}

func (f *Firestore) Close() error {
	if err := f.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close firestore client")
	}
	return nil
}

const (
	SuggestedActionsCollection  = "suggested_actions"
	MonitoredChannelsCollection = "monitored_channels"
)

// CollectionName returns the collection name with the optional prefix applied
func CollectionName(prefix, name string) string {
	if prefix != "" {
		return prefix + "_" + name
	}
	return name
}

func prefixed(prefix, name string) string {
	return CollectionName(prefix, name)
}

// reserveIDs allocates n consecutive IDs from the named counter document and
// returns the first one. Must run inside tx before any write of tx.
func reserveIDs(tx *firestore.Transaction, counterRef *firestore.DocumentRef, n int) (int64, error) {
	doc, err := tx.Get(counterRef)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			if err := tx.Set(counterRef, map[string]interface{}{"value": int64(n)}); err != nil {
				return 0, goerr.Wrap(err, "failed to initialize counter")
			}
			return 1, nil
		}
		return 0, goerr.Wrap(err, "failed to get counter")
	}

	currentValue, err := doc.DataAt("value")
	if err != nil {
		return 0, goerr.Wrap(err, "failed to get counter value")
	}

	val, ok := currentValue.(int64)
	if !ok {
		return 0, goerr.New("counter value is not of type int64", goerr.V("value", currentValue))
	}

	if err := tx.Update(counterRef, []firestore.Update{
		{Path: "value", Value: val + int64(n)},
	}); err != nil {
		return 0, goerr.Wrap(err, "failed to update counter")
	}
	return val + 1, nil
}
