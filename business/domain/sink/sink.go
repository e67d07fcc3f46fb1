// Package sink turns event publishers into dispatch handlers.
package sink

import (
	"context"

	"github.com/kitty-items/flow-event-publisher/business/domain/dispatch"
	"github.com/kitty-items/flow-event-publisher/entities"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	KindLog     = "log"
	KindKafka   = "kafka"
	KindElastic = "elastic"
)

type Publisher interface {
	PublishEvent(ctx context.Context, event entities.DecodedEvent) error
}

func Handler(publisher Publisher) dispatch.Handler {
	return func(ctx context.Context, event entities.DecodedEvent) error {
		if err := publisher.PublishEvent(ctx, event); err != nil {
			return errors.Wrapf(err, "publishing event [%s]", event.DocumentID())
		}
		return nil
	}
}

// LogHandler only logs the event, useful for dry runs.
func LogHandler(logger *zap.SugaredLogger) dispatch.Handler {
	return func(_ context.Context, event entities.DecodedEvent) error {
		logger.Infow("Event received.",
			"type", event.Type,
			"height", event.BlockHeight,
			"transaction", event.TransactionID,
			"index", event.EventIndex,
			"fields", event.Fields)
		return nil
	}
}

// NewRegistry registers the same handler for every watched event.
func NewRegistry(watched []entities.WatchedEvent, handler dispatch.Handler) (*dispatch.Registry, error) {
	registry := dispatch.NewRegistry()
	for _, we := range watched {
		if err := registry.Register(we, handler); err != nil {
			return nil, errors.Wrapf(err, "registering handler for [%s]", we)
		}
	}
	return registry, nil
}
