package dispatch

import (
	"context"

	"github.com/kitty-items/flow-event-publisher/entities"
	"github.com/pkg/errors"
)

// Handler is invoked once per decoded event, in chain order for its event type.
type Handler func(ctx context.Context, event entities.DecodedEvent) error

// Registry maps every watched event to exactly one handler. It is filled
// during setup and read-only once the dispatcher is created.
type Registry struct {
	handlers map[entities.WatchedEvent]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[entities.WatchedEvent]Handler)}
}

func (r *Registry) Register(watched entities.WatchedEvent, handler Handler) error {
	if handler == nil {
		return errors.Wrapf(entities.ErrMissingHandler, "nil handler for [%s]", watched)
	}
	if _, ok := r.handlers[watched]; ok {
		return errors.Wrapf(entities.ErrDuplicateHandler, "event [%s]", watched)
	}
	r.handlers[watched] = handler
	return nil
}

// Validate checks that the registered handlers match the watched events exactly.
func (r *Registry) Validate(watched []entities.WatchedEvent) error {
	expected := make(map[entities.WatchedEvent]bool, len(watched))
	for _, we := range watched {
		if _, ok := r.handlers[we]; !ok {
			return errors.Wrapf(entities.ErrMissingHandler, "event [%s]", we)
		}
		expected[we] = true
	}
	for we := range r.handlers {
		if !expected[we] {
			return errors.Wrapf(entities.ErrUnwatchedHandler, "event [%s]", we)
		}
	}
	return nil
}

func (r *Registry) handler(watched entities.WatchedEvent) (Handler, bool) {
	h, ok := r.handlers[watched]
	return h, ok
}
