package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/kitty-items/flow-event-publisher/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type FakePublisher struct {
	err       error
	published []entities.DecodedEvent
}

func (f *FakePublisher) PublishEvent(_ context.Context, event entities.DecodedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, event)
	return nil
}

var watched = []entities.WatchedEvent{
	{ContractName: "Kibble", EventKey: "TokensMinted"},
	{ContractName: "Kibble", EventKey: "TokensBurned"},
}

func TestHandler(t *testing.T) {
	publisher := &FakePublisher{}
	event := entities.DecodedEvent{TransactionID: "abc", EventIndex: 1}

	require.NoError(t, Handler(publisher)(context.Background(), event))
	assert.Equal(t, []entities.DecodedEvent{event}, publisher.published)

	publisher.err = errors.New("broker down")
	err := Handler(publisher)(context.Background(), event)
	require.ErrorIs(t, err, publisher.err)
	assert.Contains(t, err.Error(), "abc-1")
}

func TestLogHandler(t *testing.T) {
	err := LogHandler(zap.NewNop().Sugar())(context.Background(), entities.DecodedEvent{})
	require.NoError(t, err)
}

func TestNewRegistry(t *testing.T) {
	registry, err := NewRegistry(watched, LogHandler(zap.NewNop().Sugar()))
	require.NoError(t, err)
	require.NoError(t, registry.Validate(watched))

	_, err = NewRegistry(watched, nil)
	require.ErrorIs(t, err, entities.ErrMissingHandler)

	_, err = NewRegistry(append(watched, watched[0]), LogHandler(zap.NewNop().Sugar()))
	require.ErrorIs(t, err, entities.ErrDuplicateHandler)
}
