package flow

import (
	"context"
	"testing"
	"time"

	"github.com/kitty-items/flow-event-publisher/entities"
	"github.com/onflow/flow-go-sdk"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type heightRange struct {
	start, end uint64
}

type FakeAccessAPI struct {
	height   uint64
	err      error
	eventsAt map[uint64]int
	calls    []heightRange
}

func (f *FakeAccessAPI) GetLatestBlockHeader(_ context.Context, _ bool) (*flow.BlockHeader, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &flow.BlockHeader{Height: f.height}, nil
}

// GetEventsForHeightRange answers in reverse height order to check that the client sorts.
func (f *FakeAccessAPI) GetEventsForHeightRange(_ context.Context, eventType string, startHeight, endHeight uint64) ([]flow.BlockEvents, error) {
	f.calls = append(f.calls, heightRange{start: startHeight, end: endHeight})
	if f.err != nil {
		return nil, f.err
	}
	var blocks []flow.BlockEvents
	for h := endHeight; ; h-- {
		count := f.eventsAt[h]
		block := flow.BlockEvents{Height: h, BlockTimestamp: time.Unix(int64(h), 0)}
		for i := 0; i < count; i++ {
			block.Events = append(block.Events, flow.Event{
				Type:          eventType,
				TransactionID: flow.HexToID("aa"),
				EventIndex:    i,
				Payload:       []byte(`{}`),
			})
		}
		blocks = append(blocks, block)
		if h == startHeight {
			break
		}
	}
	return blocks, nil
}

func TestClient_FetchLatestHeight(t *testing.T) {
	api := &FakeAccessAPI{height: 18206500}
	height, err := NewClient(api, 0, 0).FetchLatestHeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(18206500), height)

	api.err = errors.New("unavailable")
	_, err = NewClient(api, 0, 0).FetchLatestHeight(context.Background())
	require.Error(t, err)
}

func TestClient_FetchEvents_Chunks(t *testing.T) {
	api := &FakeAccessAPI{eventsAt: map[uint64]int{100: 1, 349: 2, 350: 1, 600: 1}}
	client := NewClient(api, 250, 0)

	events, err := client.FetchEvents(context.Background(), "A.f8d6e0586b0a20c7.Kibble.TokensMinted", 100, 600)
	require.NoError(t, err)

	assert.Equal(t, []heightRange{{100, 349}, {350, 599}, {600, 600}}, api.calls)

	var heights []uint64
	for _, ev := range events {
		heights = append(heights, ev.BlockHeight)
	}
	assert.Equal(t, []uint64{100, 349, 349, 350, 600}, heights)
	assert.Equal(t, 0, events[1].EventIndex)
	assert.Equal(t, 1, events[2].EventIndex)
	assert.Equal(t, time.Unix(349, 0), events[1].BlockTimestamp)
	assert.Equal(t, "A.f8d6e0586b0a20c7.Kibble.TokensMinted", events[0].Type)
}

func TestClient_FetchEvents_SingleBlock(t *testing.T) {
	api := &FakeAccessAPI{eventsAt: map[uint64]int{5: 1}}
	events, err := NewClient(api, 250, 0).FetchEvents(context.Background(), "A.01.Kibble.TokensBurned", 5, 5)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, []heightRange{{5, 5}}, api.calls)
}

func TestClient_FetchEvents_Errors(t *testing.T) {
	api := &FakeAccessAPI{}
	_, err := NewClient(api, 250, 0).FetchEvents(context.Background(), "A.01.Kibble.TokensBurned", 10, 5)
	require.ErrorIs(t, err, entities.ErrInvalidRange)
	assert.Empty(t, api.calls)

	api.err = errors.New("unavailable")
	_, err = NewClient(api, 250, 0).FetchEvents(context.Background(), "A.01.Kibble.TokensBurned", 1, 5)
	require.Error(t, err)
}

func TestClient_FetchEvents_RateLimiterHonorsContext(t *testing.T) {
	api := &FakeAccessAPI{}
	client := NewClient(api, 1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.FetchEvents(ctx, "A.01.Kibble.TokensBurned", 1, 3)
	require.Error(t, err)
	assert.Empty(t, api.calls)
}
