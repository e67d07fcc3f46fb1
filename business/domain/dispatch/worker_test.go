package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/kitty-items/flow-event-publisher/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type CountingDecoder struct {
	FakeDecoder
	calls int
}

func (c *CountingDecoder) Decode(events []entities.RawEvent) ([]entities.DecodedEvent, error) {
	c.calls++
	return c.FakeDecoder.Decode(events)
}

func TestWorker_Fetch(t *testing.T) {
	fetcher := &FakeEventFetcher{perBlock: 1}
	decoder := &CountingDecoder{}
	w := NewWorker(minted, contractAddress, fetcher, decoder, time.Second)

	events, err := w.Fetch(context.Background(), entities.BlockRange{FromBlock: 5, ToBlock: 6})
	require.NoError(t, err)
	assert.Equal(t, []uint64{5, 6}, heights(events))
	assert.Equal(t, "A.f8d6e0586b0a20c7.Kibble.TokensMinted", w.QualifiedType())
	assert.Equal(t, []fetchCall{{eventType: w.QualifiedType(), blockRange: entities.BlockRange{FromBlock: 5, ToBlock: 6}}}, fetcher.Calls())
	assert.Equal(t, 1, decoder.calls)
}

func TestWorker_Fetch_emptySkipsDecoding(t *testing.T) {
	decoder := &CountingDecoder{}
	w := NewWorker(minted, contractAddress, &FakeEventFetcher{perBlock: 0}, decoder, time.Second)

	events, err := w.Fetch(context.Background(), entities.BlockRange{FromBlock: 5, ToBlock: 6})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, 0, decoder.calls)
}

func TestWorker_Fetch_errors(t *testing.T) {
	failing := &FakeEventFetcher{perBlock: 1, failing: map[string]bool{minted.QualifiedType(contractAddress): true}}
	w := NewWorker(minted, contractAddress, failing, &FakeDecoder{}, time.Second)
	_, err := w.Fetch(context.Background(), entities.BlockRange{FromBlock: 1, ToBlock: 1})
	require.ErrorIs(t, err, ErrMock)

	decoder := &FakeDecoder{failing: map[string]bool{minted.QualifiedType(contractAddress): true}}
	w = NewWorker(minted, contractAddress, &FakeEventFetcher{perBlock: 1}, decoder, time.Second)
	_, err = w.Fetch(context.Background(), entities.BlockRange{FromBlock: 1, ToBlock: 1})
	require.ErrorIs(t, err, ErrMock)
}

func TestWorker_Fetch_timeout(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	fetcher := &FakeEventFetcher{perBlock: 1, gates: map[string]chan struct{}{minted.QualifiedType(contractAddress): gate}}
	w := NewWorker(minted, contractAddress, fetcher, &FakeDecoder{}, 20*time.Millisecond)

	_, err := w.Fetch(context.Background(), entities.BlockRange{FromBlock: 1, ToBlock: 1})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
