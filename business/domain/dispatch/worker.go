package dispatch

import (
	"context"
	"time"

	"github.com/kitty-items/flow-event-publisher/entities"
	"github.com/pkg/errors"
)

type EventFetcher interface {
	FetchEvents(ctx context.Context, qualifiedType string, fromBlock, toBlock uint64) ([]entities.RawEvent, error)
}

type Decoder interface {
	Decode(events []entities.RawEvent) ([]entities.DecodedEvent, error)
}

type job struct {
	blockRange entities.BlockRange
	dispatched *Dispatched
}

type result struct {
	job      job
	events   []entities.DecodedEvent
	err      error
	duration time.Duration
}

// Worker fetches the events of one qualified event type. Requests are served
// one at a time, so results leave the worker in the order the ranges arrived.
type Worker struct {
	watched       entities.WatchedEvent
	qualifiedType string
	fetcher       EventFetcher
	decoder       Decoder
	fetchTimeout  time.Duration
	requests      chan job
	results       chan result
}

func NewWorker(watched entities.WatchedEvent, contractAddress string, fetcher EventFetcher, decoder Decoder, fetchTimeout time.Duration) *Worker {
	return &Worker{
		watched:       watched,
		qualifiedType: watched.QualifiedType(contractAddress),
		fetcher:       fetcher,
		decoder:       decoder,
		fetchTimeout:  fetchTimeout,
		requests:      make(chan job, 1), // one queued range on top of the one in progress
		results:       make(chan result, 1),
	}
}

func (w *Worker) QualifiedType() string {
	return w.qualifiedType
}

// Fetch queries the ledger for the range and decodes the result.
func (w *Worker) Fetch(ctx context.Context, blockRange entities.BlockRange) ([]entities.DecodedEvent, error) {
	if w.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.fetchTimeout)
		defer cancel()
	}

	raw, err := w.fetcher.FetchEvents(ctx, w.qualifiedType, blockRange.FromBlock, blockRange.ToBlock)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching events for range %s", blockRange)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	decoded, err := w.decoder.Decode(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding [%d] events for range %s", len(raw), blockRange)
	}
	return decoded, nil
}

// Run serves queued ranges until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case j := <-w.requests:
			start := time.Now()
			events, err := w.Fetch(ctx, j.blockRange)
			res := result{job: j, events: events, err: err, duration: time.Since(start)}
			select {
			case w.results <- res:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// submit blocks while the worker queue is full.
func (w *Worker) submit(ctx context.Context, j job) error {
	select {
	case w.requests <- j:
		return nil
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "submitting range %s to [%s]", j.blockRange, w.qualifiedType)
	}
}
