package dispatch

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kitty-items/flow-event-publisher/entities"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotStarted     = errors.New("dispatcher not started")
	ErrAlreadyStarted = errors.New("dispatcher already started")
)

type Metrics interface {
	AddFetchedEvents(eventType string, count int)
	IncFetchFailures(eventType string)
	IncHandlerFailures(eventType string)
	ObserveFetchDuration(eventType string, seconds float64)
	IncCompletedRanges()
}

type Config struct {
	ContractAddress   string
	// ContractAddresses overrides ContractAddress per contract name.
	ContractAddresses map[string]string
	Watched           []entities.WatchedEvent
	FetchTimeout      time.Duration
}

func (c Config) addressFor(contractName string) string {
	if address, ok := c.ContractAddresses[contractName]; ok {
		return address
	}
	return c.ContractAddress
}

// Dispatched tracks one range until every worker's result has been delivered.
type Dispatched struct {
	blockRange entities.BlockRange
	pending    atomic.Int32
	done       chan struct{}
}

func newDispatched(blockRange entities.BlockRange, workers int) *Dispatched {
	d := &Dispatched{blockRange: blockRange, done: make(chan struct{})}
	d.pending.Store(int32(workers))
	return d
}

func (d *Dispatched) Range() entities.BlockRange {
	return d.blockRange
}

// Wait blocks until all workers finished the range or the context is done.
func (d *Dispatched) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// complete returns true for the last worker reporting the range.
func (d *Dispatched) complete() bool {
	if d.pending.Add(-1) == 0 {
		close(d.done)
		return true
	}
	return false
}

type Dispatcher struct {
	workers     []*Worker
	handlers    []Handler
	onRangeDone func(ctx context.Context, blockRange entities.BlockRange)
	launched    atomic.Bool
	started     atomic.Bool
	ready       chan struct{}
	metrics     Metrics
	logger      *zap.SugaredLogger
}

// NewDispatcher creates one worker per watched event. Every watched event
// needs a registered handler.
func NewDispatcher(cfg Config, registry *Registry, fetcher EventFetcher, decoder Decoder,
	m Metrics, logger *zap.SugaredLogger) (*Dispatcher, error) {

	if len(cfg.Watched) == 0 {
		return nil, errors.Wrap(entities.ErrInvalidWatchedEvent, "no watched events")
	}
	if err := registry.Validate(cfg.Watched); err != nil {
		return nil, errors.Wrap(err, "validating handlers")
	}

	d := Dispatcher{
		ready:   make(chan struct{}),
		metrics: m,
		logger:  logger,
	}
	for _, we := range cfg.Watched {
		handler, _ := registry.handler(we)
		d.workers = append(d.workers, NewWorker(we, cfg.addressFor(we.ContractName), fetcher, decoder, cfg.FetchTimeout))
		d.handlers = append(d.handlers, handler)
	}
	logger.Infow("Created event workers", "count", len(d.workers))
	return &d, nil
}

// OnRangeDone registers a callback that is called once a range has been
// delivered by all workers. Must be set before the first Dispatch.
func (d *Dispatcher) OnRangeDone(fn func(ctx context.Context, blockRange entities.BlockRange)) {
	d.onRangeDone = fn
}

// Start runs the workers and the delivery loops until the context is
// cancelled. Later calls return ErrAlreadyStarted.
func (d *Dispatcher) Start(ctx context.Context) error {
	if !d.launched.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	group, ctx := errgroup.WithContext(ctx)
	for i, w := range d.workers {
		group.Go(func() error {
			return w.Run(ctx)
		})
		group.Go(func() error {
			return d.deliver(ctx, w, d.handlers[i])
		})
	}
	d.started.Store(true)
	close(d.ready)
	for _, w := range d.workers {
		d.logger.Infow("Started event worker", "event", w.QualifiedType())
	}

	err := group.Wait()
	d.started.Store(false)
	return err
}

// Ready is closed once the workers accept ranges.
func (d *Dispatcher) Ready() <-chan struct{} {
	return d.ready
}

// Dispatch hands the range to every worker. It returns once the range is
// queued everywhere, which blocks while a worker still has a range queued.
func (d *Dispatcher) Dispatch(ctx context.Context, blockRange entities.BlockRange) (*Dispatched, error) {
	if err := blockRange.Validate(); err != nil {
		return nil, err
	}
	if !d.started.Load() {
		return nil, ErrNotStarted
	}

	dispatched := newDispatched(blockRange, len(d.workers))
	for _, w := range d.workers {
		if err := w.submit(ctx, job{blockRange: blockRange, dispatched: dispatched}); err != nil {
			return nil, err
		}
	}
	return dispatched, nil
}

func (d *Dispatcher) deliver(ctx context.Context, w *Worker, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case res := <-w.results:
			d.handleResult(ctx, w, handler, res)
		}
	}
}

func (d *Dispatcher) handleResult(ctx context.Context, w *Worker, handler Handler, res result) {
	eventType := w.QualifiedType()
	d.metrics.ObserveFetchDuration(eventType, res.duration.Seconds())

	if res.err != nil {
		// the range counts as empty for this worker
		d.metrics.IncFetchFailures(eventType)
		d.logger.Errorw("error fetching events", "event", eventType, "range", res.job.blockRange.String(), "error", res.err)
	} else if len(res.events) > 0 {
		d.metrics.AddFetchedEvents(eventType, len(res.events))
		d.logger.Debugw("Delivering events", "event", eventType, "range", res.job.blockRange.String(), "count", len(res.events))
		for _, event := range res.events {
			if err := handler(ctx, event); err != nil {
				d.metrics.IncHandlerFailures(eventType)
				d.logger.Errorw("error handling event", "event", eventType, "height", event.BlockHeight,
					"transaction", event.TransactionID, "error", err)
			}
		}
	}

	if res.job.dispatched.complete() {
		d.metrics.IncCompletedRanges()
		if d.onRangeDone != nil {
			d.onRangeDone(ctx, res.job.blockRange)
		}
	}
}
