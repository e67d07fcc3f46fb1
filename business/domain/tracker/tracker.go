package tracker

import (
	"context"
	"time"

	"github.com/kitty-items/flow-event-publisher/entities"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type HeightFetcher interface {
	FetchLatestHeight(ctx context.Context) (uint64, error)
}

type Metrics interface {
	SetSourceHeight(height uint64)
	IncSourceFailures()
	SetCursorHeight(height uint64)
	IncEmittedRanges()
}

// RangeFunc receives every emitted range. An error means the range was not
// taken and will be emitted again on the next tick.
type RangeFunc func(ctx context.Context, blockRange entities.BlockRange) error

// Tracker owns the cursor over the chain. The cursor is only read and written
// from the tick loop.
type Tracker struct {
	fetcher       HeightFetcher
	stepSize      uint64
	tickInterval  time.Duration
	fetchTimeout  time.Duration
	currentHeight uint64
	metrics       Metrics
	logger        *zap.SugaredLogger
}

func NewTracker(fetcher HeightFetcher, startHeight, stepSize uint64, tickInterval, fetchTimeout time.Duration,
	m Metrics, logger *zap.SugaredLogger) (*Tracker, error) {

	if stepSize == 0 {
		return nil, errors.New("step size must be greater than zero")
	}
	if tickInterval <= 0 {
		return nil, errors.Errorf("invalid tick interval [%s]", tickInterval)
	}

	return &Tracker{
		fetcher:       fetcher,
		stepSize:      stepSize,
		tickInterval:  tickInterval,
		fetchTimeout:  fetchTimeout,
		currentHeight: startHeight,
		metrics:       m,
		logger:        logger,
	}, nil
}

// Start ticks until the context is cancelled.
func (t *Tracker) Start(ctx context.Context, onRange RangeFunc) error {
	t.logger.Infow("Starting block tracker", "height", t.currentHeight, "stepSize", t.stepSize, "interval", t.tickInterval)
	t.metrics.SetCursorHeight(t.currentHeight)

	ticker := time.NewTicker(t.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Infow("Stopping block tracker", "height", t.currentHeight)
			return nil
		case <-ticker.C:
			t.tick(ctx, onRange)
		}
	}
}

// tick emits at most one range and reports whether it did.
func (t *Tracker) tick(ctx context.Context, onRange RangeFunc) bool {
	tip, err := t.latestHeight(ctx)
	if err != nil {
		t.metrics.IncSourceFailures()
		t.logger.Warnw("error fetching latest height; skipping tick", "height", t.currentHeight, "error", err)
		return false
	}
	t.metrics.SetSourceHeight(tip)

	blockRange, ok := nextRange(t.currentHeight, tip, t.stepSize)
	if !ok {
		return false
	}

	if err := onRange(ctx, blockRange); err != nil {
		t.logger.Warnw("range not emitted; retrying on next tick", "range", blockRange.String(), "error", err)
		return false
	}

	t.currentHeight = blockRange.ToBlock
	t.metrics.IncEmittedRanges()
	t.metrics.SetCursorHeight(t.currentHeight)
	return true
}

func (t *Tracker) latestHeight(ctx context.Context) (uint64, error) {
	if t.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.fetchTimeout)
		defer cancel()
	}

	tip, err := t.fetcher.FetchLatestHeight(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "fetching latest height")
	}
	return tip, nil
}

func nextRange(current, tip, stepSize uint64) (entities.BlockRange, bool) {
	if tip <= current {
		return entities.BlockRange{}, false
	}
	to := tip // don't exceed latest height
	if tip-current > stepSize {
		to = current + stepSize
	}
	return entities.BlockRange{FromBlock: current, ToBlock: to}, true
}
