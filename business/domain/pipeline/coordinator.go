package pipeline

import (
	"context"
	"sync"

	"github.com/kitty-items/flow-event-publisher/business/domain/dispatch"
	"github.com/kitty-items/flow-event-publisher/business/domain/tracker"
	"github.com/kitty-items/flow-event-publisher/entities"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type RangeTracker interface {
	Start(ctx context.Context, onRange tracker.RangeFunc) error
}

type RangeDispatcher interface {
	Start(ctx context.Context) error
	Ready() <-chan struct{}
	Dispatch(ctx context.Context, blockRange entities.BlockRange) (*dispatch.Dispatched, error)
	OnRangeDone(fn func(ctx context.Context, blockRange entities.BlockRange))
}

type Checkpointer interface {
	GetLastProcessedHeight() (uint64, error)
	SetLastProcessedHeight(height uint64) error
}

type Metrics interface {
	SetProcessedHeight(height uint64)
}

// Coordinator connects the tracker to the dispatcher and records the height
// up to which all workers have delivered their events.
type Coordinator struct {
	tracker     RangeTracker
	dispatcher  RangeDispatcher
	checkpoints Checkpointer // optional
	metrics     Metrics
	logger      *zap.SugaredLogger

	mutex           sync.Mutex
	processedHeight uint64
}

func NewCoordinator(rangeTracker RangeTracker, dispatcher RangeDispatcher, checkpoints Checkpointer,
	startHeight uint64, m Metrics, logger *zap.SugaredLogger) *Coordinator {
	return &Coordinator{
		tracker:         rangeTracker,
		dispatcher:      dispatcher,
		checkpoints:     checkpoints,
		metrics:         m,
		logger:          logger,
		processedHeight: startHeight,
	}
}

// Run starts the workers, waits until they accept ranges and then starts the
// tracker. It returns after the context is cancelled and everything stopped.
func (c *Coordinator) Run(ctx context.Context) error {
	c.dispatcher.OnRangeDone(c.rangeDone)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return errors.Wrap(c.dispatcher.Start(ctx), "running dispatcher")
	})

	select {
	case <-c.dispatcher.Ready():
	case <-ctx.Done():
		return group.Wait()
	}

	group.Go(func() error {
		return errors.Wrap(c.tracker.Start(ctx, c.dispatch), "running tracker")
	})

	c.logger.Infow("Pipeline started")
	return group.Wait()
}

func (c *Coordinator) LastProcessedHeight() uint64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.processedHeight
}

func (c *Coordinator) dispatch(ctx context.Context, blockRange entities.BlockRange) error {
	if _, err := c.dispatcher.Dispatch(ctx, blockRange); err != nil {
		return errors.Wrapf(err, "dispatching range %s", blockRange)
	}
	c.logger.Infow("Dispatched block range", "from", blockRange.FromBlock, "to", blockRange.ToBlock)
	return nil
}

func (c *Coordinator) rangeDone(_ context.Context, blockRange entities.BlockRange) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if blockRange.ToBlock <= c.processedHeight {
		return
	}
	c.processedHeight = blockRange.ToBlock
	c.metrics.SetProcessedHeight(blockRange.ToBlock)

	if c.checkpoints == nil {
		return
	}
	if err := c.checkpoints.SetLastProcessedHeight(blockRange.ToBlock); err != nil {
		// the next completed range stores a newer height
		c.logger.Errorw("error storing last processed height", "height", blockRange.ToBlock, "error", err)
	}
}

// ResolveStartHeight returns the height the tracker starts from. A forced
// start height wins over the stored one, the configured height is used when
// nothing was stored yet.
func ResolveStartHeight(checkpoints Checkpointer, startHeight uint64, force bool, logger *zap.SugaredLogger) (uint64, error) {
	if checkpoints == nil {
		logger.Infow("No checkpoint store configured", "startHeight", startHeight)
		return startHeight, nil
	}

	stored, err := checkpoints.GetLastProcessedHeight()
	if force || errors.Is(err, entities.ErrStoreEntityNotFound) {
		logger.Infow("Setting last processed height", "height", startHeight)
		if err := checkpoints.SetLastProcessedHeight(startHeight); err != nil {
			return 0, errors.Wrap(err, "setting last processed height")
		}
		return startHeight, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "getting last processed height")
	}

	logger.Infow("Resuming from stored height", "height", stored)
	return stored, nil
}
