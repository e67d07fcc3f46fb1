package flow

import (
	"context"
	"sort"

	"github.com/kitty-items/flow-event-publisher/entities"
	"github.com/onflow/flow-go-sdk"
	flowgrpc "github.com/onflow/flow-go-sdk/access/grpc"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// DefaultMaxHeightRange is the largest height range access nodes accept for event queries.
const DefaultMaxHeightRange = 250

type AccessAPI interface {
	GetLatestBlockHeader(ctx context.Context, isSealed bool) (*flow.BlockHeader, error)
	GetEventsForHeightRange(ctx context.Context, eventType string, startHeight, endHeight uint64) ([]flow.BlockEvents, error)
}

type Client struct {
	api            AccessAPI
	maxHeightRange uint64
	limiter        *rate.Limiter
}

// NewAccessClient dials the access node. Events are requested as JSON-CDC,
// the decoder also understands CCF payloads.
func NewAccessClient(host string) (*flowgrpc.Client, error) {
	cl, err := flowgrpc.NewClient(host,
		flowgrpc.WithGRPCDialOptions(grpc.WithTransportCredentials(insecure.NewCredentials())),
		flowgrpc.WithEventEncoding(flow.EventEncodingVersionJSONCDC),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "creating access api connection to [%s]", host)
	}
	return cl, nil
}

// NewClient wraps the access api. Requests are limited to requestsPerSecond,
// zero disables limiting.
func NewClient(api AccessAPI, maxHeightRange uint64, requestsPerSecond float64) *Client {
	if maxHeightRange == 0 {
		maxHeightRange = DefaultMaxHeightRange
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), max(1, int(requestsPerSecond)))
	}
	return &Client{
		api:            api,
		maxHeightRange: maxHeightRange,
		limiter:        limiter,
	}
}

func (c *Client) FetchLatestHeight(ctx context.Context) (uint64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, errors.Wrap(err, "waiting for rate limiter")
	}
	header, err := c.api.GetLatestBlockHeader(ctx, true)
	if err != nil {
		return 0, errors.Wrap(err, "calling GetLatestBlockHeader api")
	}
	return header.Height, nil
}

// FetchEvents returns the events of the inclusive range in chain order. Ranges
// larger than the access node limit are queried in chunks.
func (c *Client) FetchEvents(ctx context.Context, qualifiedType string, fromBlock, toBlock uint64) ([]entities.RawEvent, error) {
	if err := (entities.BlockRange{FromBlock: fromBlock, ToBlock: toBlock}).Validate(); err != nil {
		return nil, err
	}

	var events []entities.RawEvent
	for start := fromBlock; start <= toBlock; {
		end := toBlock
		if toBlock-start >= c.maxHeightRange {
			end = start + c.maxHeightRange - 1
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "waiting for rate limiter")
		}
		blocks, err := c.api.GetEventsForHeightRange(ctx, qualifiedType, start, end)
		if err != nil {
			return nil, errors.Wrapf(err, "calling GetEventsForHeightRange api for [%d-%d]", start, end)
		}
		events = append(events, convertBlockEvents(blocks)...)

		if end == toBlock {
			break
		}
		start = end + 1
	}
	return events, nil
}

func convertBlockEvents(blocks []flow.BlockEvents) []entities.RawEvent {
	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].Height < blocks[j].Height })

	var events []entities.RawEvent
	for _, block := range blocks {
		for _, ev := range block.Events {
			events = append(events, entities.RawEvent{
				Type:             ev.Type,
				BlockHeight:      block.Height,
				BlockID:          block.BlockID.String(),
				BlockTimestamp:   block.BlockTimestamp,
				TransactionID:    ev.TransactionID.String(),
				TransactionIndex: ev.TransactionIndex,
				EventIndex:       ev.EventIndex,
				Payload:          ev.Payload,
			})
		}
	}
	return events
}
