package kafka

import (
	"context"
	"encoding/binary"
	"encoding/json"

	"github.com/kitty-items/flow-event-publisher/entities"
	"github.com/pkg/errors"
	"github.com/twmb/franz-go/pkg/kgo"
)

type KafkaClient interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type Client struct {
	kcl KafkaClient
}

func NewClient(kafkaClient KafkaClient) *Client {
	return &Client{
		kcl: kafkaClient,
	}
}

// PublishEvent blocks until the broker acknowledged the record.
func (kc *Client) PublishEvent(ctx context.Context, event entities.DecodedEvent) error {
	return kc.PublishEvents(ctx, []entities.DecodedEvent{event})
}

func (kc *Client) PublishEvents(ctx context.Context, events []entities.DecodedEvent) error {
	if len(events) == 0 {
		return nil
	}

	records := make([]*kgo.Record, 0, len(events))
	for _, event := range events {
		record, err := createEventRecord(event)
		if err != nil {
			return errors.Wrapf(err, "creating kafka record for event [%s]", event.DocumentID())
		}
		records = append(records, record)
	}

	results := kc.kcl.ProduceSync(ctx, records...)
	if err := results.FirstErr(); err != nil {
		return errors.Wrap(err, "producing event records")
	}
	return nil
}

func createEventRecord(event entities.DecodedEvent) (*kgo.Record, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling event to json")
	}
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, event.BlockHeight)

	return &kgo.Record{
		Key:   key,
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "type", Value: []byte(event.Type)},
		},
	}, nil
}
