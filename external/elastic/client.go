package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/kitty-items/flow-event-publisher/entities"
	"github.com/pkg/errors"
)

type Client struct {
	index    string
	esClient *elasticsearch.Client
}

func NewClient(address, index string, timeout time.Duration) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{address},
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: timeout,
		},
	}

	esClient, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "creating elasticsearch client")
	}

	return &Client{
		index:    index,
		esClient: esClient,
	}, nil
}

// PublishEvent indexes the event under its document id, so replaying a range
// overwrites instead of duplicating.
func (es *Client) PublishEvent(ctx context.Context, event entities.DecodedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "serializing event")
	}

	res, err := es.esClient.Index(es.index, bytes.NewReader(data),
		es.esClient.Index.WithContext(ctx),
		es.esClient.Index.WithDocumentID(event.DocumentID()),
	)
	if err != nil {
		return errors.Wrap(err, "index request failed")
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.Errorf("index request error: %s", res.String())
	}
	return nil
}
