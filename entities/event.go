package entities

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// WatchedEvent identifies one event of one contract. It is resolved into a
// qualified event type once at startup.
type WatchedEvent struct {
	ContractName string
	EventKey     string
}

// ParseWatchedEvent parses the `ContractName.EventKey` notation used in the configuration.
func ParseWatchedEvent(s string) (WatchedEvent, error) {
	contract, key, found := strings.Cut(strings.TrimSpace(s), ".")
	if !found || contract == "" || key == "" || strings.Contains(key, ".") {
		return WatchedEvent{}, errors.Wrapf(ErrInvalidWatchedEvent, "expected [ContractName.EventKey], got [%s]", s)
	}
	return WatchedEvent{ContractName: contract, EventKey: key}, nil
}

func ParseWatchedEvents(list []string) ([]WatchedEvent, error) {
	var watched []WatchedEvent
	seen := make(map[WatchedEvent]bool, len(list))
	for _, s := range list {
		we, err := ParseWatchedEvent(s)
		if err != nil {
			return nil, err
		}
		if seen[we] {
			return nil, errors.Wrapf(ErrInvalidWatchedEvent, "event [%s] configured twice", we)
		}
		seen[we] = true
		watched = append(watched, we)
	}
	if len(watched) == 0 {
		return nil, errors.Wrap(ErrInvalidWatchedEvent, "no events configured")
	}
	return watched, nil
}

// QualifiedType returns the event type as used by the access node, for example
// A.f8d6e0586b0a20c7.Kibble.TokensMinted.
func (w WatchedEvent) QualifiedType(contractAddress string) string {
	address := strings.TrimPrefix(strings.ToLower(contractAddress), "0x")
	return "A." + address + "." + w.ContractName + "." + w.EventKey
}

func (w WatchedEvent) String() string {
	return w.ContractName + "." + w.EventKey
}

// RawEvent is an event as returned by the ledger, payload still encoded.
type RawEvent struct {
	Type             string
	BlockHeight      uint64
	BlockID          string
	BlockTimestamp   time.Time
	TransactionID    string
	TransactionIndex int
	EventIndex       int
	Payload          []byte
}

type DecodedEvent struct {
	Type             string            `json:"type"`
	BlockHeight      uint64            `json:"blockHeight"`
	BlockID          string            `json:"blockId"`
	BlockTimestamp   time.Time         `json:"blockTimestamp"`
	TransactionID    string            `json:"transactionId"`
	TransactionIndex int               `json:"transactionIndex"`
	EventIndex       int               `json:"eventIndex"`
	Fields           map[string]string `json:"fields,omitempty"`
}

// DocumentID identifies the event on chain and stays stable when a range is processed again.
func (e DecodedEvent) DocumentID() string {
	return e.TransactionID + "-" + strconv.Itoa(e.EventIndex)
}
