package flow

import (
	"github.com/kitty-items/flow-event-publisher/entities"
	"github.com/onflow/cadence"
	"github.com/onflow/cadence/encoding/ccf"
	jsoncdc "github.com/onflow/cadence/encoding/json"
	"github.com/pkg/errors"
)

// Decoder turns CCF or JSON-CDC event payloads into flat field maps.
type Decoder struct{}

func NewDecoder() *Decoder {
	return &Decoder{}
}

func (d *Decoder) Decode(events []entities.RawEvent) ([]entities.DecodedEvent, error) {
	decoded := make([]entities.DecodedEvent, 0, len(events))
	for _, ev := range events {
		fields, err := decodeFields(ev.Payload)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding event [%s] of transaction [%s]", ev.Type, ev.TransactionID)
		}
		decoded = append(decoded, entities.DecodedEvent{
			Type:             ev.Type,
			BlockHeight:      ev.BlockHeight,
			BlockID:          ev.BlockID,
			BlockTimestamp:   ev.BlockTimestamp,
			TransactionID:    ev.TransactionID,
			TransactionIndex: ev.TransactionIndex,
			EventIndex:       ev.EventIndex,
			Fields:           fields,
		})
	}
	return decoded, nil
}

func decodeFields(payload []byte) (map[string]string, error) {
	if len(payload) == 0 {
		return nil, errors.New("empty payload")
	}
	value, err := decodeValue(payload)
	if err != nil {
		return nil, err
	}
	event, ok := value.(cadence.Event)
	if !ok {
		return nil, errors.Errorf("unexpected value type [%T]", value)
	}

	fields := make(map[string]string)
	for name, field := range cadence.FieldsMappedByName(event) {
		if field == nil {
			continue
		}
		fields[name] = field.String()
	}
	return fields, nil
}

func decodeValue(payload []byte) (cadence.Value, error) {
	if ccf.HasMsgPrefix(payload) {
		value, err := ccf.Decode(nil, payload)
		if err != nil {
			return nil, errors.Wrap(err, "decoding ccf payload")
		}
		return value, nil
	}
	value, err := jsoncdc.Decode(nil, payload)
	if err != nil {
		return nil, errors.Wrap(err, "decoding json-cdc payload")
	}
	return value, nil
}
