// Package store implements the persistence backends behind the event index.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/goran-ethernal/ChainReplay/pkg/events"
)

// encodeEvent serialises an event for backends that store whole documents.
func encodeEvent(ev *events.IndexedEvent) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event %s: %w", ev.ID, err)
	}
	return data, nil
}

// decodeEvent keeps numbers as json.Number so large integers in params survive a round trip.
func decodeEvent(data []byte) (*events.IndexedEvent, error) {
	var ev events.IndexedEvent
	if err := decodeJSON(data, &ev); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	return &ev, nil
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
