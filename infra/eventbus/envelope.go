package eventbus

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/amirasaad/fxengine/pkg/eventbus"
)

// envelope is the wire form shared by the Redis and Kafka transports.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func encodeEnvelope(event eventbus.Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", event.Type(), err)
	}
	return json.Marshal(envelope{Type: event.Type(), Payload: data})
}

// decodeEnvelope rebuilds the typed event using factories.
func decodeEnvelope(raw []byte, factories map[string]func() eventbus.Event) (eventbus.Event, string, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, "", fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Type == "" {
		return nil, "", fmt.Errorf("envelope has no event type")
	}
	constructor, ok := factories[env.Type]
	if !ok {
		return nil, env.Type, fmt.Errorf("unknown event type %q", env.Type)
	}
	evt := constructor()
	if err := json.Unmarshal(env.Payload, evt); err != nil {
		return nil, env.Type, fmt.Errorf("unmarshal %s payload: %w", env.Type, err)
	}
	return evt, env.Type, nil
}

// nameFor builds "prefix:rate:quote.refreshed" style keys from an event type.
func nameFor(prefix string, eventType eventbus.EventType) string {
	parts := strings.SplitN(eventType.String(), ".", 2)
	if len(parts) == 2 {
		return fmt.Sprintf("%s:%s:%s", prefix, strings.ToLower(parts[0]), strings.ToLower(parts[1]))
	}
	return fmt.Sprintf("%s:%s", prefix, strings.ToLower(eventType.String()))
}
