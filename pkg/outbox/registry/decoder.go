package registry

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
)

// DecodeFunc turns an envelope's data into a typed payload.
type DecodeFunc func(payload json.RawMessage) (any, error)

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry maps (event type, envelope version) to a payload decoder.
// Consumers reject versions they have not registered.
type DecoderRegistry struct {
	mu       sync.RWMutex
	decoders map[decoderKey]DecodeFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: make(map[decoderKey]DecodeFunc)}
}

// Register installs decode for eventType at version, replacing any previous one.
func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decode DecodeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[decoderKey{eventType: eventType, version: version}] = decode
}

// RegisterJSON installs a decoder that unmarshals the payload into a T value.
func RegisterJSON[T any](r *DecoderRegistry, eventType enums.OutboxEventType, version int) {
	r.Register(eventType, version, func(payload json.RawMessage) (any, error) {
		var out T
		if err := json.Unmarshal(payload, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error) {
	r.mu.RLock()
	decode, ok := r.decoders[decoderKey{eventType: eventType, version: version}]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("decoder not registered for %s@v%d", eventType, version)
	}
	return decode(payload)
}

// Versions lists the registered versions for eventType in ascending order.
func (r *DecoderRegistry) Versions(eventType enums.OutboxEventType) []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var versions []int
	for key := range r.decoders {
		if key.eventType == eventType {
			versions = append(versions, key.version)
		}
	}
	sort.Ints(versions)
	return versions
}
