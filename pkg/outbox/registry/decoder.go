package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/diegocastellanos/booklend-backend/pkg/enums"
)

type decoderFunc func(payload json.RawMessage) (interface{}, error)

// DecoderRegistry maps (event type, payload version) pairs to decoders.
// Consumers register decoders for the versions they understand; an
// unknown pair is an error rather than a silent passthrough.
type DecoderRegistry struct {
	mtx      sync.RWMutex
	decoders map[decoderKey]decoderFunc
}

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: make(map[decoderKey]decoderFunc)}
}

func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder decoderFunc) {
	r.mtx.Lock()
	r.decoders[decoderKey{eventType: eventType, version: version}] = decoder
	r.mtx.Unlock()
}

func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (interface{}, error) {
	r.mtx.RLock()
	decoder, ok := r.decoders[decoderKey{eventType: eventType, version: version}]
	r.mtx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("decoder not registered for %s@v%d", eventType, version)
	}
	return decoder(payload)
}
