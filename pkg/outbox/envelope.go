package outbox

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnvelopeSource marks envelopes written by this service's outbox.
const EnvelopeSource = "settlement-ledger"

// ActorRef identifies who triggered an event. Upstream order events carry the
// buyer; ledger events queued by scheduled work leave it nil.
type ActorRef struct {
	UserID  uuid.UUID  `json:"userId"`
	StoreID *uuid.UUID `json:"storeId,omitempty"`
	Role    string     `json:"role,omitempty"`
}

// PayloadEnvelope is the JSON stored in outbox_events.payload and published
// as the Pub/Sub message body. Data holds the versioned event payload.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Source     string          `json:"source,omitempty"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// HasData reports whether the envelope carries a non-null payload.
func (e PayloadEnvelope) HasData() bool {
	trimmed := bytes.TrimSpace(e.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// ParseEventID returns EventID as a uuid. Consumers key deduplication on it.
func (e PayloadEnvelope) ParseEventID() (uuid.UUID, error) {
	id, err := uuid.Parse(e.EventID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid event id %q: %w", e.EventID, err)
	}
	return id, nil
}
