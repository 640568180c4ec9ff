package outbox

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeHasData(t *testing.T) {
	assert.False(t, PayloadEnvelope{}.HasData())
	assert.False(t, PayloadEnvelope{Data: json.RawMessage(" null ")}.HasData())
	assert.True(t, PayloadEnvelope{Data: json.RawMessage(`{"sellerId":"x"}`)}.HasData())
}

func TestEnvelopeParseEventID(t *testing.T) {
	id := uuid.New()
	got, err := PayloadEnvelope{EventID: id.String()}.ParseEventID()
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = PayloadEnvelope{EventID: "evt-1"}.ParseEventID()
	assert.Error(t, err)
}
