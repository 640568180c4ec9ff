package registry

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
	"github.com/angelmondragon/packfinderz-settlement/pkg/outbox/payloads"
)

func TestRegisterJSONDecodesTypedPayload(t *testing.T) {
	reg := NewDecoderRegistry()
	RegisterJSON[payloads.OrderPaidEvent](reg, enums.EventOrderPaid, 1)

	input := json.RawMessage(`{"orderNumber":77,"allocations":[{"sellerId":"22222222-2222-2222-2222-222222222222","amount":"12.50"}]}`)
	output, err := reg.Decode(enums.EventOrderPaid, 1, input)
	require.NoError(t, err)

	event, ok := output.(payloads.OrderPaidEvent)
	require.True(t, ok, "unexpected type %T", output)
	assert.EqualValues(t, 77, event.OrderNumber)
	require.Len(t, event.Allocations, 1)
	assert.Equal(t, "12.5", event.Allocations[0].Amount.String())

	_, err = reg.Decode(enums.EventOrderPaid, 2, input)
	assert.Error(t, err, "v2 is not registered")

	_, err = reg.Decode(enums.EventOrderPaid, 1, json.RawMessage(`{"orderNumber":"seventy"}`))
	assert.Error(t, err)
}

func TestRegisterReplacesAndListsVersions(t *testing.T) {
	reg := NewDecoderRegistry()
	RegisterJSON[payloads.OrderPaidEvent](reg, enums.EventOrderPaid, 2)
	RegisterJSON[payloads.OrderPaidEvent](reg, enums.EventOrderPaid, 1)
	reg.Register(enums.EventOrderPaid, 2, func(json.RawMessage) (any, error) {
		return nil, errors.New("v2 retired")
	})

	assert.Equal(t, []int{1, 2}, reg.Versions(enums.EventOrderPaid))
	assert.Empty(t, reg.Versions(enums.EventSettlementPayoutPaid))

	_, err := reg.Decode(enums.EventOrderPaid, 2, json.RawMessage(`{}`))
	assert.EqualError(t, err, "v2 retired")
}
