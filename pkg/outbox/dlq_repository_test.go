package outbox

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-settlement/internal/settlement/settlementtest"
	"github.com/angelmondragon/packfinderz-settlement/pkg/db/models"
	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
)

func TestDLQInsertAndFind(t *testing.T) {
	db := settlementtest.NewDB(t)
	repo := NewDLQRepository(db)

	eventID := uuid.New()
	msg := strings.Repeat("x", maxDLQErrorLen+50)
	err := db.Transaction(func(tx *gorm.DB) error {
		return repo.InsertTx(tx, models.OutboxDLQ{
			EventID:       eventID,
			EventType:     enums.EventSettlementPayoutPaid,
			AggregateType: enums.AggregateSettlementEntry,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"version":1}`),
			ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
			ErrorMessage:  &msg,
			AttemptCount:  10,
		})
	})
	require.NoError(t, err)

	found, err := repo.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.NotEqual(t, uuid.Nil, found.ID)
	assert.Len(t, *found.ErrorMessage, maxDLQErrorLen)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, found.ErrorReason)

	missing, err := repo.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Error(t, repo.InsertTx(nil, models.OutboxDLQ{}))
}

func TestTruncateDLQErrorKeepsRunesWhole(t *testing.T) {
	msg := strings.Repeat("a", maxDLQErrorLen-1) + "é"
	got := truncateDLQError(msg)
	assert.True(t, utf8.ValidString(got))
	assert.Len(t, got, maxDLQErrorLen-1)
	assert.Equal(t, "short", truncateDLQError("short"))
}
