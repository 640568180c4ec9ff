package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type ledgerRow struct {
	ID  string `gorm:"primaryKey"`
	Key string
}

var errRowMissing = errors.New("row missing")

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, conn.AutoMigrate(&ledgerRow{}))
	return conn
}

func TestBaseDBBindsContext(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	withCtx := base.DB(ctx)
	require.NotNil(t, withCtx.Statement)
	assert.Equal(t, ctx, withCtx.Statement.Context)

	var noCtx context.Context
	assert.Same(t, db, base.DB(noCtx))
}

func TestBaseWithTx(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)
	assert.Equal(t, base, base.WithTx(nil))

	err := db.Transaction(func(tx *gorm.DB) error {
		bound := base.WithTx(tx)
		require.NoError(t, bound.DB(context.Background()).Create(&ledgerRow{ID: "a", Key: "k1"}).Error)
		return errors.New("rollback")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&ledgerRow{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestBaseFirstWhere(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)
	require.NoError(t, db.Create(&ledgerRow{ID: "a", Key: "k1"}).Error)

	var row ledgerRow
	require.NoError(t, base.FirstWhere(context.Background(), &row, errRowMissing, "key = ?", "k1"))
	assert.Equal(t, "a", row.ID)

	err := base.FirstWhere(context.Background(), &ledgerRow{}, errRowMissing, "key = ?", "nope")
	assert.ErrorIs(t, err, errRowMissing)

	err = base.FirstWhere(context.Background(), &ledgerRow{}, nil, "key = ?", "nope")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
