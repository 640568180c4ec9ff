package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Base binds a repository to one gorm handle: the pool or an open transaction.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the handle bound to ctx. A nil ctx returns the raw handle.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// WithTx rebinds the base to tx. A nil tx keeps the current handle.
func (b Base) WithTx(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// FirstWhere loads the first row matching query into dest and translates
// gorm.ErrRecordNotFound into notFound.
func (b Base) FirstWhere(ctx context.Context, dest any, notFound error, query string, args ...any) error {
	err := b.DB(ctx).Where(query, args...).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) && notFound != nil {
		return notFound
	}
	return err
}
