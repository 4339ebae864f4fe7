// Package repo holds the pieces every gorm-backed repository shares.
package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base is embedded by domain repositories. The zero value is not usable.
type Base struct {
	conn *gorm.DB
}

func NewBase(conn *gorm.DB) Base {
	return Base{conn: conn}
}

// DB scopes the connection to ctx so cancellation reaches the driver.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.conn
	}
	return b.conn.WithContext(ctx)
}

// Bind swaps the connection for tx, leaving b untouched. A nil tx keeps b.
func (b Base) Bind(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{conn: tx}
}

// Affected turns a write that matched nothing into gorm.ErrRecordNotFound, so
// updates and deletes by id report a missing row the same way reads do.
func Affected(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
