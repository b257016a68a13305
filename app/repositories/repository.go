// Package repositories holds the gorm data access for the storefront.
// Every repository is bound to a *gorm.DB which may be the pool or a
// transaction (see WithTx).
package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matched no row.
var ErrNotFound = errors.New("record not found")

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
