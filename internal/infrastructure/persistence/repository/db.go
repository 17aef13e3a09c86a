package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"prmirror/internal/ports"
)

// dbFromContext prefers the transaction carried by ctx over the root handle.
func dbFromContext(ctx context.Context, root *gorm.DB) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return root.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func sidePtr(side string) *string {
	if side == "" {
		return nil
	}
	return &side
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
