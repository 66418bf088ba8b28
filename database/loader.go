package database

import (
	"context"
	"fmt"
	"reflect"

	"gorm.io/gorm"
)

// Mode selects what a load does with rows already in the target table.
type Mode int

const (
	// Append inserts on top of whatever is there.
	Append Mode = iota
	// Replace clears the table first, in the same transaction as the
	// insert, so a failed load leaves the previous rows intact.
	Replace
)

// Loader bulk-inserts finished tables.
type Loader struct {
	db        *gorm.DB
	BatchSize int
}

func NewLoader(db *gorm.DB) *Loader {
	return &Loader{db: db, BatchSize: 2000}
}

// Load writes rows (a slice of one of the models row types) into its table.
// model is the zero value of the row type and names the table for Replace.
func (l *Loader) Load(ctx context.Context, model any, rows any, mode Mode) error {
	count := reflect.ValueOf(rows).Len()

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if mode == Replace {
			if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
				return fmt.Errorf("clear table: %w", err)
			}
		}
		if count == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, l.BatchSize).Error; err != nil {
			return fmt.Errorf("bulk insert: %w", err)
		}
		return nil
	})
}
