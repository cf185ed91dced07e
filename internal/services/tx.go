package services

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// inTransaction runs fn inside one transaction and translates the resulting error
func inTransaction(ctx context.Context, db *gorm.DB, op, entity string, fn func(tx *gorm.DB) error) error {
	err := db.WithContext(ctx).Transaction(fn)
	return translateStoreError(err, op, entity)
}

// forUpdate locks the selected rows where the dialect supports it; SQLite
// serialises writers and ignores the clause.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
