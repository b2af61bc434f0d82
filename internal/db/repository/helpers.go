// Package repository implements the domain repository interfaces using SQLite.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"csecbridge/internal/domain"
)

func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Message: "resource not found"}
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return &domain.ConflictError{Message: "resource already exists"}
	}
	return domain.ErrPersistence("state store: %v", err)
}

// agoModifier builds a SQLite datetime modifier for "now minus d", so that
// age comparisons stay in the same time domain as CURRENT_TIMESTAMP.
func agoModifier(d time.Duration) string {
	secs := int64(d.Seconds())
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("-%d seconds", secs)
}
