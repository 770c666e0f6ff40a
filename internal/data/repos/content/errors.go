package content

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"gorm.io/gorm"
)

// mapStoreError folds driver and ORM failures into domain error codes so
// callers never branch on gorm or pgconn types directly.
func mapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var domainErr *types.Error
	if errors.As(err, &domainErr) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return types.WrapError(types.CodeNotFound, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return types.RetryableError(types.CodePersistence, op, "store call canceled", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return types.WrapError(types.CodeConflict, op, err) // unique_violation
		case "23503":
			return types.WrapError(types.CodeValidation, op, err) // foreign_key_violation
		case "40001", "40P01", "55P03":
			return types.RetryableError(types.CodePersistence, op, "transient postgres failure", err) // serialization/deadlock/lock_not_available
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "unique constraint"),
		strings.Contains(msg, "already exists"):
		return types.WrapError(types.CodeConflict, op, err)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "temporar"):
		return types.RetryableError(types.CodePersistence, op, "transient store failure", err)
	default:
		return types.WrapError(types.CodePersistence, op, err)
	}
}
