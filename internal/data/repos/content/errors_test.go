package content

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"gorm.io/gorm"
)

func TestMapStoreErrorNil(t *testing.T) {
	if err := mapStoreError("op", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestMapStoreErrorNotFound(t *testing.T) {
	err := mapStoreError("op", gorm.ErrRecordNotFound)
	if !types.IsCode(err, types.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestMapStoreErrorUniqueViolation(t *testing.T) {
	err := mapStoreError("op", &pgconn.PgError{Code: "23505"})
	if !types.IsCode(err, types.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestMapStoreErrorSerializationFailure(t *testing.T) {
	err := mapStoreError("op", &pgconn.PgError{Code: "40001"})
	if !types.IsCode(err, types.CodePersistence) {
		t.Fatalf("expected persistence, got %v", err)
	}
	if !types.IsRetryable(err) {
		t.Fatalf("expected retryable, got %v", err)
	}
}

func TestMapStoreErrorSQLiteUnique(t *testing.T) {
	err := mapStoreError("op", errors.New("UNIQUE constraint failed: stage_record.episode_id"))
	if !types.IsCode(err, types.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestMapStoreErrorPassthrough(t *testing.T) {
	in := types.NewError(types.CodeValidation, "validate", "bad", nil)
	out := mapStoreError("other", fmt.Errorf("wrapped: %w", in))
	if !types.IsCode(out, types.CodeValidation) {
		t.Fatalf("expected validation to survive, got %v", out)
	}
}

func TestMapStoreErrorDefault(t *testing.T) {
	err := mapStoreError("op", errors.New("boom"))
	if !types.IsCode(err, types.CodePersistence) {
		t.Fatalf("expected persistence, got %v", err)
	}
	if types.IsRetryable(err) {
		t.Fatalf("expected non-retryable, got %v", err)
	}
}
