package appointment

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestInsertError(t *testing.T) {
	slotViolation := &pgconn.PgError{Code: uniqueViolation, ConstraintName: slotConstraintName}

	tests := []struct {
		name        string
		err         error
		wantDup     bool
		wantStorage bool
	}{
		{"slot constraint", slotViolation, true, false},
		{"slot constraint behind storage wrap", storageError("scan appointment", slotViolation), true, false},
		{"other unique constraint", storageError("scan appointment", &pgconn.PgError{Code: uniqueViolation, ConstraintName: "appointments_pkey"}), false, true},
		{"check violation", storageError("scan appointment", &pgconn.PgError{Code: "23514", ConstraintName: "appointments_business_hours"}), false, true},
		{"connection failure", storageError("commit insert", errors.New("conn closed")), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := insertError(tt.err)
			assert.Equal(t, tt.wantDup, errors.Is(got, ErrDuplicateSlot))
			assert.Equal(t, tt.wantDup, errors.Is(got, ErrSlotAlreadyBooked))
			assert.Equal(t, tt.wantStorage, errors.Is(got, ErrStorageUnavailable))
		})
	}
}
