package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/domain"
)

func TestMapError_TraduceCodigos(t *testing.T) {
	cases := []struct {
		code string
		want error
	}{
		{codeUniqueViolation, domain.ErrDuplicate},
		{codeLockNotAvailable, domain.ErrLockTimeout},
		{codeSerializationFailure, domain.ErrConflict},
		{codeDeadlockDetected, domain.ErrConflict},
		{codeCheckViolation, domain.ErrInvalidInput},
	}
	for _, tc := range cases {
		err := mapError("op", fmt.Errorf("wrap: %w", &pgconn.PgError{Code: tc.code}))
		assert.ErrorIs(t, err, tc.want, tc.code)
		assert.Contains(t, err.Error(), "op: ")
	}
}

func TestMapError_SinCodigoConservaElOriginal(t *testing.T) {
	boom := errors.New("conexión cerrada")
	err := mapError("insert batch", boom)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "insert batch: conexión cerrada", err.Error())
	assert.NoError(t, mapError("x", nil))
}

func TestMigrationNames_OrdenadasYEmbebidas(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_init.sql", names[0])

	body, err := migrationFiles.ReadFile("migrations/" + names[0])
	require.NoError(t, err)
	assert.Contains(t, string(body), "movements_variant_sequence UNIQUE (variant_id, sequence)")
	assert.Contains(t, string(body), "CHECK (new_stock = previous_stock + quantity)")
}

func TestNullable(t *testing.T) {
	assert.Nil(t, nullable(""))
	s := "bog"
	assert.Equal(t, "bog", deref(nullable(s)))
	assert.Equal(t, "", deref(nil))
}
