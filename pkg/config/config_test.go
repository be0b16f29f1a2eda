package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "memory", cfg.Lock.Driver)
	assert.Equal(t, 3*time.Second, cfg.Lock.Timeout)
	assert.Equal(t, "fifo", cfg.Inventory.CostingMethod)
	assert.Equal(t, int32(4), cfg.Inventory.QuantityScale)
}

func TestLoad_LeeVariablesDeEntorno(t *testing.T) {
	t.Setenv("LOCK_TIMEOUT", "750ms")
	t.Setenv("COSTING_METHOD", "weighted_average")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 750*time.Millisecond, cfg.Lock.Timeout)
	assert.Equal(t, "weighted_average", cfg.Inventory.CostingMethod)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTP.Addr())
}

func TestLoad_RechazaMetodoDeCosteoDesconocido(t *testing.T) {
	t.Setenv("COSTING_METHOD", "lifo")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COSTING_METHOD")
}

func TestLoad_EscalaDeCantidadDentroDeLoPersistido(t *testing.T) {
	t.Setenv("QUANTITY_SCALE", "0")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, int32(0), cfg.Inventory.QuantityScale)

	for _, v := range []string{"5", "-1"} {
		t.Setenv("QUANTITY_SCALE", v)
		_, err := config.Load()
		require.Error(t, err, v)
		assert.Contains(t, err.Error(), "QUANTITY_SCALE")
	}
}

func TestDSN_EscapaPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss/word", DBName: "inv", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%2Fword@db:5432/inv?sslmode=disable", c.DSN())

	c.DatabaseURL = "postgres://otro"
	assert.Equal(t, "postgres://otro", c.ConnectionString())
}
