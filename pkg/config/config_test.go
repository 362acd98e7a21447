package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, StoreDriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 3, cfg.Ledger.MaxAttempts)
	assert.Equal(t, CapacityAdvisory, cfg.Ledger.CapacityPolicy)
	assert.Equal(t, 100, cfg.Ledger.HistoryPageSize)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, time.Hour, cfg.Redis.IdempotencyTTL)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestFromViper_ValoresDeEntorno(t *testing.T) {
	v := viper.New()
	v.Set("STORE_DRIVER", "memory")
	v.Set("LEDGER_MAX_ATTEMPTS", "5")
	v.Set("LEDGER_CAPACITY_POLICY", "strict")
	v.Set("REDIS_HOST", "cache")

	cfg, err := fromViper(v)
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.Store.Driver)
	assert.Equal(t, 5, cfg.Ledger.MaxAttempts)
	assert.Equal(t, CapacityStrict, cfg.Ledger.CapacityPolicy)
	assert.True(t, cfg.Ledger.StrictCapacity())
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "cache:6379", cfg.Redis.Addr())
}

func TestFromViper_RechazaValoresInvalidos(t *testing.T) {
	v := viper.New()
	v.Set("LEDGER_CAPACITY_POLICY", "maybe")
	_, err := fromViper(v)
	assert.Error(t, err)

	v = viper.New()
	v.Set("STORE_DRIVER", "sqlite")
	_, err = fromViper(v)
	assert.Error(t, err)
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:w/rd", DBName: "almacen", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aw%2Frd@db:5432/almacen?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://x@y/z"
	assert.Equal(t, "postgres://x@y/z", c.ConnectionString())
}
