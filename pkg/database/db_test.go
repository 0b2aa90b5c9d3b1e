package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_MAX_CONNS", "")
	t.Setenv("DATABASE_AUTO_MIGRATE", "")

	cfg := ConfigFromEnv()
	assert.Contains(t, cfg.DSN, "localhost:5432")
	assert.Equal(t, 10, cfg.MaxConns)
	assert.True(t, cfg.AutoMigrate)
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/app")
	t.Setenv("DATABASE_MAX_CONNS", "25")
	t.Setenv("DATABASE_AUTO_MIGRATE", "false")

	cfg := ConfigFromEnv()
	assert.Equal(t, "postgres://u:p@db:5432/app", cfg.DSN)
	assert.Equal(t, 25, cfg.MaxConns)
	assert.False(t, cfg.AutoMigrate)
}

func TestWithRuntimeParams_URL(t *testing.T) {
	dsn, err := WithRuntimeParams("postgres://u:p@db:5432/app?sslmode=disable",
		map[string]string{"timezone": "Asia/Shanghai", "client_encoding": "UTF8"})
	require.NoError(t, err)

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, "Asia/Shanghai", u.Query().Get("timezone"))
	assert.Equal(t, "UTF8", u.Query().Get("client_encoding"))
}

func TestWithRuntimeParams_KeepsExplicitValue(t *testing.T) {
	dsn, err := WithRuntimeParams("postgres://db/app?timezone=UTC", map[string]string{"timezone": "Asia/Shanghai"})
	require.NoError(t, err)
	assert.Equal(t, "postgres://db/app?timezone=UTC", dsn)
}

func TestWithRuntimeParams_KeyValue(t *testing.T) {
	dsn, err := WithRuntimeParams("host=db dbname=app", map[string]string{"timezone": "it's"})
	require.NoError(t, err)
	assert.Equal(t, `host=db dbname=app timezone='it\'s'`, dsn)

	dsn, err = WithRuntimeParams("host=db", nil)
	require.NoError(t, err)
	assert.Equal(t, "host=db", dsn)
}

func TestRuntimeParams(t *testing.T) {
	assert.Empty(t, runtimeParams(Config{}))
	assert.Equal(t, map[string]string{"timezone": "UTC", "client_encoding": "UTF8"},
		runtimeParams(Config{TimeZone: "UTC", ClientEncoding: "UTF8"}))
}
