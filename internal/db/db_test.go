package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaultsPerDriver(t *testing.T) {
	mysqlCfg := Config{}
	mysqlCfg.SetDefaults()
	assert.Equal(t, DriverMySQL, mysqlCfg.Driver)
	assert.Equal(t, "3306", mysqlCfg.Port)
	assert.Contains(t, mysqlCfg.Params, "parseTime=True")
	assert.Equal(t, 25, mysqlCfg.MaxOpenConns)

	pgCfg := Config{Driver: DriverPostgres, Host: "pg"}
	pgCfg.SetDefaults()
	assert.Equal(t, "pg", pgCfg.Host)
	assert.Equal(t, "5432", pgCfg.Port)
	assert.Equal(t, "sslmode=disable", pgCfg.Params)
}

func TestApplyEnvPrefersDBVariables(t *testing.T) {
	t.Setenv("MYSQL_HOST", "legacy")
	t.Setenv("DB_HOST", "primary")
	t.Setenv("MYSQL_USER", "reader")

	cfg := Config{User: "yaml-user"}
	cfg.ApplyEnv()

	assert.Equal(t, "primary", cfg.Host)
	assert.Equal(t, "reader", cfg.User)
}

func TestDialector(t *testing.T) {
	for _, driver := range []string{DriverMySQL, DriverPostgres} {
		cfg := Config{Driver: driver}
		cfg.SetDefaults()

		d, err := cfg.Dialector()
		require.NoError(t, err)
		assert.Equal(t, driver, d.Name())
	}

	_, err := Config{Driver: "sqlite"}.Dialector()
	assert.ErrorContains(t, err, "sqlite")
}
