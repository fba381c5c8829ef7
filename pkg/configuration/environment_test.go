package configuration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfiguration_Defaults(t *testing.T) {
	c := &Configuration{}
	require.NoError(t, c.load(nil))

	require.Equal(t, "emetric", c.Database.Name)
	require.Equal(t, "strategy_outbox", c.Outbox.RelayTable)
	require.Equal(t, time.Second, c.Outbox.RelayPollInterval)
	require.Equal(t, 25, c.Outbox.RelayMaxAttempts)
	require.True(t, c.Jobs.RunnerEnabled)
}

func TestDatabaseOptions_ConnectionString(t *testing.T) {
	d := DatabaseOptions{
		Name:     "emetric",
		Host:     "db",
		Port:     "5433",
		User:     "svc",
		Password: "secret",
	}
	require.Equal(
		t,
		"host=db port=5433 user=svc dbname=emetric password=secret sslmode=disable",
		d.ConnectionString(),
	)
}

func TestLoadEnv_MissingFiles(t *testing.T) {
	n, err := LoadEnv([]string{"does-not-exist.env"})
	require.NoError(t, err)
	require.Zero(t, n)
}
