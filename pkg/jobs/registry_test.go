package jobs

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Resolve(t *testing.T) {
	reg := NewRegistry()

	var got Job
	reg.Register(KindTask, PhaseActivate, func(_ context.Context, j Job) error {
		got = j
		return nil
	})

	h, err := reg.Resolve(KindTask, PhaseActivate)
	require.NoError(t, err)

	job := Job{ID: uuid.New(), Key: NewKey(uuid.New(), KindTask, uuid.New(), PhaseActivate)}
	require.NoError(t, h(context.Background(), job))
	require.Equal(t, job.ID, got.ID)

	_, err = reg.Resolve(KindTask, PhaseClose)
	require.Error(t, err)
}

func TestNewReworkKey(t *testing.T) {
	tenantID, taskID := uuid.New(), uuid.New()
	key := NewReworkKey(tenantID, taskID, 2)
	require.Equal(t, KindTask, key.EntityKind)
	require.Equal(t, PhaseReworkOverdue, key.Phase)
	require.Equal(t, 2, key.Round)

	// distinct rounds are distinct keys
	require.NotEqual(t, key, NewReworkKey(tenantID, taskID, 3))
}

func TestRunnerOptions_Defaults(t *testing.T) {
	var opts RunnerOptions
	opts.setDefaults()
	require.Positive(t, opts.PollInterval)
	require.Positive(t, opts.BatchSize)
	require.NotNil(t, opts.Logger)
}
