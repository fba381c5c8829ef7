package outbox

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoff(t *testing.T) {
	max := 60 * time.Second

	require.Zero(t, backoff(0, max))
	require.Equal(t, time.Second, backoff(1, max))
	require.Equal(t, 2*time.Second, backoff(2, max))
	require.Equal(t, 16*time.Second, backoff(5, max))
	require.Equal(t, max, backoff(30, max))
}

func TestJitter(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	require.Zero(t, jitter(nil, time.Second))
	require.Zero(t, jitter(r, 0))

	for i := 0; i < 100; i++ {
		j := jitter(r, 200*time.Millisecond)
		require.GreaterOrEqual(t, j, time.Duration(0))
		require.LessOrEqual(t, j, 200*time.Millisecond)
	}
}
