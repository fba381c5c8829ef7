package busy_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/emetric-hq/emetric/modules/calendar/domain/entities/busy"
)

func TestOverlaps(t *testing.T) {
	owner := uuid.New()
	at := func(h int) time.Time {
		return time.Date(2024, time.March, 4, h, 0, 0, 0, time.UTC)
	}
	iv := busy.New("standup", owner, at(10), at(11))

	require.True(t, iv.Overlaps(at(10), at(12)))
	require.True(t, iv.Overlaps(at(9), at(11)))
	// half-open: touching boundaries do not conflict
	require.False(t, iv.Overlaps(at(11), at(12)))
	require.False(t, iv.Overlaps(at(8), at(10)))

	free := busy.New("focus", owner, at(10), at(11)).Apply(busy.WithIsFree(true))
	require.False(t, free.Overlaps(at(10), at(11)))
}
