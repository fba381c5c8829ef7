package workcal_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emetric-hq/emetric/modules/calendar/domain/entities/workcal"
)

func TestNew_Validation(t *testing.T) {
	start := workcal.MustTimeOfDay(9, 0)
	stop := workcal.MustTimeOfDay(17, 0)

	_, err := workcal.New(stop, start, []time.Weekday{time.Monday}, "UTC")
	require.Error(t, err)

	_, err = workcal.New(start, stop, nil, "UTC")
	require.Error(t, err)

	_, err = workcal.New(start, stop, []time.Weekday{time.Monday}, "Not/AZone")
	require.Error(t, err)
}

func TestIsWorkDay(t *testing.T) {
	cal, err := workcal.New(
		workcal.MustTimeOfDay(9, 0),
		workcal.MustTimeOfDay(17, 0),
		[]time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		"Africa/Nairobi",
	)
	require.NoError(t, err)

	monday := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	require.True(t, cal.IsWorkDay(monday))
	require.False(t, cal.IsWorkDay(monday.AddDate(0, 0, 5))) // Saturday
	require.Equal(t, "Africa/Nairobi", cal.Location().String())
}

func TestHasBreak(t *testing.T) {
	cal, err := workcal.New(
		workcal.MustTimeOfDay(8, 0),
		workcal.MustTimeOfDay(16, 0),
		[]time.Weekday{time.Monday},
		"UTC",
	)
	require.NoError(t, err)
	require.False(t, cal.HasBreak())

	cal, err = workcal.New(
		workcal.MustTimeOfDay(8, 0),
		workcal.MustTimeOfDay(16, 0),
		[]time.Weekday{time.Monday},
		"UTC",
		workcal.WithBreak(workcal.MustTimeOfDay(12, 0), workcal.MustTimeOfDay(13, 0)),
	)
	require.NoError(t, err)
	require.True(t, cal.HasBreak())
}

func TestTimeOfDay(t *testing.T) {
	tod := workcal.MustTimeOfDay(11, 30)
	require.Equal(t, 690, tod.Minutes())
	require.Equal(t, "11:30", tod.String())
	require.Equal(t, "13:30", tod.Add(2*time.Hour).String())

	loc, err := time.LoadLocation("Africa/Nairobi")
	require.NoError(t, err)
	date := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	anchored := tod.At(date, loc)
	require.Equal(t, 11, anchored.Hour())
	require.Equal(t, loc, anchored.Location())

	_, err = workcal.NewTimeOfDay(24, 0)
	require.Error(t, err)
}
