package routine

import (
	"time"

	"github.com/emetric-hq/emetric/pkg/serrors"
)

// Spec is a recurrence request. Exactly one of End and AfterOccurrence is
// set for non-once options; End is required for once.
type Spec struct {
	Option          Option
	Start           time.Time
	End             time.Time // zero when AfterOccurrence drives the walk
	AfterOccurrence int       // 0 when End drives the walk
}

// Upline is the containing schedule window a child must fit into.
type Upline struct {
	Start  time.Time
	End    time.Time
	Option Option
}

// StartDates expands a recurrence spec into the ordered list of occurrence
// start dates. Each occurrence's window runs from its start date to
// WindowEnd(start, option); consecutive windows are adjacent and disjoint.
func StartDates(spec Spec, upline *Upline, today time.Time) ([]time.Time, error) {
	start := Date(spec.Start)
	end := Date(spec.End)
	today = Date(today)

	if start.Before(today) {
		return nil, serrors.Validation("start_date", "start date cannot be in the past")
	}

	var uplineEnd time.Time
	if upline != nil {
		if spec.Option.CoarserThan(upline.Option) {
			return nil, serrors.Validation("routine_option", "selected routine option mismatch with upline")
		}
		if Date(upline.Start).After(start) {
			return nil, serrors.Validation("start_date", "start date can not be earlier than upline start date")
		}
		uplineEnd = Date(upline.End)
		if !spec.End.IsZero() && uplineEnd.Before(end) {
			return nil, serrors.Validation("end_date", "end date can not be greater than upline end date")
		}
	}

	var dates []time.Time

	switch {
	case spec.Option == Once:
		if !start.Before(end) {
			return nil, serrors.Validation("start_date", "start date cannot be greater than or equal to end date")
		}
		dates = append(dates, start)

	case !spec.End.IsZero():
		cursor := start
		windowEnd := WindowEnd(cursor, spec.Option, end)
		for cursor.Before(end) && !windowEnd.After(end) {
			dates = append(dates, cursor)
			cursor = windowEnd.AddDate(0, 0, 1)
			windowEnd = WindowEnd(cursor, spec.Option, end)
		}

	default:
		cursor := start
		windowEnd := WindowEnd(cursor, spec.Option, time.Time{})
		for remaining := spec.AfterOccurrence; remaining > 0; remaining-- {
			if !uplineEnd.IsZero() && uplineEnd.Before(windowEnd) {
				return nil, serrors.Validation("after_occurrence", "possible end date can not be greater than upline end date")
			}
			dates = append(dates, cursor)
			cursor = windowEnd.AddDate(0, 0, 1)
			windowEnd = WindowEnd(cursor, spec.Option, time.Time{})
		}
	}

	if len(dates) == 0 {
		return nil, serrors.Validation("after_occurrence", "end date is before the first possible occurrence")
	}
	return dates, nil
}

// WeekDifference returns the ISO-week distance between two dates,
// unwrapping at year boundaries the way consecutive schedule walks expect.
func WeekDifference(earlier, later time.Time) int {
	_, earlierWeek := earlier.ISOWeek()
	_, laterWeek := later.ISOWeek()

	diff := laterWeek - earlierWeek
	if diff < 0 { // extending into another year
		diff = 52 - earlierWeek + laterWeek
	}
	return diff
}
