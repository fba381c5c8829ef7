package routine

import "time"

// Option is the recurrence granularity of a scheduled entity.
type Option string

const (
	Once        Option = "once"
	Daily       Option = "daily"
	Weekly      Option = "weekly"
	Fortnightly Option = "fortnightly"
	Monthly     Option = "monthly"
	Quarterly   Option = "quarterly"
	HalfYearly  Option = "half_yearly"
	Yearly      Option = "yearly"
)

// granularity order, finest to coarsest. A child schedule may not use a
// coarser option than its upline.
var rank = map[Option]int{
	Once:        0,
	Daily:       1,
	Weekly:      2,
	Fortnightly: 3,
	Monthly:     4,
	Quarterly:   5,
	HalfYearly:  6,
	Yearly:      7,
}

// windowDays is the fixed day offset from a window's start to its end.
// These are deliberately not calendar-aware: a monthly window is always
// 30 days long regardless of the month it starts in.
var windowDays = map[Option]int{
	Daily:       0,
	Weekly:      6,
	Fortnightly: 13,
	Monthly:     29,
	Quarterly:   90,
	HalfYearly:  181,
	Yearly:      364,
}

func (o Option) Valid() bool {
	_, ok := rank[o]
	return ok
}

// CoarserThan reports whether o repeats less often than other.
func (o Option) CoarserThan(other Option) bool {
	return rank[o] > rank[other]
}

// WindowEnd returns the end date of the window starting at start. For
// "once" the caller-supplied end date is the window end.
func WindowEnd(start time.Time, o Option, explicitEnd time.Time) time.Time {
	if o == Once {
		return explicitEnd
	}
	return start.AddDate(0, 0, windowDays[o])
}

// Date truncates t to a calendar date in UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
