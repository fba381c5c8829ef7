package routine

import "time"

// DayPosition selects which occurrence of a weekday inside a month.
type DayPosition string

const (
	First  DayPosition = "first"
	Second DayPosition = "second"
	Third  DayPosition = "third"
	Fourth DayPosition = "fourth"
	Last   DayPosition = "last"
)

func (p DayPosition) Valid() bool {
	switch p {
	case First, Second, Third, Fourth, Last:
		return true
	}
	return false
}

func (p DayPosition) ordinal() int {
	switch p {
	case First:
		return 1
	case Second:
		return 2
	case Third:
		return 3
	case Fourth:
		return 4
	default:
		return -1
	}
}

// MonthlyOccurrenceDates enumerates the positioned weekday (e.g. "second
// Tuesday") for every month from start's month through end's month.
// Months lacking the requested occurrence (a fifth Friday, say) are left
// out. Callers filter the result to their exact date range.
func MonthlyOccurrenceDates(position DayPosition, weekday time.Weekday, start, end time.Time) []time.Time {
	start = Date(start)
	end = Date(end)

	var dates []time.Time
	cursor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastMonth := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)

	for !cursor.After(lastMonth) {
		if d, ok := nthWeekdayOfMonth(cursor, weekday, position.ordinal()); ok {
			dates = append(dates, d)
		}
		cursor = cursor.AddDate(0, 1, 0)
	}
	return dates
}

// nthWeekdayOfMonth returns the nth weekday within firstOfMonth's month,
// or the last one when n is -1.
func nthWeekdayOfMonth(firstOfMonth time.Time, weekday time.Weekday, n int) (time.Time, bool) {
	if n == -1 {
		lastDay := firstOfMonth.AddDate(0, 1, -1)
		offset := (int(lastDay.Weekday()) - int(weekday) + 7) % 7
		return lastDay.AddDate(0, 0, -offset), true
	}

	offset := (int(weekday) - int(firstOfMonth.Weekday()) + 7) % 7
	d := firstOfMonth.AddDate(0, 0, offset+7*(n-1))
	if d.Month() != firstOfMonth.Month() {
		return time.Time{}, false
	}
	return d, true
}
