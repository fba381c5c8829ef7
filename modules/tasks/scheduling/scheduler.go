// Package scheduling expands one recurring-task request into its
// concrete occurrence list. Expansion is pure: it reads the tenant
// work calendar, the holiday set and the owner's busy intervals, and
// either returns the full ordered list or fails before anything is
// persisted.
package scheduling

import (
	"fmt"
	"time"

	"github.com/emetric-hq/emetric/modules/calendar/domain/entities/busy"
	"github.com/emetric-hq/emetric/modules/calendar/domain/entities/workcal"
	"github.com/emetric-hq/emetric/pkg/routine"
	"github.com/emetric-hq/emetric/pkg/serrors"
)

// unbounded stands in for a missing occurrence count so the walk is
// end-date driven.
const unbounded = int(^uint(0) >> 1)

// Params is the schedule part of a create request.
type Params struct {
	RoutineOption routine.Option
	StartDate     time.Time
	StartTime     workcal.TimeOfDay
	Duration      time.Duration

	RepeatEvery          int
	OccursDays           []time.Weekday
	OccursMonthDayNumber int
	OccursMonthPosition  routine.DayPosition
	OccursMonthDay       time.Weekday
	EndDate              time.Time // zero means the upline's end date
	AfterOccurrence      int
}

// Window is the upline initiative's schedule window.
type Window struct {
	Start time.Time
	End   time.Time
}

// Environment is everything expansion reads about the tenant and the
// owner.
type Environment struct {
	Calendar *workcal.WorkCalendar
	Holidays map[time.Time]struct{}
	Busy     []*busy.Interval
}

// Occurrence is one expanded instance with its tenant-local start and
// deadline.
type Occurrence struct {
	Date  time.Time
	Start time.Time
	End   time.Time
}

// Expand runs the listed checks in order and walks the calendar per
// routine option. Holidays are skipped silently; a busy-interval clash
// aborts the whole expansion.
func Expand(p Params, upline Window, env Environment, now time.Time) ([]Occurrence, error) {
	cal := env.Calendar
	loc := cal.Location()

	if p.StartTime.At(p.StartDate, loc).Before(now) {
		return nil, serrors.Validation("start_time", "start time cannot be in the past")
	}
	if !cal.IsWorkDay(p.StartDate) {
		return nil, serrors.Validation("start_date", "start date is not a work day")
	}
	if p.RoutineOption == routine.Once && routine.Date(upline.End).Before(routine.Date(p.StartDate)) {
		return nil, serrors.Validation("start_date", "start date cannot be after the upline end date")
	}
	if routine.Date(p.StartDate).Before(routine.Date(upline.Start)) {
		return nil, serrors.Validation("start_date", "start date cannot be before the upline start date")
	}

	endTime := p.StartTime.Add(p.Duration)
	if p.StartTime.Before(cal.WorkStart()) || cal.WorkStop().Before(endTime) {
		return nil, serrors.Validation("start_time", "selected time is outside work time")
	}
	if cal.HasBreak() && endTime.Minutes() > cal.BreakStart().Minutes() &&
		p.StartTime.Minutes() < cal.BreakStop().Minutes() {
		field := "duration"
		if p.StartTime.Minutes() >= cal.BreakStart().Minutes() {
			field = "start_time"
		}
		return nil, serrors.Validation(field, "task cannot overflow to break time")
	}

	end := routine.Date(p.EndDate)
	if !p.EndDate.IsZero() {
		if routine.Date(upline.End).Before(end) {
			return nil, serrors.Validation("end_date", "end date cannot be after the upline end date")
		}
	} else {
		end = routine.Date(upline.End)
	}

	w := walker{
		params: p,
		env:    env,
		loc:    loc,
		end:    end,
	}

	var dates []time.Time
	var err error
	switch p.RoutineOption {
	case routine.Once:
		dates, err = w.once()
	case routine.Daily:
		dates, err = w.daily()
	case routine.Weekly:
		dates, err = w.weekly()
	case routine.Monthly:
		if p.OccursMonthDayNumber > 0 {
			dates, err = w.monthlyByDayNumber()
		} else {
			dates, err = w.monthlyByPosition()
		}
	default:
		return nil, serrors.Validation("routine_option", "invalid routine option for a task")
	}
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, serrors.Validation("after_occurrence", "upline end date is before the first possible occurrence")
	}

	occs := make([]Occurrence, 0, len(dates))
	for _, d := range dates {
		start := p.StartTime.At(d, loc)
		occs = append(occs, Occurrence{Date: d, Start: start, End: start.Add(p.Duration)})
	}
	return occs, nil
}

type walker struct {
	params Params
	env    Environment
	loc    *time.Location
	end    time.Time
}

func (w *walker) budget() int {
	if w.params.AfterOccurrence > 0 {
		return w.params.AfterOccurrence
	}
	return unbounded
}

func (w *walker) isHoliday(d time.Time) bool {
	_, ok := w.env.Holidays[routine.Date(d)]
	return ok
}

// ownerFree fails hard on a clash: a recurring batch is all-or-nothing
// against the owner's existing schedule.
func (w *walker) ownerFree(d time.Time) error {
	start := w.params.StartTime.At(d, w.loc)
	end := start.Add(w.params.Duration)
	for _, iv := range w.env.Busy {
		if iv.Overlaps(start, end) {
			return serrors.Validation("start_time",
				fmt.Sprintf("task owner is not free between %s and %s", start.Format(time.RFC3339), end.Format(time.RFC3339)))
		}
	}
	return nil
}

func (w *walker) once() ([]time.Time, error) {
	d := routine.Date(w.params.StartDate)
	if w.isHoliday(d) {
		return nil, serrors.Validation("start_date", "date is a holiday")
	}
	if err := w.ownerFree(d); err != nil {
		return nil, err
	}
	return []time.Time{d}, nil
}

func (w *walker) daily() ([]time.Time, error) {
	var dates []time.Time
	remaining := w.budget()
	counter := 1

	for cur := routine.Date(w.params.StartDate); !cur.After(w.end); cur = cur.AddDate(0, 0, 1) {
		if !w.env.Calendar.IsWorkDay(cur) {
			continue
		}
		if counter != 1 {
			counter--
			continue
		}
		counter = w.params.RepeatEvery
		if w.isHoliday(cur) {
			continue
		}
		if err := w.ownerFree(cur); err != nil {
			return nil, err
		}
		dates = append(dates, cur)
		if remaining--; remaining <= 0 {
			break
		}
	}
	return dates, nil
}

func (w *walker) weekly() ([]time.Time, error) {
	var dates []time.Time
	remaining := w.budget()
	start := routine.Date(w.params.StartDate)

	for cur := start; !cur.After(w.end); cur = cur.AddDate(0, 0, 1) {
		if !w.env.Calendar.IsWorkDay(cur) {
			continue
		}
		if routine.WeekDifference(start, cur)%w.params.RepeatEvery != 0 {
			continue
		}
		if !weekdayIn(cur.Weekday(), w.params.OccursDays) {
			continue
		}
		if w.isHoliday(cur) {
			continue
		}
		if err := w.ownerFree(cur); err != nil {
			return nil, err
		}
		dates = append(dates, cur)
		if remaining--; remaining <= 0 {
			break
		}
	}
	return dates, nil
}

// monthlyByDayNumber walks day by day looking for the configured
// day-of-month. A qualifying day that lands outside the work week is
// skipped, not shifted. After an emit the cursor jumps most of a month
// ahead before resuming.
func (w *walker) monthlyByDayNumber() ([]time.Time, error) {
	var dates []time.Time
	remaining := w.budget()
	counter := 1

	for cur := routine.Date(w.params.StartDate); !cur.After(w.end); cur = cur.AddDate(0, 0, 1) {
		if cur.Day() != w.params.OccursMonthDayNumber {
			continue
		}
		if counter != 1 {
			counter--
			continue
		}
		counter = w.params.RepeatEvery
		if !w.env.Calendar.IsWorkDay(cur) {
			continue
		}
		if w.isHoliday(cur) {
			continue
		}
		if err := w.ownerFree(cur); err != nil {
			return nil, err
		}
		dates = append(dates, cur)
		if remaining--; remaining <= 0 {
			break
		}
		cur = cur.AddDate(0, 0, 25)
	}
	return dates, nil
}

func (w *walker) monthlyByPosition() ([]time.Time, error) {
	var dates []time.Time
	remaining := w.budget()
	counter := 1
	start := routine.Date(w.params.StartDate)

	candidates := routine.MonthlyOccurrenceDates(
		w.params.OccursMonthPosition, w.params.OccursMonthDay, start, w.end,
	)
	for _, cur := range candidates {
		if cur.Before(start) || cur.After(w.end) {
			continue
		}
		if counter != 1 {
			counter--
			continue
		}
		counter = w.params.RepeatEvery
		if !w.env.Calendar.IsWorkDay(cur) {
			continue
		}
		if w.isHoliday(cur) {
			continue
		}
		if err := w.ownerFree(cur); err != nil {
			return nil, err
		}
		dates = append(dates, cur)
		if remaining--; remaining <= 0 {
			break
		}
	}
	return dates, nil
}

func weekdayIn(d time.Weekday, days []time.Weekday) bool {
	for _, wd := range days {
		if wd == d {
			return true
		}
	}
	return false
}
