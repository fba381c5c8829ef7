package workcal

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

var ErrWorkCalendarNotFound = errors.New("work calendar not found")

// TimeOfDay is a wall-clock time without a date, minute resolution.
type TimeOfDay struct {
	hour   int
	minute int
}

func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return TimeOfDay{}, errors.Errorf("invalid time of day %02d:%02d", hour, minute)
	}
	return TimeOfDay{hour: hour, minute: minute}, nil
}

func MustTimeOfDay(hour, minute int) TimeOfDay {
	t, err := NewTimeOfDay(hour, minute)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) Hour() int    { return t.hour }
func (t TimeOfDay) Minute() int  { return t.minute }
func (t TimeOfDay) Minutes() int { return t.hour*60 + t.minute }

func (t TimeOfDay) Before(other TimeOfDay) bool { return t.Minutes() < other.Minutes() }
func (t TimeOfDay) After(other TimeOfDay) bool  { return t.Minutes() > other.Minutes() }

// Add returns the time of day d later than t. Overflow past midnight
// carries into the following day; callers that care check Minutes().
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	total := t.Minutes() + int(d.Minutes())
	return TimeOfDay{hour: total / 60, minute: total % 60}
}

// At anchors the time of day onto a calendar date in the given location.
func (t TimeOfDay) At(date time.Time, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.hour, t.minute, 0, 0, loc)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.hour, t.minute)
}

// WorkCalendar is a tenant's working-hours configuration: the daily work
// and break windows, the set of working weekdays, and the IANA timezone
// every schedule computation for that tenant runs in.
type WorkCalendar struct {
	workStart  TimeOfDay
	workStop   TimeOfDay
	breakStart TimeOfDay
	breakStop  TimeOfDay
	workDays   map[time.Weekday]struct{}
	timezone   string
	updatedAt  time.Time
}

type Option func(*WorkCalendar)

func WithBreak(start, stop TimeOfDay) Option {
	return func(c *WorkCalendar) {
		c.breakStart = start
		c.breakStop = stop
	}
}

func WithUpdatedAt(updatedAt time.Time) Option {
	return func(c *WorkCalendar) {
		c.updatedAt = updatedAt
	}
}

func New(workStart, workStop TimeOfDay, workDays []time.Weekday, timezone string, opts ...Option) (*WorkCalendar, error) {
	if !workStart.Before(workStop) {
		return nil, errors.New("work start must precede work stop")
	}
	if len(workDays) == 0 {
		return nil, errors.New("at least one work day is required")
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, errors.Wrap(err, "invalid timezone")
	}
	days := make(map[time.Weekday]struct{}, len(workDays))
	for _, d := range workDays {
		days[d] = struct{}{}
	}
	c := &WorkCalendar{
		workStart: workStart,
		workStop:  workStop,
		workDays:  days,
		timezone:  timezone,
		updatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *WorkCalendar) WorkStart() TimeOfDay  { return c.workStart }
func (c *WorkCalendar) WorkStop() TimeOfDay   { return c.workStop }
func (c *WorkCalendar) BreakStart() TimeOfDay { return c.breakStart }
func (c *WorkCalendar) BreakStop() TimeOfDay  { return c.breakStop }
func (c *WorkCalendar) Timezone() string      { return c.timezone }
func (c *WorkCalendar) UpdatedAt() time.Time  { return c.updatedAt }

func (c *WorkCalendar) HasBreak() bool {
	return c.breakStart.Before(c.breakStop)
}

func (c *WorkCalendar) WorkDays() []time.Weekday {
	days := make([]time.Weekday, 0, len(c.workDays))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if _, ok := c.workDays[d]; ok {
			days = append(days, d)
		}
	}
	return days
}

func (c *WorkCalendar) IsWorkDay(date time.Time) bool {
	_, ok := c.workDays[date.Weekday()]
	return ok
}

func (c *WorkCalendar) Location() *time.Location {
	loc, err := time.LoadLocation(c.timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type Repository interface {
	Get(ctx context.Context) (*WorkCalendar, error)
	Save(ctx context.Context, c *WorkCalendar) error
}
