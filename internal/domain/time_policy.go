package domain

import (
	"fmt"
	"time"
)

// CancellationWindow is the minimum lead time before start inside which unregistering is blocked.
const CancellationWindow = 7 * time.Hour

// Layouts of the civil date and clock fields of an opportunity.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

const displayClockLayout = "3:04 PM"

// CancellationCheck is the result of evaluating the cancellation window.
type CancellationCheck struct {
	Allowed        bool    `json:"allowed"`
	HoursRemaining float64 `json:"hours_remaining"`
}

// Location resolves the opportunity's IANA timezone. An empty timezone means UTC.
func (o *Opportunity) Location() (*time.Location, error) {
	if o.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(o.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", ErrInvalidInput, o.Timezone)
	}
	return loc, nil
}

// StartsAt returns the start instant, resolving the civil date and time in the opportunity's
// timezone.
func (o *Opportunity) StartsAt() (time.Time, error) {
	loc, err := o.Location()
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.ParseInLocation(DateLayout+" "+ClockLayout, o.Date+" "+o.Time, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date or time %q %q", ErrInvalidInput, o.Date, o.Time)
	}
	return t, nil
}

// EndsAt returns start + duration.
func (o *Opportunity) EndsAt() (time.Time, error) {
	start, err := o.StartsAt()
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(time.Duration(o.DurationMinutes) * time.Minute), nil
}

// CanUnregister evaluates the cancellation window at now.
func CanUnregister(o *Opportunity, now time.Time) (CancellationCheck, error) {
	start, err := o.StartsAt()
	if err != nil {
		return CancellationCheck{}, err
	}
	left := start.Sub(now)
	return CancellationCheck{
		Allowed:        left > CancellationWindow,
		HoursRemaining: left.Hours(),
	}, nil
}

// DisplayTimeRange renders the local start and end clock times, e.g. "3:00 PM - 5:30 PM".
// The end carries its date when the event runs past midnight.
func DisplayTimeRange(o *Opportunity) (string, error) {
	start, err := o.StartsAt()
	if err != nil {
		return "", err
	}
	end, err := o.EndsAt()
	if err != nil {
		return "", err
	}
	endLayout := displayClockLayout
	if end.Format(DateLayout) != start.Format(DateLayout) {
		endLayout = "Jan 2 " + displayClockLayout
	}
	return start.Format(displayClockLayout) + " - " + end.Format(endLayout), nil
}

// ValidateSchedule checks the civil schedule fields of o.
func ValidateSchedule(o *Opportunity) error {
	if _, err := time.Parse(DateLayout, o.Date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	if _, err := time.Parse(ClockLayout, o.Time); err != nil {
		return fmt.Errorf("%w: time must be HH:MM", ErrInvalidInput)
	}
	if o.DurationMinutes < 0 {
		return fmt.Errorf("%w: duration must not be negative", ErrInvalidInput)
	}
	_, err := o.StartsAt()
	return err
}
