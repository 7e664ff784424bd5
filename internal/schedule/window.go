// Package schedule turns the date and clock strings used by clients into the
// start and end instants stored for a live class.
package schedule

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Kind classifies why a window was rejected.
type Kind string

const (
	KindPastStart      Kind = "past_start"
	KindEndBeforeStart Kind = "end_before_start"
	KindInvalidFormat  Kind = "invalid_format"
)

// ValidationError is returned when a reconciled window cannot be accepted.
type ValidationError struct {
	Kind  Kind
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindPastStart:
		return "class cannot start in the past"
	case KindEndBeforeStart:
		return "class cannot end before it starts"
	default:
		return fmt.Sprintf("%s has an invalid value %q", e.Field, e.Value)
	}
}

// Window is the schedule of a live class expressed both as the boundary strings
// and as the derived instants.
type Window struct {
	StartDate string    `json:"start_date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Start     time.Time `json:"start_at"`
	End       time.Time `json:"end_at"`
}

// Patch carries the schedule fields of an update. A nil field is absent.
type Patch struct {
	StartDate *string
	StartTime *string
	EndTime   *string
}

// Presence records which schedule fields a patch carries.
type Presence struct {
	StartDate bool
	StartTime bool
	EndTime   bool
}

// Any reports whether at least one schedule field is present.
func (p Presence) Any() bool {
	return p.StartDate || p.StartTime || p.EndTime
}

// All reports whether every schedule field is present.
func (p Presence) All() bool {
	return p.StartDate && p.StartTime && p.EndTime
}

// Presence classifies the patch.
func (p Patch) Presence() Presence {
	return Presence{
		StartDate: p.StartDate != nil,
		StartTime: p.StartTime != nil,
		EndTime:   p.EndTime != nil,
	}
}

// FromInstants rebuilds the boundary strings of a persisted window. The end
// clock is read on its own; the stored end always shares the start's date.
func FromInstants(start, end time.Time, loc *time.Location) Window {
	if loc == nil {
		loc = time.Local
	}
	start = start.In(loc)
	end = end.In(loc)
	return Window{
		StartDate: start.Format(DateLayout),
		StartTime: start.Format(ClockLayout),
		EndTime:   end.Format(ClockLayout),
		Start:     start,
		End:       end,
	}
}

// Reconcile merges patch into existing and validates the result against now.
// Absent fields inherit the existing value. When the patch carries no schedule
// field the existing window is returned untouched and nothing is validated.
func Reconcile(existing Window, patch Patch, now time.Time, loc *time.Location) (Window, error) {
	if !patch.Presence().Any() {
		return existing, nil
	}
	if loc == nil {
		loc = time.Local
	}

	resolved := Window{
		StartDate: resolve(patch.StartDate, existing.StartDate),
		StartTime: resolve(patch.StartTime, existing.StartTime),
		EndTime:   resolve(patch.EndTime, existing.EndTime),
	}

	start, err := combine(resolved.StartDate, resolved.StartTime, "start_time", loc)
	if err != nil {
		return Window{}, err
	}
	// The model has no end date, so the end clock is pinned to the start date.
	end, err := combine(resolved.StartDate, resolved.EndTime, "end_time", loc)
	if err != nil {
		return Window{}, err
	}

	if start.Before(now) {
		return Window{}, &ValidationError{Kind: KindPastStart, Field: "start_date", Value: start.Format(time.RFC3339)}
	}
	if end.Before(start) {
		return Window{}, &ValidationError{Kind: KindEndBeforeStart, Field: "end_time", Value: end.Format(time.RFC3339)}
	}

	resolved.Start = start
	resolved.End = end
	return resolved, nil
}

// New builds a window for a class that does not exist yet; every field is required.
func New(startDate, startTime, endTime string, now time.Time, loc *time.Location) (Window, error) {
	return Reconcile(Window{}, Patch{StartDate: &startDate, StartTime: &startTime, EndTime: &endTime}, now, loc)
}

func resolve(patched *string, existing string) string {
	if patched != nil {
		return strings.TrimSpace(*patched)
	}
	return existing
}

func combine(date, clock, clockField string, loc *time.Location) (time.Time, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return time.Time{}, &ValidationError{Kind: KindInvalidFormat, Field: "start_date", Value: date}
	}
	if _, err := time.Parse(ClockLayout, clock); err != nil {
		return time.Time{}, &ValidationError{Kind: KindInvalidFormat, Field: clockField, Value: clock}
	}
	return time.ParseInLocation(DateLayout+" "+ClockLayout, date+" "+clock, loc)
}
