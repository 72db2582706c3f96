package energy

import (
	"time"
)

const secondsPerHour = 3600.0

// Day is a calendar day in the accumulator location.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

func DayOf(t time.Time, loc *time.Location) Day {
	y, m, d := t.In(loc).Date()
	return Day{Year: y, Month: m, Day: d}
}

func (d Day) IsZero() bool {
	return d == Day{}
}

func (d Day) String() string {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format(time.DateOnly)
}

// EnergyState holds the running daily energy totals.
type EnergyState struct {
	PanelWh float64
	LoadWh  float64
	Day     Day
}

// Accumulator integrates power samples into energy totals. It has no clock of
// its own: every call gets the previous and current capture times.
type Accumulator struct {
	Location *time.Location
}

func NewAccumulator(loc *time.Location) Accumulator {
	if loc == nil {
		loc = time.Local
	}
	return Accumulator{Location: loc}
}

func (a Accumulator) location() *time.Location {
	if a.Location == nil {
		return time.Local
	}
	return a.Location
}

// DayOf returns the local calendar day of t.
func (a Accumulator) DayOf(t time.Time) Day {
	return DayOf(t, a.location())
}

// SameDay reports whether prev and now fall on the same local calendar day.
func (a Accumulator) SameDay(prev, now time.Time) bool {
	return DayOf(prev, a.location()) == DayOf(now, a.location())
}

// Elapsed returns now-prev in seconds, never negative.
func Elapsed(prev, now time.Time) float64 {
	elapsed := now.Sub(prev).Seconds()
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Integrate adds the energy of reading over [prev, now] to state and returns
// the new state together with the elapsed seconds. If the local day changed
// between prev and now the totals are zeroed first, so the contribution
// belongs to the new day.
func (a Accumulator) Integrate(state EnergyState, r Reading, prev, now time.Time) (EnergyState, float64) {
	elapsed := Elapsed(prev, now)

	next := state
	if !a.SameDay(prev, now) {
		next.PanelWh = 0
		next.LoadWh = 0
	}
	next.Day = DayOf(now, a.location())

	next.PanelWh += WattHours(r.PanelWatts, elapsed)
	next.LoadWh += WattHours(r.LoadWatts, elapsed)
	return next, elapsed
}

func WattHours(watts, seconds float64) float64 {
	return watts * seconds / secondsPerHour
}
