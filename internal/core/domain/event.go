package domain

import (
	"time"

	"github.com/berfenger/energymon/internal/core/energy"
)

// CycleResult is a validated reading with its capture time, the interval since
// the previous capture and the running totals after integrating it.
type CycleResult struct {
	Time           time.Time
	ElapsedSeconds float64
	Reading        energy.Reading
	State          energy.EnergyState

	// Valid only if BatteryPercentKnown
	BatteryPercent      float64
	BatteryPercentKnown bool

	// set when this cycle started a new day
	EndedDay *DailySummary
}

func (c CycleResult) PanelWattSeconds() float64 {
	return c.Reading.PanelWatts * c.ElapsedSeconds
}

func (c CycleResult) LoadWattSeconds() float64 {
	return c.Reading.LoadWatts * c.ElapsedSeconds
}

func (c CycleResult) PanelKWh() float64 {
	return c.State.PanelWh / 1000
}

func (c CycleResult) LoadKWh() float64 {
	return c.State.LoadWh / 1000
}

// PublishedBatteryPercent is the percent sent to telemetry; unknown is sent as 0.
func (c CycleResult) PublishedBatteryPercent() float64 {
	if !c.BatteryPercentKnown {
		return 0
	}
	return c.BatteryPercent
}

// DailySummary holds the totals of a day that has just ended.
type DailySummary struct {
	Day     energy.Day
	PanelWh float64
	LoadWh  float64
}

// ReadingEvent is published on the event stream after every successful cycle.
type ReadingEvent struct {
	Result CycleResult
}

// DailySummaryEvent is published once per day rollover.
type DailySummaryEvent struct {
	Summary DailySummary
}

type MonitorStatus struct {
	Last          *CycleResult
	Cycles        uint64
	SkippedCycles uint64
	LastError     string
	StartedAt     time.Time
}
