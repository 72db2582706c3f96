package service

import (
	"time"

	"github.com/berfenger/energymon/internal/core/domain"
	"github.com/berfenger/energymon/internal/core/energy"
	"github.com/berfenger/energymon/internal/core/port"
)

const DefaultCellCount = 4

// DefaultCycleLogic converts, validates and integrates one sample and maps the
// battery voltage to a state of charge.
type DefaultCycleLogic struct {
	Converter   energy.Converter
	Accumulator energy.Accumulator
	Table       energy.CalibrationTable
	CellCount   uint
}

func NewDefaultCycleLogic(loc *time.Location, cellCount uint) *DefaultCycleLogic {
	if cellCount == 0 {
		cellCount = DefaultCellCount
	}
	return &DefaultCycleLogic{
		Converter:   energy.DefaultConverter(),
		Accumulator: energy.NewAccumulator(loc),
		Table:       energy.DefaultCalibrationTable,
		CellCount:   cellCount,
	}
}

func (l *DefaultCycleLogic) Run(state energy.EnergyState, sample energy.RawSample, prev, now time.Time) (domain.CycleResult, error) {

	reading, err := l.Converter.Convert(sample)
	if err != nil {
		return domain.CycleResult{}, err
	}

	ended := l.endedDay(state, prev, now)

	next, elapsed := l.Accumulator.Integrate(state, reading, prev, now)

	percent, known := l.Table.PackVoltageToPercent(reading.BatteryVolts, l.CellCount)

	return domain.CycleResult{
		Time:                now,
		ElapsedSeconds:      elapsed,
		Reading:             reading,
		State:               next,
		BatteryPercent:      percent,
		BatteryPercentKnown: known,
		EndedDay:            ended,
	}, nil
}

// Restore rebuilds the running totals read back from the store at now. Totals
// last written on another local day are discarded.
func (l *DefaultCycleLogic) Restore(stored port.StoredEnergy, now time.Time) (energy.EnergyState, bool) {
	state := energy.EnergyState{Day: l.Accumulator.DayOf(now)}
	if !stored.ModTime.IsZero() && !l.Accumulator.SameDay(stored.ModTime, now) {
		return state, false
	}
	state.PanelWh = stored.PanelWh
	state.LoadWh = stored.LoadWh
	return state, true
}

func (l *DefaultCycleLogic) Skip(state energy.EnergyState, prev, now time.Time) (energy.EnergyState, *domain.DailySummary) {
	ended := l.endedDay(state, prev, now)
	if ended == nil {
		return state, nil
	}
	return energy.EnergyState{Day: l.Accumulator.DayOf(now)}, ended
}

func (l *DefaultCycleLogic) endedDay(state energy.EnergyState, prev, now time.Time) *domain.DailySummary {
	if l.Accumulator.SameDay(prev, now) {
		return nil
	}
	day := state.Day
	if day.IsZero() {
		day = l.Accumulator.DayOf(prev)
	}
	return &domain.DailySummary{
		Day:     day,
		PanelWh: state.PanelWh,
		LoadWh:  state.LoadWh,
	}
}

// ensure interface compliance
var _ port.CycleLogic = (*DefaultCycleLogic)(nil)
