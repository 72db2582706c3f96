package energy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testLocation = time.FixedZone("UTC+2", 2*60*60)

func TestIntegrateSameDay(t *testing.T) {

	acc := NewAccumulator(testLocation)
	prev := time.Date(2024, 6, 1, 12, 0, 0, 0, testLocation)
	now := prev.Add(90 * time.Second)

	state := EnergyState{PanelWh: 10, LoadWh: 4, Day: DayOf(prev, testLocation)}
	next, elapsed := acc.Integrate(state, Reading{PanelWatts: 200, LoadWatts: 40}, prev, now)

	assert.Equal(t, 90.0, elapsed)
	assert.InDelta(t, 10+200*90.0/3600, next.PanelWh, 1e-12)
	assert.InDelta(t, 4+40*90.0/3600, next.LoadWh, 1e-12)
	assert.Equal(t, state.Day, next.Day)
}

func TestIntegrateScenario(t *testing.T) {

	r, err := Convert(RawSample{BatteryVoltageX100: 1248, PanelVoltageX100: 1850, PanelCurrentX100: 620, LoadCurrentX100: 210})
	assert.NoError(t, err)

	acc := NewAccumulator(testLocation)
	prev := time.Date(2024, 6, 1, 9, 30, 0, 0, testLocation)
	now := prev.Add(800 * time.Millisecond)

	next, elapsed := acc.Integrate(EnergyState{}, r, prev, now)

	assert.InDelta(t, 0.8, elapsed, 1e-9)
	assert.InDelta(t, 0.0255, next.PanelWh, 1e-4)
	assert.InDelta(t, 0.00584, next.LoadWh, 1e-5)
}

func TestIntegrateDayRollover(t *testing.T) {

	acc := NewAccumulator(testLocation)
	prev := time.Date(2024, 6, 1, 23, 59, 59, 500_000_000, testLocation)
	now := prev.Add(800 * time.Millisecond)

	state := EnergyState{PanelWh: 1234.5, LoadWh: 678.9, Day: DayOf(prev, testLocation)}
	next, elapsed := acc.Integrate(state, Reading{PanelWatts: 100, LoadWatts: 50}, prev, now)

	assert.InDelta(t, 100*elapsed/3600, next.PanelWh, 1e-12, "only the new increment remains")
	assert.InDelta(t, 50*elapsed/3600, next.LoadWh, 1e-12, "only the new increment remains")
	assert.Equal(t, Day{2024, time.June, 2}, next.Day)
}

func TestIntegrateRolloverUsesLocation(t *testing.T) {

	// 22:30 UTC is already the next day at UTC+2
	prev := time.Date(2024, 6, 1, 21, 0, 0, 0, time.UTC)
	now := time.Date(2024, 6, 1, 22, 30, 0, 0, time.UTC)
	state := EnergyState{PanelWh: 50, LoadWh: 50}

	utc, _ := NewAccumulator(time.UTC).Integrate(state, Reading{}, prev, now)
	assert.Equal(t, 50.0, utc.PanelWh)

	local, _ := NewAccumulator(testLocation).Integrate(state, Reading{}, prev, now)
	assert.Equal(t, 0.0, local.PanelWh)
	assert.Equal(t, 0.0, local.LoadWh)
}

func TestIntegrateNegativeElapsed(t *testing.T) {

	acc := NewAccumulator(testLocation)
	prev := time.Date(2024, 6, 1, 12, 0, 10, 0, testLocation)
	now := prev.Add(-5 * time.Second)

	state := EnergyState{PanelWh: 7, LoadWh: 3, Day: DayOf(prev, testLocation)}
	next, elapsed := acc.Integrate(state, Reading{PanelWatts: 300, LoadWatts: 300}, prev, now)

	assert.Equal(t, 0.0, elapsed)
	assert.GreaterOrEqual(t, next.PanelWh, state.PanelWh)
	assert.GreaterOrEqual(t, next.LoadWh, state.LoadWh)
}

func TestIntegrateIsPure(t *testing.T) {

	acc := NewAccumulator(testLocation)
	prev := time.Date(2024, 6, 1, 12, 0, 0, 0, testLocation)
	now := prev.Add(time.Second)
	state := EnergyState{PanelWh: 1, LoadWh: 1}
	r := Reading{PanelWatts: 36, LoadWatts: 72}

	a, _ := acc.Integrate(state, r, prev, now)
	b, _ := acc.Integrate(state, r, prev, now)

	assert.Equal(t, a, b)
	assert.Equal(t, EnergyState{PanelWh: 1, LoadWh: 1}, state, "input state untouched")
}

func TestDayString(t *testing.T) {
	assert.Equal(t, "2024-06-02", Day{2024, time.June, 2}.String())
	assert.True(t, Day{}.IsZero())
}
