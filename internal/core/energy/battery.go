package energy

import (
	"math"
)

type Breakpoint struct {
	Volts   float64
	Percent float64
}

// CalibrationTable maps per-cell voltage to state of charge. Breakpoints must
// be strictly increasing in voltage.
type CalibrationTable []Breakpoint

// DefaultCalibrationTable is the per-cell lithium curve of the battery bank.
var DefaultCalibrationTable = CalibrationTable{
	{3.0, 0.0},
	{3.1, 0.8},
	{3.2, 1.2},
	{3.3, 2.0},
	{3.4, 4.0},
	{3.5, 12.0},
	{3.6, 20.0},
	{3.7, 33.0},
	{3.8, 59.0},
	{3.9, 73.0},
	{4.0, 85.0},
	{4.1, 96.0},
	{4.2, 100.0},
	{4.25, 105.0},
	{4.3, 110.0},
}

// VoltageToPercent interpolates between the first pair of breakpoints whose
// upper voltage is >= v. Values at or above the top breakpoint are unknown.
// Values below the first breakpoint are extrapolated from the first pair and
// can be negative.
func (t CalibrationTable) VoltageToPercent(v float64) (float64, bool) {
	if len(t) < 2 || v >= t[len(t)-1].Volts {
		return 0, false
	}
	for i := 1; i < len(t); i++ {
		lo, hi := t[i-1], t[i]
		if hi.Volts < v {
			continue
		}
		frac := (v - lo.Volts) / (hi.Volts - lo.Volts)
		return round10(frac*(hi.Percent-lo.Percent) + lo.Percent), true
	}
	return 0, false
}

// Valid reports whether voltages are strictly increasing.
func (t CalibrationTable) Valid() bool {
	if len(t) < 2 {
		return false
	}
	for i := 1; i < len(t); i++ {
		if t[i].Volts <= t[i-1].Volts {
			return false
		}
	}
	return true
}

// VoltageToPercent uses the default table.
func VoltageToPercent(v float64) (float64, bool) {
	return DefaultCalibrationTable.VoltageToPercent(v)
}

// PackVoltageToPercent divides the pack voltage by the cell count first.
func (t CalibrationTable) PackVoltageToPercent(packVolts float64, cells uint) (float64, bool) {
	if cells == 0 {
		return 0, false
	}
	return t.VoltageToPercent(packVolts / float64(cells))
}

func round10(v float64) float64 {
	return math.Round(v*10) / 10
}
