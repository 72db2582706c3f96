package energy

import (
	"fmt"
)

const (
	// raw registers are fixed point, value x100
	RegisterScale = 100.0

	// BatteryVoltageOffset compensates a known sensor offset (x100 units, +0.04 V)
	BatteryVoltageOffset uint16 = 4
	// PanelCurrentNoiseFloor: panel current readings below it (x100 units, 0.05 A) are reported as 0
	PanelCurrentNoiseFloor uint16 = 5

	MaxPanelWatts   = 400.0
	MinBatteryVolts = 2.8 * 4
	MaxLoadWatts    = 400.0
)

// RawSample is a snapshot of the charge controller registers.
type RawSample struct {
	BatteryVoltageX100 uint16
	PanelVoltageX100   uint16
	PanelCurrentX100   uint16
	LoadCurrentX100    uint16
	// state of charge as reported by the controller. Informational only
	ControllerSoC uint16
}

// Reading holds the physical quantities derived from a RawSample.
type Reading struct {
	PanelVolts   float64
	PanelAmps    float64
	PanelWatts   float64
	BatteryVolts float64
	LoadAmps     float64
	LoadWatts    float64
}

// Converter turns raw samples into validated readings.
type Converter struct {
	BatteryOffset   uint16
	PanelNoiseFloor uint16
	MaxPanelWatts   float64
	MinBatteryVolts float64
	MaxLoadWatts    float64
}

func DefaultConverter() Converter {
	return Converter{
		BatteryOffset:   BatteryVoltageOffset,
		PanelNoiseFloor: PanelCurrentNoiseFloor,
		MaxPanelWatts:   MaxPanelWatts,
		MinBatteryVolts: MinBatteryVolts,
		MaxLoadWatts:    MaxLoadWatts,
	}
}

// Convert applies the default corrections and limits.
func Convert(raw RawSample) (Reading, error) {
	return DefaultConverter().Convert(raw)
}

// Convert corrects the raw values, derives power and validates the result.
// Corrections are applied before the range check.
func (c Converter) Convert(raw RawSample) (Reading, error) {
	batteryX100 := uint32(raw.BatteryVoltageX100) + uint32(c.BatteryOffset)
	panelCurrentX100 := raw.PanelCurrentX100
	if panelCurrentX100 < c.PanelNoiseFloor {
		panelCurrentX100 = 0
	}

	r := Reading{
		PanelVolts:   scale(uint32(raw.PanelVoltageX100)),
		PanelAmps:    scale(uint32(panelCurrentX100)),
		BatteryVolts: scale(batteryX100),
		LoadAmps:     scale(uint32(raw.LoadCurrentX100)),
	}
	r.PanelWatts = r.PanelVolts * r.PanelAmps
	// load is drawn at battery voltage
	r.LoadWatts = r.BatteryVolts * r.LoadAmps

	if !c.valid(r) {
		return Reading{}, fmt.Errorf("%w: panel %.2fW, battery %.2fV, load %.2fW",
			ErrOutOfRange, r.PanelWatts, r.BatteryVolts, r.LoadWatts)
	}
	return r, nil
}

func (c Converter) valid(r Reading) bool {
	return r.PanelWatts < c.MaxPanelWatts && r.BatteryVolts > c.MinBatteryVolts && r.LoadWatts < c.MaxLoadWatts
}

func scale(v uint32) float64 {
	return float64(v) / RegisterScale
}
