package port

import (
	"context"
	"time"

	"github.com/berfenger/energymon/internal/core/domain"
	"github.com/berfenger/energymon/internal/core/energy"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// StoredEnergy is what the energy store read back at start up.
type StoredEnergy struct {
	PanelWh float64
	LoadWh  float64
	// zero if nothing was stored
	ModTime time.Time
}

type EnergyStore interface {
	Load() (StoredEnergy, error)
	Save(panelWh, loadWh float64) error
}

// TelemetrySink receives every completed cycle.
type TelemetrySink interface {
	Publish(ctx context.Context, result domain.CycleResult) error
}

// CycleLogic turns a raw sample taken at now into a cycle result, given the
// totals and capture time of the previous cycle.
type CycleLogic interface {
	Run(state energy.EnergyState, sample energy.RawSample, prev, now time.Time) (domain.CycleResult, error)
	// Restore returns the totals to resume from and whether stored was kept.
	Restore(stored StoredEnergy, now time.Time) (energy.EnergyState, bool)
	// Skip moves past a rejected interval without crediting any energy. A
	// summary is returned if the interval crossed into a new local day.
	Skip(state energy.EnergyState, prev, now time.Time) (energy.EnergyState, *domain.DailySummary)
}
