package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/berfenger/energymon/internal/core/domain"
	"github.com/berfenger/energymon/internal/core/energy"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func newTestMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	return NewMetricsWithRegistry(reg, reg)
}

func TestCycleMetrics(t *testing.T) {

	m := newTestMetrics()

	m.CycleCompleted(domain.CycleResult{
		Reading: energy.Reading{PanelWatts: 114.7, LoadWatts: 26.292, BatteryVolts: 12.52},
		State:   energy.EnergyState{PanelWh: 10, LoadWh: 2},
	})
	m.CycleSkipped(SKIP_REASON_TRANSPORT)
	m.CycleSkipped(SKIP_REASON_TRANSPORT)
	m.CycleSkipped(SKIP_REASON_OUT_OF_RANGE)
	m.PublishFailed(SINK_INFLUXDB)
	m.PersistenceFailed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles))
	assert.Equal(t, 114.7, testutil.ToFloat64(m.panelWatts))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.batteryPercent))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.panelWhToday))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.skippedCycles.WithLabelValues(SKIP_REASON_TRANSPORT)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skippedCycles.WithLabelValues(SKIP_REASON_OUT_OF_RANGE)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishErrors.WithLabelValues(SINK_INFLUXDB)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.persistenceErrors))
}

func TestModbusInstrument(t *testing.T) {

	m := newTestMetrics()
	inst := m.ModbusInstrument()

	inst.RecordTime("ReadRegister", 20*time.Millisecond)
	inst.RecordErr("ReadRegister", errors.New("timeout"))

	assert.Equal(t, 1, testutil.CollectAndCount(m.modbusDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.modbusErrors.WithLabelValues("ReadRegister")))
}

func TestNilMetrics(t *testing.T) {

	var m *Metrics
	assert.NotPanics(t, func() {
		m.CycleCompleted(domain.CycleResult{})
		m.CycleSkipped(SKIP_REASON_TRANSPORT)
		m.PublishFailed(SINK_MQTT)
		m.PersistenceFailed()
	})
	assert.Nil(t, m.ModbusInstrument())
}

func TestHandler(t *testing.T) {

	m := newTestMetrics()
	m.CycleSkipped(SKIP_REASON_OUT_OF_RANGE)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `energymon_cycles_skipped_total{reason="out_of_range"} 1`)
}
