package observability

import (
	"net/http"
	"time"

	"github.com/berfenger/energymon/internal/core/domain"
	"github.com/berfenger/energymon/pkg/epever_modbus"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	SKIP_REASON_TRANSPORT    = "transport"
	SKIP_REASON_OUT_OF_RANGE = "out_of_range"
	SINK_MQTT                = "mqtt"
	SINK_INFLUXDB            = "influxdb"
)

// Metrics methods are no-ops on a nil receiver.
type Metrics struct {
	gatherer prometheus.Gatherer

	cycles            prometheus.Counter
	skippedCycles     *prometheus.CounterVec
	modbusDuration    *prometheus.HistogramVec
	modbusErrors      *prometheus.CounterVec
	publishErrors     *prometheus.CounterVec
	persistenceErrors prometheus.Counter

	panelWatts     prometheus.Gauge
	loadWatts      prometheus.Gauge
	batteryVolts   prometheus.Gauge
	batteryPercent prometheus.Gauge
	panelWhToday   prometheus.Gauge
	loadWhToday    prometheus.Gauge
}

func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

func NewMetricsWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		gatherer: gatherer,
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "energymon_cycles_total",
			Help: "Completed monitor cycles.",
		}),
		skippedCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "energymon_cycles_skipped_total",
			Help: "Skipped monitor cycles by reason.",
		}, []string{"reason"}),
		modbusDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "energymon_modbus_read_duration_seconds",
			Help:    "Histogram of Modbus read durations.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"fn"}),
		modbusErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "energymon_modbus_errors_total",
			Help: "Failed Modbus reads.",
		}, []string{"fn"}),
		publishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "energymon_publish_errors_total",
			Help: "Failed telemetry writes by sink.",
		}, []string{"sink"}),
		persistenceErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "energymon_persistence_errors_total",
			Help: "Failed writes of the energy totals.",
		}),
		panelWatts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "energymon_panel_watts",
			Help: "Last panel power (W).",
		}),
		loadWatts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "energymon_load_watts",
			Help: "Last load power (W).",
		}),
		batteryVolts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "energymon_battery_volts",
			Help: "Last battery pack voltage (V).",
		}),
		batteryPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "energymon_battery_percent",
			Help: "Last battery state of charge (%), 0 if unknown.",
		}),
		panelWhToday: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "energymon_panel_wh_today",
			Help: "Panel energy since local midnight (Wh).",
		}),
		loadWhToday: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "energymon_load_wh_today",
			Help: "Load energy since local midnight (Wh).",
		}),
	}

	reg.MustRegister(
		m.cycles,
		m.skippedCycles,
		m.modbusDuration,
		m.modbusErrors,
		m.publishErrors,
		m.persistenceErrors,
		m.panelWatts,
		m.loadWatts,
		m.batteryVolts,
		m.batteryPercent,
		m.panelWhToday,
		m.loadWhToday,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) CycleCompleted(r domain.CycleResult) {
	if m == nil {
		return
	}
	m.cycles.Inc()
	m.panelWatts.Set(r.Reading.PanelWatts)
	m.loadWatts.Set(r.Reading.LoadWatts)
	m.batteryVolts.Set(r.Reading.BatteryVolts)
	m.batteryPercent.Set(r.PublishedBatteryPercent())
	m.panelWhToday.Set(r.State.PanelWh)
	m.loadWhToday.Set(r.State.LoadWh)
}

func (m *Metrics) CycleSkipped(reason string) {
	if m == nil {
		return
	}
	m.skippedCycles.WithLabelValues(reason).Inc()
}

func (m *Metrics) PublishFailed(sink string) {
	if m == nil {
		return
	}
	m.publishErrors.WithLabelValues(sink).Inc()
}

func (m *Metrics) PersistenceFailed() {
	if m == nil {
		return
	}
	m.persistenceErrors.Inc()
}

// ModbusInstrument records read timings and errors of the charge controller reader.
func (m *Metrics) ModbusInstrument() *epever_modbus.ModbusInstrument {
	if m == nil {
		return nil
	}
	return &epever_modbus.ModbusInstrument{
		RecordTime: func(fnName string, readTime time.Duration) {
			m.modbusDuration.WithLabelValues(fnName).Observe(readTime.Seconds())
		},
		RecordErr: func(fnName string, _ error) {
			m.modbusErrors.WithLabelValues(fnName).Inc()
		},
	}
}
