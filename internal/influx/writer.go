package influx

import (
	"context"
	"fmt"
	"time"

	"github.com/berfenger/energymon/internal/config"
	"github.com/berfenger/energymon/internal/core/domain"
	"github.com/berfenger/energymon/internal/core/port"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// pointWriter is satisfied by api.WriteAPIBlocking.
type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Writer stores one point per cycle. InfluxDB 1.8 is addressed through its
// 2.x compatibility API: empty org, bucket = database.
type Writer struct {
	client      influxdb2.Client
	writeAPI    pointWriter
	measurement string
	timeout     time.Duration
}

var _ port.TelemetrySink = (*Writer)(nil)

func NewWriter(cfg config.InfluxDBConfig) *Writer {
	opts := influxdb2.DefaultOptions().SetPrecision(time.Nanosecond)
	client := influxdb2.NewClientWithOptions(cfg.URL(), cfg.Token, opts)
	return &Writer{
		client:      client,
		writeAPI:    client.WriteAPIBlocking("", cfg.Database),
		measurement: cfg.Measurement,
		timeout:     cfg.Timeout(),
	}
}

func (w *Writer) Publish(ctx context.Context, result domain.CycleResult) error {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	if err := w.writeAPI.WritePoint(ctx, ResultPoint(w.measurement, result)); err != nil {
		return fmt.Errorf("%w: influxdb: %w", domain.ErrPublish, err)
	}
	return nil
}

func (w *Writer) Close() {
	if w.client != nil {
		w.client.Close()
	}
}

func ResultPoint(measurement string, r domain.CycleResult) *write.Point {
	return influxdb2.NewPoint(measurement,
		nil,
		map[string]interface{}{
			"panel_watts":  r.Reading.PanelWatts,
			"panel_kwh":    r.PanelKWh(),
			"panel_watt_s": r.PanelWattSeconds(),
			"load_watts":   r.Reading.LoadWatts,
			"load_kwh":     r.LoadKWh(),
			"load_watt_s":  r.LoadWattSeconds(),
			"batt_v":       r.Reading.BatteryVolts,
			"batt_percent": r.PublishedBatteryPercent(),
		},
		r.Time.UTC())
}
