package influx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/berfenger/energymon/internal/config"
	"github.com/berfenger/energymon/internal/core/domain"
	"github.com/berfenger/energymon/internal/core/energy"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResult() domain.CycleResult {
	reading, _ := energy.Convert(energy.RawSample{
		BatteryVoltageX100: 1248,
		PanelVoltageX100:   1850,
		PanelCurrentX100:   620,
		LoadCurrentX100:    210,
	})
	return domain.CycleResult{
		Time:                time.Date(2024, 6, 1, 14, 0, 0, 0, time.FixedZone("CEST", 2*3600)),
		ElapsedSeconds:      0.8,
		Reading:             reading,
		State:               energy.EnergyState{PanelWh: 500, LoadWh: 100},
		BatteryPercent:      44.7,
		BatteryPercentKnown: true,
	}
}

func fields(p *write.Point) map[string]any {
	m := map[string]any{}
	for _, f := range p.FieldList() {
		m[f.Key] = f.Value
	}
	return m
}

func TestResultPoint(t *testing.T) {

	assert := assert.New(t)

	p := ResultPoint("energy", testResult())

	assert.Equal("energy", p.Name())
	assert.Empty(p.TagList())
	assert.Equal(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), p.Time())

	f := fields(p)
	assert.Len(f, 8)
	assert.InDelta(114.7, f["panel_watts"], 1e-9)
	assert.InDelta(0.5, f["panel_kwh"], 1e-9)
	assert.InDelta(114.7*0.8, f["panel_watt_s"], 1e-9)
	assert.InDelta(26.292, f["load_watts"], 1e-9)
	assert.InDelta(0.1, f["load_kwh"], 1e-9)
	assert.InDelta(26.292*0.8, f["load_watt_s"], 1e-9)
	assert.InDelta(12.52, f["batt_v"], 1e-9)
	assert.InDelta(44.7, f["batt_percent"], 1e-9)
}

func TestResultPointUnknownPercent(t *testing.T) {
	r := testResult()
	r.BatteryPercentKnown = false
	assert.Equal(t, 0.0, fields(ResultPoint("energy", r))["batt_percent"])
}

type fakeWriter struct {
	points []*write.Point
	err    error
	ctx    context.Context
}

func (w *fakeWriter) WritePoint(ctx context.Context, point ...*write.Point) error {
	w.ctx = ctx
	w.points = append(w.points, point...)
	return w.err
}

func TestPublishAppliesTimeout(t *testing.T) {

	fw := &fakeWriter{}
	w := &Writer{writeAPI: fw, measurement: "energy", timeout: time.Second}

	require.NoError(t, w.Publish(context.Background(), testResult()))
	require.Len(t, fw.points, 1)
	_, hasDeadline := fw.ctx.Deadline()
	assert.True(t, hasDeadline)
}

func TestPublishWrapsError(t *testing.T) {

	fw := &fakeWriter{err: errors.New("connection refused")}
	w := &Writer{writeAPI: fw, measurement: "energy", timeout: time.Second}

	err := w.Publish(context.Background(), testResult())
	assert.ErrorIs(t, err, domain.ErrPublish)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWriterAgainstHTTPServer(t *testing.T) {

	var mu sync.Mutex
	var body string
	var query url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		body = string(b)
		query = r.URL.Query()
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, _ := strings.Cut(u.Host, ":")
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	w := NewWriter(config.InfluxDBConfig{
		Host:          host,
		Port:          port,
		Database:      "energy",
		Measurement:   "energy",
		TimeoutMillis: 2000,
	})
	defer w.Close()

	require.NoError(t, w.Publish(context.Background(), testResult()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "energy", query.Get("bucket"))
	assert.True(t, strings.HasPrefix(body, "energy "), body)
	assert.Contains(t, body, "batt_v=12.52")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(body), strconv.FormatInt(testResult().Time.UnixNano(), 10)))
}
