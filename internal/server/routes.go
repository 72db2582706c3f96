package server

import (
	"net/http"
	"time"

	"github.com/berfenger/energymon/internal/core/domain"

	"github.com/carlmjohnson/versioninfo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type statusReading struct {
	Time           time.Time `json:"time"`
	PanelVolts     float64   `json:"panel_volts"`
	PanelAmps      float64   `json:"panel_amps"`
	PanelWatts     float64   `json:"panel_watts"`
	BatteryVolts   float64   `json:"battery_volts"`
	BatteryPercent *float64  `json:"battery_percent"`
	LoadAmps       float64   `json:"load_amps"`
	LoadWatts      float64   `json:"load_watts"`
	PanelWhToday   float64   `json:"panel_wh_today"`
	LoadWhToday    float64   `json:"load_wh_today"`
	Day            string    `json:"day"`
}

type statusResponse struct {
	Version       string         `json:"version"`
	StartedAt     time.Time      `json:"started_at"`
	Cycles        uint64         `json:"cycles"`
	SkippedCycles uint64         `json:"skipped_cycles"`
	LastError     string         `json:"last_error,omitempty"`
	Last          *statusReading `json:"last,omitempty"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/api/status", s.StatusHandler)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) StatusHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetStatusRequest{}, 5*time.Second).Result()
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "monitor not responding")
	}
	response, ok := res.(domain.GetStatusResponse)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "unexpected monitor response")
	}
	if response.HasResponseError() {
		return echo.NewHTTPError(http.StatusInternalServerError, response.GetResponseError().Error())
	}
	return c.JSON(http.StatusOK, toStatusResponse(response.Status))
}

func toStatusResponse(status domain.MonitorStatus) statusResponse {
	resp := statusResponse{
		Version:       versioninfo.Short(),
		StartedAt:     status.StartedAt,
		Cycles:        status.Cycles,
		SkippedCycles: status.SkippedCycles,
		LastError:     status.LastError,
	}
	if last := status.Last; last != nil {
		reading := &statusReading{
			Time:         last.Time,
			PanelVolts:   last.Reading.PanelVolts,
			PanelAmps:    last.Reading.PanelAmps,
			PanelWatts:   last.Reading.PanelWatts,
			BatteryVolts: last.Reading.BatteryVolts,
			LoadAmps:     last.Reading.LoadAmps,
			LoadWatts:    last.Reading.LoadWatts,
			PanelWhToday: last.State.PanelWh,
			LoadWhToday:  last.State.LoadWh,
			Day:          last.State.Day.String(),
		}
		// null when the voltage is off the calibration table
		if last.BatteryPercentKnown {
			percent := last.BatteryPercent
			reading.BatteryPercent = &percent
		}
		resp.Last = reading
	}
	return resp
}
