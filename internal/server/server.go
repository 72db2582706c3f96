package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/berfenger/energymon/internal/config"
	"github.com/berfenger/energymon/internal/observability"

	"github.com/asynkron/protoactor-go/actor"
	_ "github.com/joho/godotenv/autoload"
)

// Server exposes health, status and metrics of a running monitor. Health and
// status are asked to the master actor.
type Server struct {
	port        uint
	httpLog     bool
	rootContext *actor.RootContext
	masterActor *actor.PID
	metrics     *observability.Metrics
}

// NewServer builds the HTTP server. A nil metrics disables /metrics.
func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID, metrics *observability.Metrics) *http.Server {
	s := &Server{
		port:        cfg.Port,
		httpLog:     cfg.HttpLog,
		rootContext: rootContext,
		masterActor: masterActor,
		metrics:     metrics,
	}

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.RegisterRoutes(),
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
}
