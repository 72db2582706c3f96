package actor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/berfenger/energymon/internal/core/domain"
	"github.com/berfenger/energymon/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingSink struct {
	mu      sync.Mutex
	results []domain.CycleResult
	err     error
}

func (s *recordingSink) Publish(_ context.Context, result domain.CycleResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

func TestInfluxActor(t *testing.T) {

	logger := zap.NewNop()
	as := actorutil.NewActorSystemWithZapLogger(logger)
	rootCtx := as.Root

	es := &eventstream.EventStream{}
	sink := &recordingSink{}
	pid := rootCtx.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewInfluxActor(sink, time.Second, es, nil, logger)
	}))

	_, err := rootCtx.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(t, err)

	es.Publish(domain.ReadingEvent{Result: testCycleResult()})
	es.Publish(domain.DailySummaryEvent{})
	es.Publish(domain.ReadingEvent{Result: testCycleResult()})

	assert.Eventually(t, func() bool { return sink.count() == 2 }, 2*time.Second, 20*time.Millisecond)

	rootCtx.Stop(pid)
	as.Shutdown()
}

func TestInfluxActorWriteError(t *testing.T) {

	core, logs := observer.New(zapcore.ErrorLevel)
	logger := zap.New(core)
	as := actorutil.NewActorSystemWithZapLogger(zap.NewNop())
	rootCtx := as.Root

	es := &eventstream.EventStream{}
	sink := &recordingSink{err: errors.New("503 service unavailable")}
	pid := rootCtx.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewInfluxActor(sink, time.Second, es, nil, logger)
	}))
	_, err := rootCtx.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(t, err)

	es.Publish(domain.ReadingEvent{Result: testCycleResult()})

	assert.Eventually(t, func() bool {
		return logs.FilterMessage("influx@default could not write point").Len() == 1
	}, 2*time.Second, 20*time.Millisecond)

	// still healthy, with the error in its state
	res, err := rootCtx.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	health := res.(domain.ActorHealthResponse)
	assert.True(t, health.Healthy)
	assert.Contains(t, health.State, "503")

	rootCtx.Stop(pid)
	as.Shutdown()
}
