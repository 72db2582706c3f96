package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/berfenger/energymon/internal/core/domain"
	"github.com/berfenger/energymon/internal/core/port"
	"github.com/berfenger/energymon/internal/observability"
	"github.com/berfenger/energymon/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

const INFLUX_DEFAULT_TIMEOUT = 5 * time.Second

// InfluxActor writes one point per ReadingEvent. Writes are not retried.
type InfluxActor struct {
	behavior     actor.Behavior
	sink         port.TelemetrySink
	timeout      time.Duration
	eventStream  *eventstream.EventStream
	subscription *eventstream.Subscription
	metrics      *observability.Metrics
	lastError    error
	logger       *zap.Logger
}

type influxWriteResult struct {
	Error error
}

func NewInfluxActor(sink port.TelemetrySink, timeout time.Duration, eventStream *eventstream.EventStream,
	metrics *observability.Metrics, logger *zap.Logger) *InfluxActor {
	if timeout <= 0 {
		timeout = INFLUX_DEFAULT_TIMEOUT
	}
	act := &InfluxActor{
		sink:        sink,
		timeout:     timeout,
		eventStream: eventStream,
		metrics:     metrics,
		behavior:    actor.NewBehavior(),
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_INFLUX, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *InfluxActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *InfluxActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("influx@default started")
		self := ctx.Self()
		root := ctx.ActorSystem().Root
		state.subscription = state.eventStream.SubscribeWithPredicate(func(evt any) {
			root.Send(self, evt)
		}, func(evt any) bool {
			_, ok := evt.(domain.ReadingEvent)
			return ok
		})
	case *actor.Restarting, *actor.Stopping:
		if state.subscription != nil {
			state.eventStream.Unsubscribe(state.subscription)
			state.subscription = nil
		}
	case domain.ActorHealthRequest:
		status := "idle"
		if state.lastError != nil {
			status = fmt.Sprintf("last write failed: %s", state.lastError)
		}
		// a failing store loses points but does not stop monitoring
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_INFLUX,
			Healthy: true,
			State:   status,
		})
	case domain.ReadingEvent:
		result := msg.Result
		actorutil.NewBackgroundTaskNoError(ctx, func() *influxWriteResult {
			return &influxWriteResult{Error: state.sink.Publish(context.Background(), result)}
		}).WithTimeout(state.timeout).Recover(func(err error) influxWriteResult {
			return influxWriteResult{Error: fmt.Errorf("%w: influxdb: %w", domain.ErrPublish, err)}
		}).PipeTo(ctx.Self())
	case influxWriteResult:
		state.lastError = msg.Error
		if msg.Error != nil {
			state.metrics.PublishFailed(observability.SINK_INFLUXDB)
			state.logger.Error("influx@default could not write point", zap.Error(msg.Error))
		}
	default:
		state.logger.Debug("influx@default ignored", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}
