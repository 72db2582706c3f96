package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/energymon/internal/core/domain"
	"github.com/berfenger/energymon/internal/core/energy"
	"github.com/berfenger/energymon/internal/core/port"
	"github.com/berfenger/energymon/internal/observability"
	. "github.com/berfenger/energymon/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// MONITOR_STALE_AFTER without a completed cycle marks the monitor unhealthy.
const MONITOR_STALE_AFTER = time.Minute

type MonitorActorConfig struct {
	PollInterval   time.Duration
	RequestTimeout time.Duration
	ModbusActor    *actor.PID
	EventStream    *eventstream.EventStream
	Logic          port.CycleLogic
	Store          port.EnergyStore
	Clock          port.Clock
	Metrics        *observability.Metrics
}

// MonitorActor owns the energy totals. One cycle at a time: request a sample,
// run it through the cycle logic, publish, persist, schedule the next tick.
type MonitorActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	cfg    MonitorActorConfig
	energy energy.EnergyState
	// capture time of the last sample that was read back, valid or not
	prev   time.Time
	status domain.MonitorStatus

	logger *zap.Logger
}

type monitorTick struct {
}

func NewMonitorActor(cfg MonitorActorConfig, logger *zap.Logger) *MonitorActor {
	if cfg.Clock == nil {
		cfg.Clock = port.SystemClock{}
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	act := &MonitorActor{
		cfg:      cfg,
		behavior: actor.NewBehavior(),
		stash:    &Stash{},
		logger:   ActorLogger(domain.ACTOR_ID_MONITOR, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MonitorActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MonitorActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("monitor@starting started")
		now := state.cfg.Clock.Now()
		state.prev = now
		state.status.StartedAt = now
		state.restore(now)

		state.scheduler = scheduler.NewTimerScheduler(ctx)
		ctx.Send(ctx.Self(), monitorTick{})

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("monitor@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MonitorActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("monitor@default: ActorHealthRequest")
		ctx.Respond(state.health("idle"))
	case domain.GetStatusRequest:
		ForRequest(msg).Respond(ctx, domain.GetStatusResponse{Status: state.snapshotStatus()})
	case monitorTick:
		state.logger.Debug("monitor@default tick")
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.cfg.ModbusActor, domain.GetSampleRequest{}, state.cfg.RequestTimeout), func(err error) any {
			return domain.GetSampleResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: fmt.Errorf("%w: %w", domain.ErrTransport, err),
				},
			}
		})
		state.behavior.BecomeStacked(state.WaitingSampleReceive)
	default:
		state.logger.Debug("monitor@default: ignored", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MonitorActor) WaitingSampleReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetSampleResponse:
		if msg.HasResponseError() || msg.Sample == nil {
			err := msg.GetResponseError()
			if err == nil {
				err = fmt.Errorf("%w: empty sample", domain.ErrTransport)
			}
			state.skip(observability.SKIP_REASON_TRANSPORT, err)
		} else {
			state.runCycle(*msg.Sample)
		}

		// schedule next tick
		state.scheduler.RequestOnce(state.cfg.PollInterval, ctx.Self(), monitorTick{})
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		ctx.Respond(state.health("sampling"))
	case domain.GetStatusRequest:
		ForRequest(msg).Respond(ctx, domain.GetStatusResponse{Status: state.snapshotStatus()})
	case actor.SystemMessage, actor.AutoReceiveMessage:
	default:
		state.logger.Debug("monitor@waiting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MonitorActor) restore(now time.Time) {
	if state.cfg.Store == nil {
		state.energy, _ = state.cfg.Logic.Restore(port.StoredEnergy{}, now)
		return
	}
	stored, err := state.cfg.Store.Load()
	if err != nil {
		state.logger.Error("monitor@starting could not load energy totals", zap.Error(err))
	}
	restored, kept := state.cfg.Logic.Restore(stored, now)
	if !kept {
		state.logger.Info("monitor@starting discarding totals from a previous day",
			zap.Time("stored_at", stored.ModTime), zap.Float64("panel_wh", stored.PanelWh), zap.Float64("load_wh", stored.LoadWh))
	}
	state.energy = restored
	state.logger.Info("monitor@starting energy totals", zap.Float64("panel_wh", state.energy.PanelWh),
		zap.Float64("load_wh", state.energy.LoadWh), zap.Stringer("day", state.energy.Day))
}

func (state *MonitorActor) endDay(summary domain.DailySummary) {
	state.logger.Info("monitor@cycle day ended", zap.Stringer("day", summary.Day),
		zap.Float64("panel_wh", summary.PanelWh), zap.Float64("load_wh", summary.LoadWh))
	state.publish(domain.DailySummaryEvent{Summary: summary})
}

func (state *MonitorActor) persist() {
	if state.cfg.Store == nil {
		return
	}
	if err := state.cfg.Store.Save(state.energy.PanelWh, state.energy.LoadWh); err != nil {
		state.cfg.Metrics.PersistenceFailed()
		state.logger.Error("monitor@cycle could not persist energy totals", zap.Error(err))
	}
}

func (state *MonitorActor) runCycle(sample energy.RawSample) {
	now := state.cfg.Clock.Now()
	result, err := state.cfg.Logic.Run(state.energy, sample, state.prev, now)
	if errors.Is(err, energy.ErrOutOfRange) {
		// the rejected interval is not credited to the next sample
		next, ended := state.cfg.Logic.Skip(state.energy, state.prev, now)
		state.prev = now
		if ended != nil {
			state.energy = next
			state.endDay(*ended)
			state.persist()
		}
		state.skip(observability.SKIP_REASON_OUT_OF_RANGE, err)
		return
	}
	if err != nil {
		state.skip(observability.SKIP_REASON_TRANSPORT, err)
		return
	}

	state.energy = result.State
	state.prev = now

	if result.EndedDay != nil {
		state.endDay(*result.EndedDay)
	}
	state.publish(domain.ReadingEvent{Result: result})
	state.persist()

	state.cfg.Metrics.CycleCompleted(result)
	state.status.Cycles++
	state.status.LastError = ""
	state.status.Last = &result

	state.logger.Info("monitor@cycle",
		zap.Float64("panel_v", result.Reading.PanelVolts),
		zap.Float64("battery_v", result.Reading.BatteryVolts),
		zap.Float64("panel_a", result.Reading.PanelAmps),
		zap.Float64("panel_w", result.Reading.PanelWatts),
		zap.Float64("panel_ws", result.PanelWattSeconds()),
		zap.Float64("panel_wh", result.State.PanelWh),
		zap.Float64("load_a", result.Reading.LoadAmps),
		zap.Float64("load_w", result.Reading.LoadWatts),
		zap.Float64("load_ws", result.LoadWattSeconds()),
		zap.Float64("load_wh", result.State.LoadWh),
		zap.Float64("battery_percent", result.PublishedBatteryPercent()),
	)
}

func (state *MonitorActor) skip(reason string, err error) {
	state.cfg.Metrics.CycleSkipped(reason)
	state.status.SkippedCycles++
	state.status.LastError = err.Error()
	state.logger.Warn("monitor@cycle skipped", zap.String("reason", reason), zap.Error(err))
}

func (state *MonitorActor) publish(evt any) {
	if state.cfg.EventStream != nil {
		state.cfg.EventStream.Publish(evt)
	}
}

func (state *MonitorActor) snapshotStatus() domain.MonitorStatus {
	status := state.status
	if status.Last != nil {
		last := *status.Last
		status.Last = &last
	}
	return status
}

func (state *MonitorActor) health(activity string) domain.ActorHealthResponse {
	now := state.cfg.Clock.Now()
	lastProgress := state.status.StartedAt
	if state.status.Last != nil {
		lastProgress = state.status.Last.Time
	}
	healthy := now.Sub(lastProgress) < MONITOR_STALE_AFTER
	status := activity
	if !healthy {
		status = fmt.Sprintf("no completed cycle since %s", lastProgress.Format(time.RFC3339))
	}
	return domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MONITOR,
		Healthy: healthy,
		State:   status,
	}
}
