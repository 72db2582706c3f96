package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/energymon/internal/core/domain"
	"github.com/berfenger/energymon/internal/core/energy"
	"github.com/berfenger/energymon/internal/util/actorutil"
	"github.com/berfenger/energymon/pkg/epever_modbus"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// unhealthy after this many failed reads in a row
const (
	MODBUS_MAX_CONSECUTIVE_FAILURES = 10
	MODBUS_DEFAULT_READ_TIMEOUT     = 2 * time.Second
	MODBUS_MAX_PENDING_REQUESTS     = 16
)

// ModbusActor serializes access to the charge controller. The reader must be
// open before the actor starts.
type ModbusActor struct {
	behavior    actor.Behavior
	stash       *actorutil.Stash
	controller  epever_modbus.ChargeControllerModbusReader
	readTimeout time.Duration
	failures    int
	logger      *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewModbusActor(controller epever_modbus.ChargeControllerModbusReader, readTimeout time.Duration, logger *zap.Logger) *ModbusActor {
	if readTimeout <= 0 {
		readTimeout = MODBUS_DEFAULT_READ_TIMEOUT
	}
	act := &ModbusActor{
		controller:  controller,
		readTimeout: readTimeout,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{MaxLen: MODBUS_MAX_PENDING_REQUESTS},
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_MODBUS, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *ModbusActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *ModbusActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("modbus@default started")
	case domain.ActorHealthRequest:
		state.logger.Debug("modbus@default: ActorHealthRequest")
		ctx.Respond(state.health("idle"))
	case domain.GetSampleRequest:
		state.logger.Debug("modbus@default: GetSampleRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getSample),
			mapTaskResult[domain.GetSampleResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetSampleResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: fmt.Errorf("%w: %w", domain.ErrTransport, err),
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(state.readTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingModbus)
	case *actor.Stopping:
		state.close()
	default:
		state.logger.Debug("modbus@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *ModbusActor) WaitingModbus(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("modbus@WaitingModbus backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		if resp, ok := msg.message.(domain.GetSampleResponse); ok && resp.HasResponseError() {
			state.failures++
		} else {
			state.failures = 0
		}
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.message)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		ctx.Respond(state.health("reading"))
	case *actor.Stopping:
		state.close()
	default:
		state.logger.Debug("modbus@WaitingModbus stash", zap.String("type", fmt.Sprintf("%T", msg)))
		if dropped := state.stash.Stash(ctx, msg); dropped != nil {
			state.logger.Warn("modbus@WaitingModbus too many pending requests, dropped oldest",
				zap.String("type", fmt.Sprintf("%T", dropped)))
		}
	}
}

func (state *ModbusActor) health(status string) domain.ActorHealthResponse {
	healthy := state.failures < MODBUS_MAX_CONSECUTIVE_FAILURES
	if !healthy {
		status = fmt.Sprintf("%d consecutive read failures", state.failures)
	}
	return domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MODBUS,
		Healthy: healthy,
		State:   status,
	}
}

func (state *ModbusActor) close() {
	if state.controller != nil {
		if err := state.controller.Close(); err != nil {
			state.logger.Warn("modbus: close", zap.Error(err))
		}
	}
}

func (state *ModbusActor) getSample() (*domain.GetSampleResponse, error) {
	snap, err := state.controller.ReadSnapshot()
	if err != nil {
		return nil, err
	}
	return &domain.GetSampleResponse{
		Sample: SnapshotToRawSample(snap),
	}, nil
}

func SnapshotToRawSample(snap *epever_modbus.Snapshot) *energy.RawSample {
	return &energy.RawSample{
		BatteryVoltageX100: snap.BatteryVoltageX100,
		PanelVoltageX100:   snap.PanelVoltageX100,
		PanelCurrentX100:   snap.PanelCurrentX100,
		LoadCurrentX100:    snap.LoadCurrentX100,
		ControllerSoC:      snap.BatterySoC,
	}
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
