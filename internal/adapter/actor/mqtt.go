package actor

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/berfenger/energymon/internal/config"
	"github.com/berfenger/energymon/internal/core/domain"
	"github.com/berfenger/energymon/internal/mqtt"
	"github.com/berfenger/energymon/internal/observability"
	"github.com/berfenger/energymon/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

const MQTT_PUBLISH_TIMEOUT = 5 * time.Second

// MQTTActor forwards monitor events to the bus. The client must be connected
// before the actor starts.
type MQTTActor struct {
	config       *config.Config
	behavior     actor.Behavior
	client       mqtt.Client
	eventStream  *eventstream.EventStream
	subscription *eventstream.Subscription
	metrics      *observability.Metrics
	logger       *zap.Logger
	failures     uint64
}

type publishResult struct {
	Topic   string
	ReplyTo *actor.PID
	Error   error
}

func NewMQTTActor(config *config.Config, client mqtt.Client, eventStream *eventstream.EventStream,
	metrics *observability.Metrics, logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		config:      config,
		client:      client,
		eventStream: eventStream,
		metrics:     metrics,
		behavior:    actor.NewBehavior(),
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *MQTTActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MQTTActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("mqtt@default started")
		state.publish(ctx, state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_ONLINE, true, nil)
		state.subscribe(ctx)
	case *actor.Restarting:
		state.unsubscribe()
	case *actor.Stopping:
		state.stop()
	case domain.ActorHealthRequest:
		state.logger.Debug("mqtt@default ActorHealthRequest")
		connected := state.client.IsConnected()
		status := "connected"
		if !connected {
			status = "disconnected"
		}
		if state.failures > 0 {
			status = fmt.Sprintf("%s, %d failed publishes", status, state.failures)
		}
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: connected,
			State:   status,
		})
	case domain.ReadingEvent:
		for _, m := range mqtt.ReadingMessages(msg.Result) {
			state.publish(ctx, m.Topic, m.Payload, m.Retain, nil)
		}
	case domain.DailySummaryEvent:
		state.logger.Info("mqtt@default daily summary", zap.Stringer("day", msg.Summary.Day))
		for _, m := range mqtt.DailySummaryMessages(msg.Summary) {
			state.publish(ctx, m.Topic, m.Payload, m.Retain, nil)
		}
	case domain.PublishMessageRequest:
		state.logger.Debug("mqtt@default PublishMessageRequest", zap.Any("message", msg))
		state.publish(ctx, msg.Topic, msg.Payload, msg.Retain, actorutil.ForRequest(msg).ReplyTo(ctx))
	case domain.PublishDiscoveryRequest:
		state.logger.Debug("mqtt@default PublishHADiscovery")
		err := state.PublishHomeAssistantDiscovery(ctx, msg.Sensors)
		if err != nil {
			state.logger.Error("mqtt@default PublishHADiscovery error", zap.Error(err))
		}
		if sender := actorutil.ForRequest(msg).ReplyTo(ctx); sender != nil {
			ctx.Send(sender, domain.PublishDiscoveryResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			})
		}
	case publishResult:
		if msg.Error != nil {
			state.failures++
			state.metrics.PublishFailed(observability.SINK_MQTT)
			state.logger.Error("mqtt@default could not publish a message", zap.String("topic", msg.Topic),
				zap.Error(fmt.Errorf("%w: mqtt: %w", domain.ErrPublish, msg.Error)))
		}
		if msg.ReplyTo != nil {
			ctx.Send(msg.ReplyTo, domain.PublishMessageResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: msg.Error,
				},
			})
		}
	default:
		state.logger.Debug("mqtt@default ignored", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// publish is at-most-once; the result comes back as a publishResult.
func (state *MQTTActor) publish(ctx actor.Context, topic string, payload any, retain bool, replyTo *actor.PID) {
	self := ctx.Self()
	root := ctx.ActorSystem().Root
	state.logger.Debug("mqtt@publish", zap.String("topic", topic), zap.Any("payload", payload))
	state.client.Publish(topic, payload, 0, retain, func(err error) {
		root.Send(self, publishResult{Topic: topic, ReplyTo: replyTo, Error: err})
	}, MQTT_PUBLISH_TIMEOUT)
}

func (state *MQTTActor) subscribe(ctx actor.Context) {
	if state.eventStream == nil || state.subscription != nil {
		return
	}
	self := ctx.Self()
	root := ctx.ActorSystem().Root
	state.subscription = state.eventStream.SubscribeWithPredicate(func(evt any) {
		root.Send(self, evt)
	}, func(evt any) bool {
		switch evt.(type) {
		case domain.ReadingEvent, domain.DailySummaryEvent:
			return true
		}
		return false
	})
}

func (state *MQTTActor) unsubscribe() {
	if state.subscription != nil {
		state.eventStream.Unsubscribe(state.subscription)
		state.subscription = nil
	}
}

func (state *MQTTActor) PublishHomeAssistantDiscovery(ctx actor.Context, sensors []domain.GenericSensor) error {
	for i := range sensors {
		msg := mqtt.GenericSensorToHADiscoveryMessage(state.client.BridgeStateTopic(), sensors[i])
		payload, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		topic := mqtt.HADiscoverySensorTopic(state.config.MQTT.HADiscoveryTopic, sensors[i])
		state.publish(ctx, topic, payload, true, nil)
	}
	return nil
}

func (state *MQTTActor) stop() {
	state.logger.Debug("mqtt: disconnect")
	state.unsubscribe()
	if state.client != nil {
		done := make(chan struct{})
		state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_OFFLINE, 0, true, func(error) {
			close(done)
		}, 500*time.Millisecond)
		<-done
		state.client.Disconnect(500 * time.Millisecond)
	}
}
