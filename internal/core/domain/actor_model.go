package domain

import (
	"github.com/berfenger/energymon/internal/core/energy"
)

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_MODBUS       = "modbus"
	ACTOR_ID_MONITOR      = "monitor"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_INFLUX       = "influx"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

type GetSampleRequest struct {
	ActorRequestMixIn
}

type GetSampleResponse struct {
	ActorResponseMixIn
	Sample *energy.RawSample
}

type GetStatusRequest struct {
	ActorRequestMixIn
}

type GetStatusResponse struct {
	ActorResponseMixIn
	Status MonitorStatus
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors []GenericSensor
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
