package actor

import (
	"errors"
	"testing"
	"time"

	"github.com/berfenger/energymon/internal/core/domain"
	"github.com/berfenger/energymon/internal/util/actorutil"
	"github.com/berfenger/energymon/pkg/epever_modbus"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetSampleModbusActor(t *testing.T) {

	assert := assert.New(t)

	reader, err := epever_modbus.CreateTestChargeControllerModbusReader()
	require.NoError(t, err)

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewModbusActor(reader, time.Second, logger) })
	pid := context.Spawn(props)

	result, err := context.RequestFuture(pid, domain.GetSampleRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	resp, ok := result.(domain.GetSampleResponse)
	require.True(t, ok)

	assert.False(resp.HasResponseError())
	if assert.NotNil(resp.Sample) {
		assert.Equal(uint16(1248), resp.Sample.BatteryVoltageX100)
		assert.Equal(uint16(1850), resp.Sample.PanelVoltageX100)
		assert.Equal(uint16(620), resp.Sample.PanelCurrentX100)
		assert.Equal(uint16(210), resp.Sample.LoadCurrentX100)
		assert.Equal(uint16(64), resp.Sample.ControllerSoC)
	}

	context.Stop(pid)

	as.Shutdown()
}

func TestGetSampleModbusActorTransportError(t *testing.T) {

	reader := &epever_modbus.TestChargeControllerModbusReader{
		Registers: map[uint16]uint16{},
		Fail:      map[uint16]error{epever_modbus.REG_BATTERY_SOC: errors.New("request timed out")},
	}

	logger := zap.NewNop()
	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	pid := context.Spawn(actor.PropsFromProducer(func() actor.Actor { return NewModbusActor(reader, time.Second, logger) }))

	for i := 0; i < MODBUS_MAX_CONSECUTIVE_FAILURES; i++ {
		result, err := context.RequestFuture(pid, domain.GetSampleRequest{}, 5*time.Second).Result()
		require.NoError(t, err)
		resp := result.(domain.GetSampleResponse)
		assert.Nil(t, resp.Sample)
		assert.ErrorIs(t, resp.GetResponseError(), domain.ErrTransport)
	}

	result, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	health := result.(domain.ActorHealthResponse)
	assert.False(t, health.Healthy, "unhealthy after repeated failures")

	// recovers after one good read
	delete(reader.Fail, epever_modbus.REG_BATTERY_SOC)
	_, err = context.RequestFuture(pid, domain.GetSampleRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	result, err = context.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	assert.True(t, result.(domain.ActorHealthResponse).Healthy)

	context.Stop(pid)
	as.Shutdown()
}

func TestSnapshotToRawSample(t *testing.T) {
	raw := SnapshotToRawSample(&epever_modbus.Snapshot{
		BatteryVoltageX100: 1,
		PanelVoltageX100:   2,
		PanelCurrentX100:   3,
		LoadCurrentX100:    4,
		BatterySoC:         5,
	})
	assert.Equal(t, uint16(1), raw.BatteryVoltageX100)
	assert.Equal(t, uint16(4), raw.LoadCurrentX100)
	assert.Equal(t, uint16(5), raw.ControllerSoC)
}
