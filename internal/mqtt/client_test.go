package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/berfenger/energymon/internal/core/domain"
	"github.com/berfenger/energymon/internal/core/energy"
	"github.com/berfenger/energymon/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioResult() domain.CycleResult {
	reading, _ := energy.Convert(energy.RawSample{
		BatteryVoltageX100: 1248,
		PanelVoltageX100:   1850,
		PanelCurrentX100:   620,
		LoadCurrentX100:    210,
	})
	return domain.CycleResult{
		Time:                time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		ElapsedSeconds:      0.8,
		Reading:             reading,
		State:               energy.EnergyState{PanelWh: 1234.5, LoadWh: 250},
		BatteryPercent:      44.7,
		BatteryPercentKnown: true,
	}
}

func TestReadingMessages(t *testing.T) {

	assert := assert.New(t)

	msgs := ReadingMessages(scenarioResult())

	assert.Equal([]Message{
		{Topic: "solar/watt", Payload: "114.7"},
		{Topic: "solar/kwh", Payload: "1.2345"},
		{Topic: "house/watt", Payload: "26.292"},
		{Topic: "house/kwh", Payload: "0.25"},
		{Topic: "powerwall/percent", Payload: "44.7,12.52"},
	}, msgs)
}

func TestReadingMessagesUnknownPercent(t *testing.T) {

	r := scenarioResult()
	r.BatteryPercentKnown = false
	r.BatteryPercent = 99

	msgs := ReadingMessages(r)
	assert.Equal(t, "0,12.52", msgs[4].Payload)
}

func TestDailySummaryMessages(t *testing.T) {

	msgs := DailySummaryMessages(domain.DailySummary{PanelWh: 1500, LoadWh: 320.5})

	assert.Equal(t, []Message{
		{Topic: "solar/kwh_daily", Payload: "1.5", Retain: true},
		{Topic: "house/kwh_daily", Payload: "0.3205", Retain: true},
	}, msgs)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "0", FormatValue(0))
	assert.Equal(t, "-0.8", FormatValue(-0.8))
	assert.Equal(t, "110", FormatValue(110))
}

func TestBridgeStateTopic(t *testing.T) {
	cfg := util.LoadTestConfig()
	opts := OptsFromConfig(&cfg)

	assert.Equal(t, "energymon/bridge/state", opts.WillTopic)
	assert.Equal(t, []byte(MQTT_PAYLOAD_OFFLINE), opts.WillPayload)
	assert.True(t, opts.WillRetained)
}

func TestHADiscoveryMessage(t *testing.T) {

	dev := domain.ChargeControllerDevice("/dev/ttyUSB0", 1)
	sensors := domain.ControllerSensors(dev)
	require.Len(t, sensors, 6)

	soc := sensors[4]
	msg := GenericSensorToHADiscoveryMessage("energymon/bridge/state", soc)

	assert.Equal(t, "powerwall/percent", msg.StateTopic)
	assert.Equal(t, "{{ value.split(',')[0] }}", msg.ValueTemplate)
	assert.Equal(t, "energymon/bridge/state", msg.AvTopic)
	assert.Equal(t, "mqtt", msg.Platform)

	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"unit_of_measurement":"%"`)

	assert.Equal(t, "homeassistant/sensor/"+dev.Id+"/battery_soc/config", HADiscoverySensorTopic("homeassistant", soc))
}

func TestHADiscoveryBridgeMessage(t *testing.T) {

	bridge := domain.BridgeSensors(domain.BridgeDevice("energymon"))[0]
	msg := GenericSensorToHADiscoveryMessage("energymon/bridge/state", bridge)

	assert.Equal(t, "energymon/bridge/state", msg.StateTopic)
	assert.Equal(t, MQTT_PAYLOAD_ONLINE, msg.PayloadOn)
	assert.Equal(t, MQTT_PAYLOAD_OFFLINE, msg.PayloadOff)
}

func TestRecordingClient(t *testing.T) {

	c := NewRecordingClient("energymon")
	var got error
	c.Publish("a", "1", 0, false, func(err error) { got = err }, time.Second)
	assert.NoError(t, got)

	last, ok := c.Last("a")
	require.True(t, ok)
	assert.Equal(t, "1", last.Payload)
}
