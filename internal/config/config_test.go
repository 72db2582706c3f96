package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func validConfig() Config {
	return Config{
		Modbus:   ModbusConfig{SerialPort: "/dev/ttyUSB0", BaudRate: 115200, UnitId: 1},
		MQTT:     MQTTConfig{BaseTopic: "EnergyMon", HADiscoveryTopic: "homeassistant"},
		InfluxDB: InfluxDBConfig{Database: "energy", Measurement: "energy"},
		Monitor:  MonitorConfig{PollIntervalMillis: 800, CellCount: 4},
	}
}

func TestValidate(t *testing.T) {

	cfg := validConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "energymon", cfg.MQTT.BaseTopic)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"poll interval", func(c *Config) { c.Monitor.PollIntervalMillis = 99 }},
		{"cell count", func(c *Config) { c.Monitor.CellCount = 0 }},
		{"base topic", func(c *Config) { c.MQTT.BaseTopic = "energy/mon" }},
		{"discovery topic", func(c *Config) { c.MQTT.HADiscoveryTopic = "" }},
		{"unit id", func(c *Config) { c.Modbus.UnitId = 248 }},
		{"serial port", func(c *Config) { c.Modbus.SerialPort = "" }},
		{"database", func(c *Config) { c.InfluxDB.Database = "" }},
		{"timezone", func(c *Config) { c.Monitor.Timezone = "Nowhere/Atlantis" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseHostPort(t *testing.T) {

	host, port, err := ParseHostPort("localhost:8086")
	require.NoError(t, err)
	assert.Equal(t, "localhost", host)
	assert.Equal(t, 8086, port)

	host, port, err = ParseHostPort("[::1]:1883")
	require.NoError(t, err)
	assert.Equal(t, "::1", host)
	assert.Equal(t, 1883, port)

	for _, bad := range []string{"localhost", ":1883", "host:abc", "host:0", "host:70000"} {
		_, _, err := ParseHostPort(bad)
		assert.Error(t, err, bad)
	}
}

func TestModbusURL(t *testing.T) {
	assert.Equal(t, "rtu:///dev/ttyUSB0", ModbusConfig{SerialPort: "/dev/ttyUSB0"}.URL())
	assert.Equal(t, "rtuovertcp://gw:502", ModbusConfig{SerialPort: "rtuovertcp://gw:502"}.URL())
	assert.Equal(t, 500*time.Millisecond, ModbusConfig{TimeoutMillis: 500}.Timeout())
}

func TestInfluxURL(t *testing.T) {
	assert.Equal(t, "http://influx:8086", InfluxDBConfig{Host: "influx", Port: 8086}.URL())
}

func TestLocation(t *testing.T) {
	loc, err := MonitorConfig{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = MonitorConfig{Timezone: "UTC"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLogLevel("trace"))
	assert.Equal(t, zapcore.WarnLevel, ParseLogLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, ParseLogLevel("bogus"))
}

func TestCheckMQTTTopic(t *testing.T) {
	topic, err := CheckMQTTTopic("Home_1")
	require.NoError(t, err)
	assert.Equal(t, "home_1", topic)

	_, err = CheckMQTTTopic("a/b")
	assert.Error(t, err)
}
