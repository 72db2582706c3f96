package util

import (
	"github.com/berfenger/energymon/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Modbus: config.ModbusConfig{
			SerialPort:    "/dev/null",
			BaudRate:      115200,
			UnitId:        1,
			TimeoutMillis: 500,
		},
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "energymon",
			HADiscoveryTopic: "homeassistant",
		},
		InfluxDB: config.InfluxDBConfig{
			Host:          "localhost",
			Port:          8086,
			Database:      "energy",
			Measurement:   "energy",
			TimeoutMillis: 1000,
		},
		Monitor: config.MonitorConfig{
			PollIntervalMillis: 100,
			CellCount:          4,
		},
		Persistence: config.PersistenceConfig{
			Dir: ".",
		},
		Port: 8080,
	}
}
