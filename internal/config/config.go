package config

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel    zapcore.Level
	Modbus      ModbusConfig      `mapstructure:"modbus"`
	MQTT        MQTTConfig        `mapstructure:"mqtt"`
	InfluxDB    InfluxDBConfig    `mapstructure:"influxdb"`
	Monitor     MonitorConfig     `mapstructure:"monitor"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Port        uint              `mapstructure:"port"`
	HttpLog     bool              `mapstructure:"http_log"`
}

type ModbusConfig struct {
	SerialPort    string `mapstructure:"serial_port"`
	BaudRate      uint   `mapstructure:"baud_rate"`
	UnitId        uint   `mapstructure:"unit_id"`
	TimeoutMillis uint32 `mapstructure:"timeout_millis"`
}

type MonitorConfig struct {
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
	CellCount          uint   `mapstructure:"cell_count"`
	Timezone           string
}

type PersistenceConfig struct {
	Dir string
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

type InfluxDBConfig struct {
	Host          string
	Port          int
	Database      string
	Measurement   string
	Token         string
	TimeoutMillis uint32 `mapstructure:"timeout_millis"`
}

// URL of the InfluxDB HTTP API.
func (c InfluxDBConfig) URL() string {
	return fmt.Sprintf("http://%s", net.JoinHostPort(c.Host, strconv.Itoa(c.Port)))
}

func (c InfluxDBConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}

// URL returns the simonvetter/modbus client URL. A bare device path means RTU.
func (c ModbusConfig) URL() string {
	if strings.Contains(c.SerialPort, "://") {
		return c.SerialPort
	}
	return "rtu://" + c.SerialPort
}

func (c ModbusConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}

func (c MonitorConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMillis) * time.Millisecond
}

// Location for calendar day boundaries. Empty means the host's local zone.
func (c MonitorConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// ParseHostPort splits a "host:port" command line argument.
func ParseHostPort(arg string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(arg)
	if err != nil {
		return "", 0, err
	}
	if host == "" {
		return "", 0, fmt.Errorf("missing host in %q", arg)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in %q", arg)
	}
	return host, port, nil
}

func ParseLogLevel(level string) zapcore.Level {
	switch level {
	case "trace":
		return zapcore.DebugLevel
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "error":
		return zapcore.ErrorLevel
	case "warn":
		return zapcore.WarnLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Validate checks bounds and normalizes topics in place.
func (cfg *Config) Validate() error {
	// check and fix base topic
	baseTopic, err := CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// check bounds
	if cfg.Monitor.PollIntervalMillis < 100 {
		return errors.New("config param monitor.poll_interval_millis should be >= 100")
	}
	if cfg.Monitor.CellCount < 1 {
		return errors.New("config param monitor.cell_count should be >= 1")
	}
	if cfg.Modbus.UnitId > 247 {
		return errors.New("config param modbus.unit_id should be <= 247")
	}
	if cfg.Modbus.SerialPort == "" {
		return errors.New("config param modbus.serial_port is required")
	}
	if cfg.InfluxDB.Database == "" || cfg.InfluxDB.Measurement == "" {
		return errors.New("config params influxdb.database and influxdb.measurement are required")
	}
	if _, err := cfg.Monitor.Location(); err != nil {
		return fmt.Errorf("config param monitor.timezone: %w", err)
	}
	return nil
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
