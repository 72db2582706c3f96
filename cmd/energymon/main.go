package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/berfenger/energymon/internal/adapter/actor"
	"github.com/berfenger/energymon/internal/adapter/store"
	"github.com/berfenger/energymon/internal/config"
	"github.com/berfenger/energymon/internal/core/actor"
	"github.com/berfenger/energymon/internal/core/service"
	"github.com/berfenger/energymon/internal/influx"
	"github.com/berfenger/energymon/internal/mqtt"
	"github.com/berfenger/energymon/internal/observability"
	"github.com/berfenger/energymon/internal/server"
	"github.com/berfenger/energymon/internal/util/actorutil"
	"github.com/berfenger/energymon/pkg/epever_modbus"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/carlmjohnson/versioninfo"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const usage = "Usage: energymon [influxdbhost:port] [mqtthost:port]"

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	endpoints, ok := parseArgs(os.Args[1:])
	if !ok {
		fmt.Println(usage)
		return
	}

	// load and print config
	cfg, err := initConfig(endpoints)
	if err != nil {
		slog.Error("config errors", "error", err)
		os.Exit(1)
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	logger.Info("starting energymon", zap.String("version", versioninfo.Short()))

	metrics := observability.NewMetrics()

	// charge controller, opened once for the whole run
	controller, err := epever_modbus.CreateChargeControllerModbusReader(epever_modbus.ChargeControllerConfig{
		URL:     cfg.Modbus.URL(),
		Speed:   cfg.Modbus.BaudRate,
		UnitId:  uint8(cfg.Modbus.UnitId),
		Timeout: cfg.Modbus.Timeout(),
	}, logger, metrics.ModbusInstrument())
	if err != nil {
		logger.Fatal("could not create modbus client", zap.String("url", cfg.Modbus.URL()), zap.Error(err))
	}
	if err := controller.Open(); err != nil {
		logger.Fatal("could not open serial port", zap.String("url", cfg.Modbus.URL()), zap.Error(err))
	}

	// MQTT broker
	mqttClient := mqtt.CreateMQTTClient(cfg, mqtt.OptsFromConfig(cfg), nil, func(_ paho.Client, err error) {
		logger.Warn("mqtt connection lost", zap.Error(err))
	})
	if err := mqttClient.ConnectSync(10 * time.Second); err != nil {
		logger.Fatal("could not connect to mqtt broker", zap.String("host", cfg.MQTT.Host), zap.Int("port", cfg.MQTT.Port), zap.Error(err))
	}

	// InfluxDB
	influxWriter := influx.NewWriter(cfg.InfluxDB)
	defer influxWriter.Close()

	loc, _ := cfg.Monitor.Location()

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg,
			modbusActorProvider(controller, cfg, logger),
			mqttActorProvider(cfg, mqttClient, metrics, logger),
			influxActorProvider(cfg, influxWriter, metrics, logger),
			actor.MonitorActorConfig{
				PollInterval: cfg.Monitor.PollInterval(),
				Logic:        service.NewDefaultCycleLogic(loc, cfg.Monitor.CellCount),
				Store:        store.NewOsFileStore(cfg.Persistence.Dir),
				Metrics:      metrics,
			}, logger)
	})
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		logger.Fatal("could not start master actor", zap.Error(err))
	}

	server := server.NewServer(*cfg, ctx, pid, metrics)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	if err := ctx.StopFuture(pid).Wait(); err != nil {
		logger.Warn("master actor stop", zap.Error(err))
	}
	as.Shutdown()
}

type endpoints struct {
	influxHost string
	influxPort int
	mqttHost   string
	mqttPort   int
}

// parseArgs accepts exactly two arguments, influxdb host:port and mqtt host:port.
func parseArgs(args []string) (endpoints, bool) {
	if len(args) != 2 {
		return endpoints{}, false
	}
	influxHost, influxPort, err := config.ParseHostPort(args[0])
	if err != nil {
		return endpoints{}, false
	}
	mqttHost, mqttPort, err := config.ParseHostPort(args[1])
	if err != nil {
		return endpoints{}, false
	}
	return endpoints{
		influxHost: influxHost,
		influxPort: influxPort,
		mqttHost:   mqttHost,
		mqttPort:   mqttPort,
	}, true
}

func initConfig(ep endpoints) (*config.Config, error) {

	// alias PORT => ENERGYMON_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("ENERGYMON_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("energymon")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	// command line endpoints win over env and file
	viper.Set("influxdb.host", ep.influxHost)
	viper.Set("influxdb.port", ep.influxPort)
	viper.Set("mqtt.host", ep.mqttHost)
	viper.Set("mqtt.port", ep.mqttPort)

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	cfg.LogLevel = config.ParseLogLevel(viper.GetString("log_level"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func modbusActorProvider(controller epever_modbus.ChargeControllerModbusReader, cfg *config.Config, logger *zap.Logger) actor.ModbusActorProvider {
	return func() *adactor.ModbusActor {
		return adactor.NewModbusActor(controller, cfg.Modbus.Timeout()+time.Second, logger)
	}
}

func mqttActorProvider(cfg *config.Config, client mqtt.Client, metrics *observability.Metrics, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, client, es, metrics, logger)
	}
}

func influxActorProvider(cfg *config.Config, writer *influx.Writer, metrics *observability.Metrics, logger *zap.Logger) actor.InfluxActorProvider {
	return func(es *eventstream.EventStream) *adactor.InfluxActor {
		return adactor.NewInfluxActor(writer, cfg.InfluxDB.Timeout(), es, metrics, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("port", 8080)
	viper.SetDefault("modbus.serial_port", "/dev/ttyUSB0")
	viper.SetDefault("modbus.baud_rate", 115200)
	viper.SetDefault("modbus.unit_id", 1)
	viper.SetDefault("modbus.timeout_millis", 1000)
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "energymon")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("influxdb.database", "energy")
	viper.SetDefault("influxdb.measurement", "energy")
	viper.SetDefault("influxdb.timeout_millis", 5000)
	viper.SetDefault("monitor.poll_interval_millis", 800)
	viper.SetDefault("monitor.cell_count", 4)
	viper.SetDefault("monitor.timezone", "")
	viper.SetDefault("persistence.dir", ".")
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	cfg.InfluxDB.Token = "*redacted*"
	slog.Info("Using", "config", cfg)
}
