package epever_modbus

import (
	"errors"
	"fmt"
	"time"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

type ChargeControllerReader struct {
	ModbusClient

	logger *zap.Logger
}

func (cc *ChargeControllerReader) Open() error {
	return cc.client.Open()
}

func (cc *ChargeControllerReader) Close() error {
	return cc.client.Close()
}

func (cc *ChargeControllerReader) ReadRegisters(addresses []uint16) ([]uint16, error) {
	values := make([]uint16, len(addresses))
	for i, addr := range addresses {
		v, err := cc.readRegister(addr, modbus.INPUT_REGISTER)
		if err != nil {
			return nil, fmt.Errorf("read %s (0x%04X): %w", RegisterName(addr), addr, err)
		}
		values[i] = v
	}
	return values, nil
}

func (cc *ChargeControllerReader) ReadSnapshot() (*Snapshot, error) {
	return snapshotFrom(cc)
}

func snapshotFrom(reader interface {
	ReadRegisters([]uint16) ([]uint16, error)
}) (*Snapshot, error) {
	values, err := reader.ReadRegisters(SampleRegisters)
	if err != nil {
		return nil, err
	}
	if len(values) != len(SampleRegisters) {
		return nil, errors.New("epever: short register read")
	}
	return &Snapshot{
		PanelVoltageX100:   values[0],
		PanelCurrentX100:   values[1],
		BatteryVoltageX100: values[2],
		LoadCurrentX100:    values[3],
		BatterySoC:         values[4],
	}, nil
}

func traceLoggerInstrumentation(logger *zap.Logger) *ModbusInstrument {
	return &ModbusInstrument{
		RecordTime: func(fnName string, readTime time.Duration) {
			logger.Debug("modbus read", zap.String("fn", fnName), zap.Int64("millis", readTime.Milliseconds()))
		},
	}
}

type ChargeControllerConfig struct {
	// e.g. rtu:///dev/ttyUSB0, rtuovertcp://host:502
	URL      string
	Speed    uint
	UnitId   uint8
	Timeout  time.Duration
	DataBits uint
	StopBits uint
}

func CreateChargeControllerModbusReader(cfg ChargeControllerConfig, logger *zap.Logger,
	instrumentation *ModbusInstrument) (ChargeControllerModbusReader, error) {
	dataBits := cfg.DataBits
	if dataBits == 0 {
		dataBits = 8
	}
	stopBits := cfg.StopBits
	if stopBits == 0 {
		stopBits = 1
	}
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:      cfg.URL,
		Speed:    cfg.Speed,
		DataBits: dataBits,
		Parity:   modbus.PARITY_NONE,
		StopBits: stopBits,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}

	// instrumentation
	var inst []ModbusInstrument
	logInst := traceLoggerInstrumentation(logger.With(zap.String("target", "charge_controller"), zap.Uint8("unit", cfg.UnitId)))
	if logInst != nil {
		inst = append(inst, *logInst)
	}
	if instrumentation != nil {
		inst = append(inst, *instrumentation)
	}

	// set controller address
	if cfg.UnitId > 0 {
		err = client.SetUnitId(cfg.UnitId)
		if err != nil {
			return nil, err
		}
	}

	return newChargeControllerReader(client, inst, logger), nil
}

func newChargeControllerReader(client registerClient, inst []ModbusInstrument, logger *zap.Logger) *ChargeControllerReader {
	return &ChargeControllerReader{
		ModbusClient: ModbusClient{
			client:     client,
			instrument: inst,
		},
		logger: logger,
	}
}
