package epever_modbus

import (
	"time"

	"github.com/simonvetter/modbus"
)

// registerClient is the subset of *modbus.ModbusClient used by the readers.
type registerClient interface {
	Open() error
	Close() error
	ReadRegister(addr uint16, regType modbus.RegType) (uint16, error)
}

type ModbusClient struct {
	client     registerClient
	instrument []ModbusInstrument
}

type ModbusInstrument struct {
	RecordTime func(fnName string, readTime time.Duration)
	RecordErr  func(fnName string, err error)
}

func (reader ModbusClient) readRegister(addr uint16, regType modbus.RegType) (uint16, error) {
	defer RecordTimer("ReadRegister", reader.instrument)()
	value, err := reader.client.ReadRegister(addr, regType)
	RecordError("ReadRegister", err, reader.instrument)
	return value, err
}

func RecordTimer(name string, instrument []ModbusInstrument) func() {
	if instrument == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		for i := range instrument {
			if instrument[i].RecordTime != nil {
				instrument[i].RecordTime(name, duration)
			}
		}
	}
}

func RecordError(name string, err error, instrument []ModbusInstrument) {
	if err == nil {
		return
	}
	for i := range instrument {
		if instrument[i].RecordErr != nil {
			instrument[i].RecordErr(name, err)
		}
	}
}
