package epever_modbus

import (
	"fmt"
	"sync"
)

func CreateTestChargeControllerModbusReader() (ChargeControllerModbusReader, error) {
	return &TestChargeControllerModbusReader{
		Registers: map[uint16]uint16{
			REG_PANEL_VOLTAGE:   1850,
			REG_PANEL_CURRENT:   620,
			REG_BATTERY_VOLTAGE: 1248,
			REG_LOAD_CURRENT:    210,
			REG_BATTERY_SOC:     64,
		},
	}, nil
}

// TestChargeControllerModbusReader serves registers from a map. Registers
// listed in Fail return an error.
type TestChargeControllerModbusReader struct {
	Registers map[uint16]uint16
	Fail      map[uint16]error

	mu sync.Mutex
}

// SetRegister changes a register while the reader is in use.
func (reader *TestChargeControllerModbusReader) SetRegister(addr uint16, value uint16) {
	reader.mu.Lock()
	defer reader.mu.Unlock()
	reader.Registers[addr] = value
}

func (reader *TestChargeControllerModbusReader) Open() error {
	return nil
}

func (reader *TestChargeControllerModbusReader) Close() error {
	return nil
}

func (reader *TestChargeControllerModbusReader) ReadRegisters(addresses []uint16) ([]uint16, error) {
	reader.mu.Lock()
	defer reader.mu.Unlock()
	values := make([]uint16, len(addresses))
	for i, addr := range addresses {
		if err, ok := reader.Fail[addr]; ok {
			return nil, fmt.Errorf("read %s (0x%04X): %w", RegisterName(addr), addr, err)
		}
		values[i] = reader.Registers[addr]
	}
	return values, nil
}

func (reader *TestChargeControllerModbusReader) ReadSnapshot() (*Snapshot, error) {
	return snapshotFrom(reader)
}
