package epever_modbus

// EPEver Tracer input registers. All values are x100 fixed point except SoC.
const (
	REG_PANEL_VOLTAGE   uint16 = 0x3100
	REG_PANEL_CURRENT   uint16 = 0x3101
	REG_BATTERY_VOLTAGE uint16 = 0x3104
	REG_LOAD_CURRENT    uint16 = 0x310D
	REG_BATTERY_SOC     uint16 = 0x311A
)

// SampleRegisters are read on every poll, in this order.
var SampleRegisters = []uint16{
	REG_PANEL_VOLTAGE,
	REG_PANEL_CURRENT,
	REG_BATTERY_VOLTAGE,
	REG_LOAD_CURRENT,
	REG_BATTERY_SOC,
}

// Snapshot is a raw register snapshot.
type Snapshot struct {
	BatteryVoltageX100 uint16
	PanelVoltageX100   uint16
	PanelCurrentX100   uint16
	LoadCurrentX100    uint16
	BatterySoC         uint16
}

type ChargeControllerModbusReader interface {
	Open() error
	Close() error
	// ReadRegisters reads each input register. Fails if any read fails.
	ReadRegisters(addresses []uint16) ([]uint16, error)
	ReadSnapshot() (*Snapshot, error)
}

func RegisterName(addr uint16) string {
	switch addr {
	case REG_PANEL_VOLTAGE:
		return "panel_voltage"
	case REG_PANEL_CURRENT:
		return "panel_current"
	case REG_BATTERY_VOLTAGE:
		return "battery_voltage"
	case REG_LOAD_CURRENT:
		return "load_current"
	case REG_BATTERY_SOC:
		return "battery_soc"
	default:
		return "unknown"
	}
}
