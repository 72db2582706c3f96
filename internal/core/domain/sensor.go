package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/carlmjohnson/versioninfo"
)

const (
	TOPIC_SOLAR_WATT          = "solar/watt"
	TOPIC_SOLAR_KWH           = "solar/kwh"
	TOPIC_HOUSE_WATT          = "house/watt"
	TOPIC_HOUSE_KWH           = "house/kwh"
	TOPIC_POWERWALL_PERCENT   = "powerwall/percent"
	TOPIC_SOLAR_KWH_DAILY     = "solar/kwh_daily"
	TOPIC_HOUSE_KWH_DAILY     = "house/kwh_daily"
	SENSOR_ID_BRIDGE_STATE    = "bridge"
	SENSOR_ID_SOLAR_POWER     = "solar_power"
	SENSOR_ID_SOLAR_ENERGY    = "solar_energy"
	SENSOR_ID_HOUSE_POWER     = "house_power"
	SENSOR_ID_HOUSE_ENERGY    = "house_energy"
	SENSOR_ID_BATTERY_SOC     = "battery_soc"
	SENSOR_ID_BATTERY_VOLT    = "battery_voltage"
	STATE_CLASS_MEASUREMENT   = "measurement"
	STATE_CLASS_TOTAL_INCR    = "total_increasing"
	DEVICE_CLASS_BATTERY      = "battery"
	DEVICE_CLASS_ENERGY       = "energy"
	DEVICE_CLASS_POWER        = "power"
	DEVICE_CLASS_VOLTAGE      = "voltage"
	DEVICE_CLASS_CONNECTIVITY = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC   = "diagnostic"
	SENSOR_TYPE_SENSOR        = "sensor"
	SENSOR_TYPE_BINARY        = "binary_sensor"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("energymon_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "ACasal",
		Model:        "energymon",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Energymon %s", md5HashShort(baseTopic)),
	}
}

func ChargeControllerDevice(serialPort string, unitId uint8) Device {
	id := fmt.Sprintf("%s#%d", serialPort, unitId)
	return Device{
		Id:           fmt.Sprintf("emon_controller_%s", md5HashShort(id)),
		Manufacturer: "EPEver",
		Model:        "Tracer charge controller",
		Name:         fmt.Sprintf("Solar charge controller %s", md5HashShort(id)),
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

// ControllerSensors lists the telemetry topics published every cycle.
func ControllerSensors(controllerDevice Device) []GenericSensor {

	var sensors []GenericSensor

	sensors = append(sensors, GenericSensor{
		Device:            controllerDevice,
		Id:                SENSOR_ID_SOLAR_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Solar power",
		StateTopic:        TOPIC_SOLAR_WATT,
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		UniqueId:          uniqueId(controllerDevice.Id, SENSOR_ID_SOLAR_POWER),
	})

	sensors = append(sensors, GenericSensor{
		Device:            IdDevice(controllerDevice),
		Id:                SENSOR_ID_SOLAR_ENERGY,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Solar energy today",
		StateTopic:        TOPIC_SOLAR_KWH,
		StateClass:        STATE_CLASS_TOTAL_INCR,
		DeviceClass:       DEVICE_CLASS_ENERGY,
		UnitOfMeasurement: "kWh",
		UniqueId:          uniqueId(controllerDevice.Id, SENSOR_ID_SOLAR_ENERGY),
	})

	sensors = append(sensors, GenericSensor{
		Device:            IdDevice(controllerDevice),
		Id:                SENSOR_ID_HOUSE_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "House power",
		StateTopic:        TOPIC_HOUSE_WATT,
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		UniqueId:          uniqueId(controllerDevice.Id, SENSOR_ID_HOUSE_POWER),
	})

	sensors = append(sensors, GenericSensor{
		Device:            IdDevice(controllerDevice),
		Id:                SENSOR_ID_HOUSE_ENERGY,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "House energy today",
		StateTopic:        TOPIC_HOUSE_KWH,
		StateClass:        STATE_CLASS_TOTAL_INCR,
		DeviceClass:       DEVICE_CLASS_ENERGY,
		UnitOfMeasurement: "kWh",
		UniqueId:          uniqueId(controllerDevice.Id, SENSOR_ID_HOUSE_ENERGY),
	})

	// powerwall/percent carries "percent,voltage"
	sensors = append(sensors, GenericSensor{
		Device:            IdDevice(controllerDevice),
		Id:                SENSOR_ID_BATTERY_SOC,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery state of charge",
		StateTopic:        TOPIC_POWERWALL_PERCENT,
		ValueTemplate:     "{{ value.split(',')[0] }}",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_BATTERY,
		UnitOfMeasurement: "%",
		UniqueId:          uniqueId(controllerDevice.Id, SENSOR_ID_BATTERY_SOC),
	})

	sensors = append(sensors, GenericSensor{
		Device:            IdDevice(controllerDevice),
		Id:                SENSOR_ID_BATTERY_VOLT,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery voltage",
		StateTopic:        TOPIC_POWERWALL_PERCENT,
		ValueTemplate:     "{{ value.split(',')[1] }}",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_VOLTAGE,
		UnitOfMeasurement: "V",
		EnabledByDefault:  optionalBool(false),
		UniqueId:          uniqueId(controllerDevice.Id, SENSOR_ID_BATTERY_VOLT),
	})

	return sensors
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Bridge connection state
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}

func optionalBool(value bool) *bool {
	return &value
}
