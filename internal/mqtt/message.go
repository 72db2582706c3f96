package mqtt

import (
	"strconv"

	"github.com/berfenger/energymon/internal/core/domain"
)

type Message struct {
	Topic   string
	Payload string
	Retain  bool
}

// ReadingMessages are the per-cycle telemetry messages, QoS 0, not retained.
func ReadingMessages(r domain.CycleResult) []Message {
	return []Message{
		{Topic: domain.TOPIC_SOLAR_WATT, Payload: FormatValue(r.Reading.PanelWatts)},
		{Topic: domain.TOPIC_SOLAR_KWH, Payload: FormatValue(r.PanelKWh())},
		{Topic: domain.TOPIC_HOUSE_WATT, Payload: FormatValue(r.Reading.LoadWatts)},
		{Topic: domain.TOPIC_HOUSE_KWH, Payload: FormatValue(r.LoadKWh())},
		{Topic: domain.TOPIC_POWERWALL_PERCENT, Payload: FormatValue(r.PublishedBatteryPercent()) + "," + FormatValue(r.Reading.BatteryVolts)},
	}
}

// DailySummaryMessages carry the final kWh of a finished day. Retained.
func DailySummaryMessages(s domain.DailySummary) []Message {
	return []Message{
		{Topic: domain.TOPIC_SOLAR_KWH_DAILY, Payload: FormatValue(s.PanelWh / 1000), Retain: true},
		{Topic: domain.TOPIC_HOUSE_KWH_DAILY, Payload: FormatValue(s.LoadWh / 1000), Retain: true},
	}
}

// FormatValue renders the shortest decimal that round trips at sensor (float32) precision.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 32)
}
