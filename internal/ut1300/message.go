package ut1300

import "time"

// BatteryState is the charge/discharge state reported in battery pack info
// frames.
type BatteryState int

const (
	StateUnknown BatteryState = iota
	StateCharging
	StateDischarging
)

func (s BatteryState) String() string {
	switch s {
	case StateCharging:
		return "charging"
	case StateDischarging:
		return "discharging"
	default:
		return "unknown"
	}
}

// Message is one decoded battery report. The set of implementations is
// closed: CellVoltages, PackInfo and PackStatus. Adding a discriminant means
// adding a variant here and handling it everywhere a Message is switched on.
type Message interface {
	// Measurement is the series name the report is stored under.
	Measurement() string

	// Fields returns the report as a flat name→value map. Values are
	// float64 for scaled quantities and int64 for counts and enums.
	Fields() map[string]any

	message()
}

// CellVoltages carries the four individual cell voltages, in volts.
type CellVoltages struct {
	Cell1 float64
	Cell2 float64
	Cell3 float64
	Cell4 float64
}

func (CellVoltages) Measurement() string { return "cell_voltages" }

func (m CellVoltages) Fields() map[string]any {
	return map[string]any{
		"cell1_voltage": m.Cell1,
		"cell2_voltage": m.Cell2,
		"cell3_voltage": m.Cell3,
		"cell4_voltage": m.Cell4,
	}
}

func (CellVoltages) message() {}

// PackInfo carries the pack state, current draw and the four temperature
// sensors. Current is an unsigned magnitude; State carries the direction.
// Temperatures are in °C.
type PackInfo struct {
	State              BatteryState
	Current            float64
	Temperature1       int64
	Temperature2       int64
	MOSFETTemperature  int64
	AmbientTemperature int64
}

func (PackInfo) Measurement() string { return "battery_pack_info" }

func (m PackInfo) Fields() map[string]any {
	return map[string]any{
		"battery_state":       int64(m.State),
		"current":             m.Current,
		"temperature1":        m.Temperature1,
		"temperature2":        m.Temperature2,
		"mosfet_temperature":  m.MOSFETTemperature,
		"ambient_temperature": m.AmbientTemperature,
	}
}

func (PackInfo) message() {}

// PackStatus carries cycle count, state of charge, capacities, time
// remaining and the pack/cell voltage summary. The measurement name follows
// the vendor command that solicits it (0x04, "current and temperature")
// even though the reply carries none of either.
type PackStatus struct {
	CycleCount        int64
	StateOfCharge     int64
	FullCapacity      float64 // Ah
	RemainingCapacity float64 // Ah
	DischargeTimeLeft float64 // minutes
	ChargeTimeLeft    float64 // minutes
	TotalVoltage      float64
	MaxCellVoltage    float64
	MinCellVoltage    float64
}

func (PackStatus) Measurement() string { return "current_and_temperature" }

func (m PackStatus) Fields() map[string]any {
	return map[string]any{
		"cycle_count":         m.CycleCount,
		"state_of_charge":     m.StateOfCharge,
		"full_capacity":       m.FullCapacity,
		"remaining_capacity":  m.RemainingCapacity,
		"discharge_time_left": m.DischargeTimeLeft,
		"charge_time_left":    m.ChargeTimeLeft,
		"total_voltage":       m.TotalVoltage,
		"max_cell_voltage":    m.MaxCellVoltage,
		"min_cell_voltage":    m.MinCellVoltage,
	}
}

func (PackStatus) message() {}

// Reading is a decoded report tagged with the device it came from, the shape
// handed to the telemetry sinks.
type Reading struct {
	Device      string
	Measurement string
	Time        time.Time
	Fields      map[string]any
}
