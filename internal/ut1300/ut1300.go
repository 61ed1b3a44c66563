// Package ut1300 implements the notification protocol of UT1300-series
// LiFePO4 batteries. The battery streams fixed-format binary frames over a
// GATT characteristic; notifications arrive in arbitrarily small fragments,
// so the package reassembles fragments into complete frames before decoding
// them into typed measurements.
package ut1300

// Advertised identity of supported batteries. The transport layer uses these
// to pick batteries out of a scan; this package only defines them so the
// protocol knowledge lives in one place.
var (
	// LocalNames are substrings matched against the advertised local name.
	LocalNames = []string{"R1300SJ", "UT1300 BT"}

	// ServiceUUIDs are the 16-bit service UUIDs the battery advertises.
	ServiceUUIDs = []uint16{0xFEE7, 0xFFE0}
)

// CharacteristicUUID is the 16-bit UUID of the characteristic used for both
// notifications and command writes.
const CharacteristicUUID uint16 = 0xFFE1

// Request commands. Each is itself a complete frame per the wire grammar and
// is written to the characteristic to solicit the corresponding report.
// The reply discriminants do not line up with the command names: 0x03
// replies carry current and temperatures, 0x04 replies carry cycle count and
// capacities. The names follow the vendor app.
var (
	RequestCellVoltages          = []byte{0xEA, 0xD1, 0x01, 0x04, 0xFF, 0x02, 0xF9, 0xF5}
	RequestBatteryPackInfo       = []byte{0xEA, 0xD1, 0x01, 0x04, 0xFF, 0x03, 0xF8, 0xF5}
	RequestCurrentAndTemperature = []byte{0xEA, 0xD1, 0x01, 0x04, 0xFF, 0x04, 0xFF, 0xF5}
)

// Commands lists all request commands in the order they are normally polled.
var Commands = [][]byte{
	RequestCellVoltages,
	RequestBatteryPackInfo,
	RequestCurrentAndTemperature,
}
