package ut1300

import "fmt"

// Message type discriminants (frame[5]).
const (
	typeCellVoltages = 0x02
	typePackInfo     = 0x03
	typePackStatus   = 0x04
)

// Minimum frame lengths per type: highest payload offset the decoder reads,
// plus one for the end marker, plus one because the last payload byte cannot
// be the end marker itself.
const (
	cellVoltagesMinLen = 18
	packInfoMinLen     = 19
	packStatusMinLen   = 54
)

// TruncatedError reports a frame that passed the length/terminator invariant
// but whose length byte implies a payload shorter than its discriminant
// requires. It indicates corruption that slipped past the framing check, or
// a firmware variant with a different record layout.
type TruncatedError struct {
	Type byte
	Need int
	Got  int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("ut1300: frame type 0x%02X truncated: need %d bytes, got %d", e.Type, e.Need, e.Got)
}

// Decode interprets one complete frame. It returns (nil, nil) for a
// structurally valid frame whose discriminant is not recognized; such frames
// are ignored, not errors. The frame must already satisfy the Accumulator's
// completeness invariant.
func Decode(frame []byte) (Message, error) {
	if len(frame) < minFrameLen {
		return nil, &TruncatedError{Need: minFrameLen, Got: len(frame)}
	}
	switch frame[typeOffset] {
	case typeCellVoltages:
		return decodeCellVoltages(frame)
	case typePackInfo:
		return decodePackInfo(frame)
	case typePackStatus:
		return decodePackStatus(frame)
	default:
		return nil, nil
	}
}

func decodeCellVoltages(frame []byte) (Message, error) {
	if len(frame) < cellVoltagesMinLen {
		return nil, &TruncatedError{Type: typeCellVoltages, Need: cellVoltagesMinLen, Got: len(frame)}
	}
	return CellVoltages{
		Cell1: float64(be16(frame, 9)) / 1000.0,
		Cell2: float64(be16(frame, 11)) / 1000.0,
		Cell3: float64(be16(frame, 13)) / 1000.0,
		Cell4: float64(be16(frame, 15)) / 1000.0,
	}, nil
}

func decodePackInfo(frame []byte) (Message, error) {
	if len(frame) < packInfoMinLen {
		return nil, &TruncatedError{Type: typePackInfo, Need: packInfoMinLen, Got: len(frame)}
	}
	var state BatteryState
	switch frame[6] {
	case 0x31:
		state = StateDischarging
	case 0x32:
		state = StateCharging
	default:
		state = StateUnknown
	}
	return PackInfo{
		State:   state,
		Current: float64(be16(frame, 7)) / 100.0,
		// Temperature bytes are offset by 40 so the wire value stays
		// unsigned down to -40°C.
		Temperature1:       int64(frame[14]) - 40,
		Temperature2:       int64(frame[15]) - 40,
		MOSFETTemperature:  int64(frame[16]) - 40,
		AmbientTemperature: int64(frame[17]) - 40,
	}, nil
}

func decodePackStatus(frame []byte) (Message, error) {
	if len(frame) < packStatusMinLen {
		return nil, &TruncatedError{Type: typePackStatus, Need: packStatusMinLen, Got: len(frame)}
	}
	// Full capacity is a 24-bit value whose high byte is a constant 0x01 on
	// this firmware; only the low 16 bits are on the wire.
	full := (uint32(0x01) << 16) + uint32(be16(frame, 21))
	return PackStatus{
		CycleCount:        int64(frame[6]),
		StateOfCharge:     int64(frame[7]),
		FullCapacity:      float64(full) / 1000.0,
		RemainingCapacity: float64(be16(frame, 27)) / 1000.0,
		DischargeTimeLeft: float64(be16(frame, 30)),
		ChargeTimeLeft:    float64(be16(frame, 33)),
		TotalVoltage:      float64(be16(frame, 47)) / 100.0,
		MaxCellVoltage:    float64(be16(frame, 49)) / 1000.0,
		MinCellVoltage:    float64(be16(frame, 51)) / 1000.0,
	}, nil
}

// be16 assembles the big-endian 16-bit field at offset i. Callers guarantee
// i+1 is in range via the per-type length checks above.
func be16(frame []byte, i int) uint16 {
	return uint16(frame[i])<<8 | uint16(frame[i+1])
}
