package ut1300

// Frame grammar:
//
//	[0]     0xEA  start marker
//	[1]     0xD1  start marker
//	[2]     fixed, not validated
//	[3]     payload length L; total frame length is L+4
//	[4]     fixed, not validated
//	[5]     message type discriminant
//	[6..]   type-specific payload, big-endian fields
//	[len-1] 0xF5  end marker
const (
	startByte1 = 0xEA
	startByte2 = 0xD1
	endByte    = 0xF5

	// prefixLen is the frame overhead not counted by the length byte.
	prefixLen = 4

	// minFrameLen is the shortest well-formed frame (the request commands
	// themselves are this size).
	minFrameLen = 8

	typeOffset = 5
)

// Accumulator reassembles one logical frame from a stream of notification
// fragments. A fragment starting with the frame markers begins a new frame
// and silently abandons any partial one; transport loss must never wedge the
// state machine. Fragments with no frame in progress are dropped.
//
// The zero value is ready to use. An Accumulator is not safe for concurrent
// use; fragments must be ingested in arrival order.
type Accumulator struct {
	buf []byte
}

// Ingest adds one notification fragment and reports whether it completed a
// frame. The returned slice aliases the internal buffer and is valid until
// the next Ingest or Reset; the caller owns clearing the accumulator (via
// Reset) once the frame has been consumed.
func (a *Accumulator) Ingest(chunk []byte) []byte {
	switch {
	case isFrameStart(chunk):
		a.buf = append(a.buf[:0], chunk...)
	case len(a.buf) > 0:
		a.buf = append(a.buf, chunk...)
	default:
		// Continuation with nothing to continue.
		return nil
	}
	if !isComplete(a.buf) {
		return nil
	}
	return a.buf
}

// Reset discards all accumulated state so the next start marker begins a
// fresh frame.
func (a *Accumulator) Reset() {
	a.buf = a.buf[:0]
}

// Pending returns the number of buffered bytes awaiting completion.
func (a *Accumulator) Pending() int {
	return len(a.buf)
}

func isFrameStart(chunk []byte) bool {
	return len(chunk) > 2 && chunk[0] == startByte1 && chunk[1] == startByte2
}

// isComplete applies the full completeness invariant. The length check is
// mandatory: a buffer that merely happens to end in the end marker must not
// be decoded.
func isComplete(buf []byte) bool {
	if len(buf) < minFrameLen {
		return false
	}
	if buf[len(buf)-1] != endByte {
		return false
	}
	return int(buf[3])+prefixLen == len(buf)
}
