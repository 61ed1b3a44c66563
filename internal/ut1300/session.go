package ut1300

import (
	"sync/atomic"
	"time"
)

// Counters is a snapshot of a session's per-type decode success counts.
type Counters struct {
	CellVoltages uint64
	PackInfo     uint64
	PackStatus   uint64
}

// Session is the per-battery decoding state: one frame accumulator plus the
// success counters. Sessions are independent; each battery gets its own and
// they share nothing.
//
// HandleNotification must be called from a single goroutine in notification
// arrival order. Counters may be read concurrently from other goroutines.
type Session struct {
	name string
	acc  Accumulator

	cellVoltages atomic.Uint64
	packInfo     atomic.Uint64
	packStatus   atomic.Uint64
}

// NewSession creates a session for the named battery. The name is used as
// the device tag on emitted readings.
func NewSession(name string) *Session {
	return &Session{name: name}
}

// Name returns the battery identity the session was created with.
func (s *Session) Name() string { return s.name }

// HandleNotification ingests one notification fragment. It returns a Reading
// when the fragment completes a recognized frame, (nil, nil) when more data
// is needed or the frame's discriminant is unknown, and an error for a frame
// too short for its discriminant. The accumulator is reset after every
// completed frame, success or not, so state never leaks into the next frame.
func (s *Session) HandleNotification(chunk []byte) (*Reading, error) {
	frame := s.acc.Ingest(chunk)
	if frame == nil {
		return nil, nil
	}
	defer s.acc.Reset()

	msg, err := Decode(frame)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, nil
	}

	switch msg.(type) {
	case CellVoltages:
		s.cellVoltages.Add(1)
	case PackInfo:
		s.packInfo.Add(1)
	case PackStatus:
		s.packStatus.Add(1)
	}

	return &Reading{
		Device:      s.name,
		Measurement: msg.Measurement(),
		Time:        time.Now(),
		Fields:      msg.Fields(),
	}, nil
}

// Counters returns the current success counts. Safe to call while the
// session is decoding.
func (s *Session) Counters() Counters {
	return Counters{
		CellVoltages: s.cellVoltages.Load(),
		PackInfo:     s.packInfo.Load(),
		PackStatus:   s.packStatus.Load(),
	}
}
