package eeprom

import (
	storeerr "eepromkv/pkg/error"
	"eepromkv/pkg/primitives"
	"fmt"
)

// PageState is the decoded value of a page marker.
type PageState uint8

const (
	StateCleared PageState = iota
	StateActive
	StateReceiving

	// StateUnknown is any marker pattern other than the three encodings,
	// typically left behind by an interrupted erase.
	StateUnknown

	numStates
)

// markerEncoding maps each writable state to its on-device bit pattern.
var markerEncoding = [...]primitives.Unit{
	StateCleared:   0xFFFFFFFF,
	StateActive:    0x00000000,
	StateReceiving: 0x55555555,
}

// DecodeState maps a raw marker unit to its state.
func DecodeState(raw primitives.Unit) PageState {
	for s, enc := range markerEncoding {
		if raw == enc {
			return PageState(s)
		}
	}
	return StateUnknown
}

// Encoding returns the marker bit pattern for s. StateUnknown has none.
func (s PageState) Encoding() (primitives.Unit, bool) {
	if int(s) >= len(markerEncoding) {
		return 0, false
	}
	return markerEncoding[s], true
}

func (s PageState) String() string {
	switch s {
	case StateCleared:
		return "CLEARED"
	case StateActive:
		return "ACTIVE"
	case StateReceiving:
		return "RECEIVING"
	default:
		return "UNKNOWN"
	}
}

// readState reads and decodes the marker of page p.
func (s *Store) readState(p primitives.PageIndex) (PageState, error) {
	raw, err := s.dev.ReadUnit(s.geo.Base(p))
	if err != nil {
		return StateUnknown, storeerr.Device(err, "ReadState", "PageState")
	}
	return DecodeState(raw), nil
}

// readStates reads both markers once.
func (s *Store) readStates() ([primitives.NumPages]PageState, error) {
	var states [primitives.NumPages]PageState
	for p := range states {
		st, err := s.readState(primitives.PageIndex(p))
		if err != nil {
			return states, err
		}
		states[p] = st
	}
	return states, nil
}

// setState programs the marker of page p. The caller guarantees the
// transition only clears bits; CLEARED is reachable only through clearPage.
func (s *Store) setState(p primitives.PageIndex, state PageState) error {
	enc, ok := state.Encoding()
	if !ok {
		return storeerr.Inconsistent("SetState", fmt.Sprintf("cannot program marker %s", state))
	}

	if err := s.dev.ProgramUnit(s.geo.Base(p), enc); err != nil {
		s.log.Error("marker program failed", "page", p.String(), "state", state.String(), "error", err)
		e := storeerr.Device(err, "SetState", "PageState")
		e.Detail = fmt.Sprintf("%s -> %s", p, state)
		return e
	}

	s.log.Debug("marker written", "page", p.String(), "state", state.String())
	return nil
}

// clearPage erases page p and writes the CLEARED marker explicitly, so a
// device that reports a successful erase without clearing is caught by the
// bit check on the marker program.
func (s *Store) clearPage(p primitives.PageIndex) error {
	if err := s.dev.ErasePage(s.geo.Base(p)); err != nil {
		s.log.Error("page erase failed", "page", p.String(), "error", err)
		e := storeerr.Device(err, "ClearPage", "PageState")
		e.Detail = p.String()
		return e
	}

	if err := s.setState(p, StateCleared); err != nil {
		return err
	}

	s.log.Debug("page cleared", "page", p.String())
	return nil
}

// isBlank reports whether every unit of page p reads as erased.
func (s *Store) isBlank(p primitives.PageIndex) (bool, error) {
	end := s.geo.Base(p) + primitives.Address(s.geo.PageSize)
	for addr := s.geo.Base(p); addr < end; addr += primitives.UnitSize {
		u, err := s.dev.ReadUnit(addr)
		if err != nil {
			return false, storeerr.Device(err, "IsBlank", "PageState")
		}
		if u != primitives.ErasedUnit {
			return false, nil
		}
	}
	return true, nil
}
