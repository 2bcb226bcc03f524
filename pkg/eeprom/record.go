package eeprom

import (
	storeerr "eepromkv/pkg/error"
	"eepromkv/pkg/primitives"
	"fmt"
)

// Record is one (identifier, value) entry of a data region.
type Record struct {
	Address primitives.Address
	ID      primitives.VariableID
	Value   uint32
}

// packRecord places the identifier in the low unit so it lands at the lower
// address, where the free-slot scan looks for it.
func packRecord(id primitives.VariableID, value uint32) uint64 {
	return uint64(value)<<32 | uint64(id)
}

// findLatest scans page p from the highest slot down and returns the value
// of the first record carrying id, which is the most recently written one.
func (s *Store) findLatest(p primitives.PageIndex, id primitives.VariableID) (uint32, bool, error) {
	first := s.geo.firstSlot(p)
	for addr := s.geo.lastSlot(p); addr >= first; addr -= RecordSize {
		got, err := s.dev.ReadUnit(addr)
		if err != nil {
			return 0, false, storeerr.Device(err, "FindLatest", "RecordLog")
		}
		if primitives.VariableID(got) != id {
			continue
		}

		value, err := s.dev.ReadUnit(addr + primitives.UnitSize)
		if err != nil {
			return 0, false, storeerr.Device(err, "FindLatest", "RecordLog")
		}
		return uint32(value), true, nil
	}
	return 0, false, nil
}

// findFreeSlot returns the lowest slot of page p whose identifier is still
// unprogrammed. Appends are strictly sequential, so this is the append point.
func (s *Store) findFreeSlot(p primitives.PageIndex) (primitives.Address, bool, error) {
	last := s.geo.lastSlot(p)
	for addr := s.geo.firstSlot(p); addr <= last; addr += RecordSize {
		got, err := s.dev.ReadUnit(addr)
		if err != nil {
			return 0, false, storeerr.Device(err, "FindFreeSlot", "RecordLog")
		}
		if primitives.VariableID(got) == primitives.ReservedVariableID {
			return addr, true, nil
		}
	}
	return 0, false, nil
}

// appendRecord writes (id, value) at addr with a single double-unit program,
// so a torn write can never pair a valid identifier with a stale value.
func (s *Store) appendRecord(addr primitives.Address, id primitives.VariableID, value uint32) error {
	if err := s.dev.ProgramDoubleUnit(addr, packRecord(id, value)); err != nil {
		e := storeerr.Device(err, "AppendRecord", "RecordLog")
		e.Detail = fmt.Sprintf("id=%v at %v", id, addr)
		return e
	}

	s.stats.Appends++
	s.log.Debug("record appended", "variable", id.String(), "value", value, "address", addr.String())
	return nil
}

// records returns every programmed record of page p in append order.
func (s *Store) records(p primitives.PageIndex) ([]Record, error) {
	var out []Record
	last := s.geo.lastSlot(p)
	for addr := s.geo.firstSlot(p); addr <= last; addr += RecordSize {
		id, err := s.dev.ReadUnit(addr)
		if err != nil {
			return nil, storeerr.Device(err, "Records", "RecordLog")
		}
		if primitives.VariableID(id) == primitives.ReservedVariableID {
			break
		}
		value, err := s.dev.ReadUnit(addr + primitives.UnitSize)
		if err != nil {
			return nil, storeerr.Device(err, "Records", "RecordLog")
		}
		out = append(out, Record{Address: addr, ID: primitives.VariableID(id), Value: uint32(value)})
	}
	return out, nil
}
