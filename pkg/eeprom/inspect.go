package eeprom

import (
	"eepromkv/pkg/primitives"
)

// PageView is a read-only picture of one page for tooling.
type PageView struct {
	Index    primitives.PageIndex
	Base     primitives.Address
	Marker   primitives.Unit
	State    PageState
	Records  []Record
	Capacity int
}

// Free returns the number of unprogrammed record slots.
func (v PageView) Free() int {
	return v.Capacity - len(v.Records)
}

// Snapshot reads both pages without changing them. It works before Init,
// which makes it usable for inspecting a device that fails recovery.
func (s *Store) Snapshot() ([primitives.NumPages]PageView, error) {
	var views [primitives.NumPages]PageView

	for i := range views {
		p := primitives.PageIndex(i)
		raw, err := s.dev.ReadUnit(s.geo.Base(p))
		if err != nil {
			return views, err
		}

		records, err := s.records(p)
		if err != nil {
			return views, err
		}

		views[i] = PageView{
			Index:    p,
			Base:     s.geo.Base(p),
			Marker:   raw,
			State:    DecodeState(raw),
			Records:  records,
			Capacity: s.geo.Capacity(),
		}
	}
	return views, nil
}

// Values returns the current value of every schema variable that has been
// written, keyed by identifier.
func (s *Store) Values() (map[primitives.VariableID]uint32, error) {
	out := make(map[primitives.VariableID]uint32, s.schema.Len())
	for _, id := range s.schema.ids {
		v, err := s.Read(id)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		out[id] = v
	}
	return out, nil
}

// Latest returns the value of the highest-addressed record per identifier.
// On the ACTIVE page this is the stored value of every written variable.
func (v PageView) Latest() map[primitives.VariableID]uint32 {
	out := make(map[primitives.VariableID]uint32, len(v.Records))
	for _, r := range v.Records {
		out[r.ID] = r.Value
	}
	return out
}
