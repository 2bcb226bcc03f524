package eeprom

import (
	"errors"
	"testing"

	"eepromkv/pkg/device"
	storeerr "eepromkv/pkg/error"
	"eepromkv/pkg/primitives"
)

const (
	varA primitives.VariableID = 0x0000000A
	varB primitives.VariableID = 0x0000000B
	varC primitives.VariableID = 0x0000000C
)

// smallConfig uses 64-byte pages (7 records) so transfers happen often.
func smallConfig() Config {
	return Config{
		Geometry: Geometry{
			Pages:    [primitives.NumPages]primitives.Address{0x1000, 0x1040},
			PageSize: 64,
		},
		Schema: NewSchema(varA, varB, varC),
	}
}

func newFlash(t *testing.T, cfg Config) *device.Flash {
	t.Helper()
	region, err := cfg.Geometry.Region()
	if err != nil {
		t.Fatalf("Region failed: %v", err)
	}
	f, err := device.NewFlash(region)
	if err != nil {
		t.Fatalf("NewFlash failed: %v", err)
	}
	return f
}

func openStore(t *testing.T, dev device.Device, cfg Config) *Store {
	t.Helper()
	s, err := New(dev, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return s
}

func newStore(t *testing.T, cfg Config) (*Store, *device.Flash) {
	t.Helper()
	f := newFlash(t, cfg)
	return openStore(t, f, cfg), f
}

func mustWrite(t *testing.T, s *Store, id primitives.VariableID, value uint32) {
	t.Helper()
	if err := s.Write(id, value); err != nil {
		t.Fatalf("Write(%v, %d) failed: %v", id, value, err)
	}
}

func expectValue(t *testing.T, s *Store, id primitives.VariableID, want uint32) {
	t.Helper()
	got, err := s.Read(id)
	if err != nil {
		t.Fatalf("Read(%v) failed: %v", id, err)
	}
	if got != want {
		t.Errorf("Read(%v) = %d, want %d", id, got, want)
	}
}

func expectNotFound(t *testing.T, s *Store, id primitives.VariableID) {
	t.Helper()
	if _, err := s.Read(id); !errors.Is(err, storeerr.ErrNotFound) {
		t.Errorf("Read(%v): expected ErrNotFound, got %v", id, err)
	}
}

func expectStates(t *testing.T, f *device.Flash, geo Geometry, want0, want1 PageState) {
	t.Helper()
	for p, want := range []PageState{want0, want1} {
		raw, err := f.ReadUnit(geo.Base(primitives.PageIndex(p)))
		if err != nil {
			t.Fatalf("ReadUnit failed: %v", err)
		}
		if got := DecodeState(raw); got != want {
			t.Errorf("page%d marker = %s, want %s", p, got, want)
		}
	}
}

// seedPage programs a marker and records directly on the flash, bypassing
// the store, to build on-device states a crash could leave behind.
func seedPage(t *testing.T, f *device.Flash, geo Geometry, p primitives.PageIndex, state PageState, recs ...Record) {
	t.Helper()
	base := geo.Base(p)

	switch state {
	case StateCleared:
	case StateUnknown:
		if err := f.Poke(base, 0xDEADBEEF); err != nil {
			t.Fatalf("Poke failed: %v", err)
		}
	default:
		enc, _ := state.Encoding()
		if err := f.ProgramUnit(base, enc); err != nil {
			t.Fatalf("marker program failed: %v", err)
		}
	}

	addr := geo.firstSlot(p)
	for _, r := range recs {
		if err := f.ProgramDoubleUnit(addr, packRecord(r.ID, r.Value)); err != nil {
			t.Fatalf("record program failed: %v", err)
		}
		addr += RecordSize
	}
}

func rec(id primitives.VariableID, value uint32) Record {
	return Record{ID: id, Value: value}
}
