package device

import (
	"bytes"
	"eepromkv/pkg/primitives"
	"encoding/binary"
	"sync"
)

// Flash is an in-memory simulated NOR flash region. It enforces the
// clear-only programming rule, alignment and bounds, counts erases per page
// and can simulate a power cut after a given number of mutating operations.
//
// Flash is safe for concurrent use; the store itself is not.
type Flash struct {
	region   Region
	mem      []byte
	erases   []uint64
	programs uint64

	unlocked  bool
	budget    int // mutations left before power is cut; negative means unlimited
	powerLost bool

	mu sync.Mutex
}

// NewFlash creates a fully erased simulated flash region.
func NewFlash(region Region) (*Flash, error) {
	if err := region.Validate(); err != nil {
		return nil, err
	}

	f := &Flash{
		region: region,
		mem:    bytes.Repeat([]byte{0xFF}, region.Size()),
		erases: make([]uint64, region.NumPages),
		budget: -1,
	}
	return f, nil
}

// Region returns the address window served by this flash.
func (f *Flash) Region() Region {
	return f.region
}

// ReadUnit returns the unit at addr.
func (f *Flash) ReadUnit(addr primitives.Address) (primitives.Unit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	off, err := f.region.offset(addr, primitives.UnitSize)
	if err != nil {
		return 0, err
	}
	return primitives.Unit(binary.LittleEndian.Uint32(f.mem[off:])), nil
}

// ProgramUnit programs one unit at addr.
func (f *Flash) ProgramUnit(addr primitives.Address, bits primitives.Unit) error {
	var buf [primitives.UnitSize]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(bits))
	return f.mutate(func() error {
		return f.program(addr, buf[:])
	})
}

// ProgramDoubleUnit atomically programs two adjacent units at addr.
func (f *Flash) ProgramDoubleUnit(addr primitives.Address, bits uint64) error {
	var buf [primitives.DoubleUnitSize]byte
	binary.LittleEndian.PutUint64(buf[:], bits)
	return f.mutate(func() error {
		return f.program(addr, buf[:])
	})
}

// ErasePage resets the page starting at base to all ones.
func (f *Flash) ErasePage(base primitives.Address) error {
	return f.mutate(func() error {
		page, err := f.region.pageOf(base)
		if err != nil {
			return err
		}
		if !f.unlocked {
			return ErrLocked
		}

		start := page * int(f.region.PageSize)
		for i := start; i < start+int(f.region.PageSize); i++ {
			f.mem[i] = 0xFF
		}
		f.erases[page]++
		return nil
	})
}

// mutate brackets one mutating operation with unlock/lock and accounts for
// the simulated power budget.
func (f *Flash) mutate(op func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.powerLost {
		return ErrPowerLoss
	}
	if f.budget == 0 {
		f.powerLost = true
		return ErrPowerLoss
	}
	if f.budget > 0 {
		f.budget--
	}

	f.unlocked = true
	defer func() { f.unlocked = false }()

	return op()
}

func (f *Flash) program(addr primitives.Address, data []byte) error {
	if !f.unlocked {
		return ErrLocked
	}

	off, err := f.region.offset(addr, uint32(len(data)))
	if err != nil {
		return err
	}
	if err := checkProgram(f.mem[off:off+len(data)], data); err != nil {
		return err
	}

	copy(f.mem[off:], data)
	f.programs++
	return nil
}

// CutPowerAfter lets the next n mutating operations succeed and fails every
// one after that with ErrPowerLoss, as if the supply dropped mid-sequence.
func (f *Flash) CutPowerAfter(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.budget = n
	f.powerLost = false
}

// RestorePower clears a simulated power cut; the contents written before the
// cut are kept.
func (f *Flash) RestorePower() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.budget = -1
	f.powerLost = false
}

// Poke overwrites a unit without any programming rules. It models tampering
// or a torn operation and is meant for tests and fault injection only.
func (f *Flash) Poke(addr primitives.Address, bits primitives.Unit) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	off, err := f.region.offset(addr, primitives.UnitSize)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(f.mem[off:], uint32(bits))
	return nil
}

// Clone returns an independent copy of the flash contents and counters.
func (f *Flash) Clone() *Flash {
	f.mu.Lock()
	defer f.mu.Unlock()

	return &Flash{
		region:   f.region,
		mem:      append([]byte(nil), f.mem...),
		erases:   append([]uint64(nil), f.erases...),
		programs: f.programs,
		budget:   -1,
	}
}

// EraseCounts returns the number of erases each page has seen.
func (f *Flash) EraseCounts() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]uint64(nil), f.erases...)
}

// ProgramCount returns the number of successful program operations.
func (f *Flash) ProgramCount() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.programs
}
