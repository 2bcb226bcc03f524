package device

import (
	"eepromkv/pkg/primitives"
	"fmt"
)

// Region describes the contiguous address window an adapter serves: NumPages
// pages of PageSize bytes starting at Base.
type Region struct {
	Base     primitives.Address
	PageSize uint32
	NumPages int
}

// Size is the total byte size of the region.
func (r Region) Size() int {
	return int(r.PageSize) * r.NumPages
}

// Validate checks that the region can be addressed in whole units.
func (r Region) Validate() error {
	if r.NumPages <= 0 {
		return fmt.Errorf("device: region needs at least one page, got %d", r.NumPages)
	}
	if r.PageSize == 0 || r.PageSize%primitives.DoubleUnitSize != 0 {
		return fmt.Errorf("device: page size %d is not a multiple of %d", r.PageSize, primitives.DoubleUnitSize)
	}
	if !r.Base.IsAligned(primitives.DoubleUnitSize) {
		return fmt.Errorf("device: base %v is not %d-byte aligned", r.Base, primitives.DoubleUnitSize)
	}
	return nil
}

// offset translates addr to a byte offset inside the region for an access of
// width bytes, checking alignment and bounds.
func (r Region) offset(addr primitives.Address, width uint32) (int, error) {
	if !addr.IsAligned(width) {
		return 0, fmt.Errorf("%w: %v for %d-byte access", ErrMisaligned, addr, width)
	}
	if addr < r.Base || uint64(addr)+uint64(width) > uint64(r.Base)+uint64(r.Size()) {
		return 0, fmt.Errorf("%w: %v", ErrOutOfRange, addr)
	}
	return int(addr - r.Base), nil
}

// pageOf returns the page number whose first byte is base.
func (r Region) pageOf(base primitives.Address) (int, error) {
	off, err := r.offset(base, primitives.UnitSize)
	if err != nil {
		return 0, err
	}
	if uint32(off)%r.PageSize != 0 {
		return 0, fmt.Errorf("%w: %v is not a page boundary", ErrMisaligned, base)
	}
	return off / int(r.PageSize), nil
}

// checkProgram enforces the clear-only rule: every bit set in next must
// already be set in stored.
func checkProgram(stored, next []byte) error {
	for i := range next {
		if next[i]&^stored[i] != 0 {
			return fmt.Errorf("%w: byte %d stored 0x%02X, requested 0x%02X", ErrBitViolation, i, stored[i], next[i])
		}
	}
	return nil
}
