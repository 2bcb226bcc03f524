// Package device defines the block device consumed by the eeprom store and
// provides two adapters for it: an in-memory simulated flash and a
// file-backed flash image.
//
// The device contract mirrors NOR flash as found on small microcontrollers:
//
//   - ErasePage resets every byte of a page to 0xFF.
//   - ProgramUnit and ProgramDoubleUnit can only clear bits. Setting a bit
//     that is already cleared requires an erase first. Programming a pattern
//     whose set bits are a superset of the stored ones is a logic error in
//     the caller; the adapters here reject it with ErrBitViolation so tests
//     catch it, while real hardware would silently store the AND.
//   - A double-unit program is atomic: either both units are written or
//     neither is.
//
// Each mutating call is bracketed by an unlock/lock of the adapter, and the
// lock is released on every exit path.
package device

import (
	"eepromkv/pkg/primitives"
	"errors"
)

// Device is the abstract block device.
type Device interface {
	// ReadUnit returns the unit stored at addr. Reads never change the device.
	ReadUnit(addr primitives.Address) (primitives.Unit, error)

	// ProgramUnit writes one unit. Precondition: bits only clears bits.
	ProgramUnit(addr primitives.Address, bits primitives.Unit) error

	// ProgramDoubleUnit atomically writes two adjacent units; the low 32 bits
	// land at addr, the high 32 bits at addr+4.
	ProgramDoubleUnit(addr primitives.Address, bits uint64) error

	// ErasePage resets the page starting at base to all ones.
	ErasePage(base primitives.Address) error
}

// WearReporter is implemented by adapters that count erase cycles per page.
type WearReporter interface {
	EraseCounts() []uint64
}

var (
	ErrOutOfRange   = errors.New("device: address out of range")
	ErrMisaligned   = errors.New("device: misaligned address")
	ErrBitViolation = errors.New("device: program would set a cleared bit")
	ErrLocked       = errors.New("device: mutation while locked")
	ErrPowerLoss    = errors.New("device: power lost")
	ErrClosed       = errors.New("device: closed")
)
