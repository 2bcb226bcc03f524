package primitives

import (
	"fmt"
	"math"
)

// Address is a byte address on the block device. All unit accesses must be
// aligned to UnitSize.
type Address uint32

// Unit is the smallest atomically readable and programmable quantity of the
// device: one 32-bit word.
type Unit uint32

// VariableID identifies a stored variable. The set of valid identifiers is
// fixed when a store is constructed.
type VariableID uint32

// PageIndex selects one of the two pages used by the store.
type PageIndex uint8

const (
	// UnitSize is the width of a Unit in bytes.
	UnitSize = 4

	// DoubleUnitSize is the width of a double-unit program in bytes.
	DoubleUnitSize = 2 * UnitSize

	// ErasedUnit is the bit pattern every unit holds after an erase.
	ErasedUnit Unit = math.MaxUint32

	// ReservedVariableID marks an unprogrammed record slot and can never be
	// used as a variable identifier.
	ReservedVariableID VariableID = math.MaxUint32
)

const (
	Page0 PageIndex = 0
	Page1 PageIndex = 1

	// NumPages is the number of pages a store cycles between.
	NumPages = 2
)

// Other returns the sibling page.
func (p PageIndex) Other() PageIndex {
	return p ^ 1
}

func (p PageIndex) String() string {
	return fmt.Sprintf("page%d", uint8(p))
}

func (a Address) String() string {
	return fmt.Sprintf("0x%08X", uint32(a))
}

// IsAligned reports whether the address is a multiple of n bytes.
func (a Address) IsAligned(n uint32) bool {
	return uint32(a)%n == 0
}

func (v VariableID) String() string {
	return fmt.Sprintf("0x%08X", uint32(v))
}
