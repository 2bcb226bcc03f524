package eeprom

import (
	"eepromkv/pkg/device"
	storeerr "eepromkv/pkg/error"
	"eepromkv/pkg/primitives"
	"fmt"
	"log/slog"
	"math"
)

const (
	// RecordSize is the width of one (identifier, value) record.
	RecordSize = primitives.DoubleUnitSize

	// DataOffset is where the data region starts inside a page. The marker
	// occupies the first unit; the rest keeps records double-unit aligned.
	DataOffset = RecordSize
)

// Variables of the default schema.
const (
	Param1 primitives.VariableID = 0x12121212
	Param2 primitives.VariableID = 0x34343434
)

// Geometry places the two pages on the device.
type Geometry struct {
	Pages    [primitives.NumPages]primitives.Address
	PageSize uint32
}

// DefaultGeometry is the last two 1 KiB pages of a 128 KiB part.
func DefaultGeometry() Geometry {
	return Geometry{
		Pages:    [primitives.NumPages]primitives.Address{0x0801F800, 0x0801FC00},
		PageSize: 1024,
	}
}

// Base returns the first address of page p, where its marker lives.
func (g Geometry) Base(p primitives.PageIndex) primitives.Address {
	return g.Pages[p]
}

// firstSlot returns the address of the first record slot of page p.
func (g Geometry) firstSlot(p primitives.PageIndex) primitives.Address {
	return g.Pages[p] + DataOffset
}

// lastSlot returns the address of the last record slot of page p.
func (g Geometry) lastSlot(p primitives.PageIndex) primitives.Address {
	return g.Pages[p] + primitives.Address(g.PageSize) - RecordSize
}

// Capacity is the number of records that fit in one data region.
func (g Geometry) Capacity() int {
	return int((g.PageSize - DataOffset) / RecordSize)
}

// Region returns the device region spanning both pages. It fails when the
// pages are not adjacent.
func (g Geometry) Region() (device.Region, error) {
	lo, hi := g.Pages[0], g.Pages[1]
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi-lo != primitives.Address(g.PageSize) {
		return device.Region{}, fmt.Errorf("pages %v and %v are not adjacent", g.Pages[0], g.Pages[1])
	}
	return device.Region{Base: lo, PageSize: g.PageSize, NumPages: primitives.NumPages}, nil
}

func (g Geometry) validate() error {
	if g.PageSize%RecordSize != 0 || g.PageSize < DataOffset+2*RecordSize {
		return fmt.Errorf("page size %d must be a multiple of %d holding at least two records", g.PageSize, RecordSize)
	}
	for i, base := range g.Pages {
		if !base.IsAligned(RecordSize) {
			return fmt.Errorf("page%d base %v is not %d-byte aligned", i, base, RecordSize)
		}
		if uint64(base)+uint64(g.PageSize) > math.MaxUint32+1 {
			return fmt.Errorf("page%d at %v runs past the end of the address space", i, base)
		}
	}
	lo, hi := g.Pages[0], g.Pages[1]
	if hi < lo {
		lo, hi = hi, lo
	}
	if uint64(lo)+uint64(g.PageSize) > uint64(hi) {
		return fmt.Errorf("pages %v and %v overlap", g.Pages[0], g.Pages[1])
	}
	return nil
}

// Schema is the closed set of variables a store accepts. It is fixed when
// the store is built and cannot be extended afterwards.
type Schema struct {
	ids []primitives.VariableID
}

// NewSchema builds a schema from the given identifiers, in transfer order.
func NewSchema(ids ...primitives.VariableID) Schema {
	return Schema{ids: append([]primitives.VariableID(nil), ids...)}
}

// DefaultSchema holds Param1 and Param2.
func DefaultSchema() Schema {
	return NewSchema(Param1, Param2)
}

// Contains reports whether id belongs to the schema.
func (s Schema) Contains(id primitives.VariableID) bool {
	for _, v := range s.ids {
		if v == id {
			return true
		}
	}
	return false
}

// IDs returns a copy of the identifiers in schema order.
func (s Schema) IDs() []primitives.VariableID {
	return append([]primitives.VariableID(nil), s.ids...)
}

// Len returns the number of variables.
func (s Schema) Len() int {
	return len(s.ids)
}

func (s Schema) validate(capacity int) error {
	if len(s.ids) == 0 {
		return fmt.Errorf("schema is empty")
	}
	if len(s.ids) > capacity {
		return fmt.Errorf("schema has %d variables but a page holds %d records", len(s.ids), capacity)
	}
	seen := make(map[primitives.VariableID]struct{}, len(s.ids))
	for _, id := range s.ids {
		if id == primitives.ReservedVariableID {
			return fmt.Errorf("identifier %v is reserved for unprogrammed slots", id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("identifier %v listed twice", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Config holds everything needed to build a Store.
type Config struct {
	Geometry Geometry
	Schema   Schema

	// Logger overrides the package logger; nil uses logging.WithComponent("eeprom").
	Logger *slog.Logger
}

// DefaultConfig reproduces the classic two-variable layout.
func DefaultConfig() Config {
	return Config{
		Geometry: DefaultGeometry(),
		Schema:   DefaultSchema(),
	}
}

// Validate rejects geometries and schemas the store cannot operate on.
func (c Config) Validate() error {
	if err := c.Geometry.validate(); err != nil {
		return storeerr.InvalidConfig(err.Error())
	}
	if err := c.Schema.validate(c.Geometry.Capacity()); err != nil {
		return storeerr.InvalidConfig(err.Error())
	}
	return nil
}
