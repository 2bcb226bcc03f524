package device

import (
	"errors"
	"testing"

	"eepromkv/pkg/primitives"
)

var (
	_ Device       = (*Flash)(nil)
	_ Device       = (*FileFlash)(nil)
	_ WearReporter = (*Flash)(nil)
	_ WearReporter = (*FileFlash)(nil)
)

const testBase primitives.Address = 0x0801F800

func newTestFlash(t *testing.T) *Flash {
	t.Helper()
	f, err := NewFlash(Region{Base: testBase, PageSize: 1024, NumPages: 2})
	if err != nil {
		t.Fatalf("NewFlash failed: %v", err)
	}
	return f
}

func TestNewFlash_StartsErased(t *testing.T) {
	f := newTestFlash(t)

	for _, addr := range []primitives.Address{testBase, testBase + 4, testBase + 1024, testBase + 2044} {
		got, err := f.ReadUnit(addr)
		if err != nil {
			t.Fatalf("ReadUnit(%v) failed: %v", addr, err)
		}
		if got != primitives.ErasedUnit {
			t.Errorf("ReadUnit(%v) = 0x%08X, want erased", addr, got)
		}
	}
}

func TestNewFlash_InvalidRegion(t *testing.T) {
	tests := []struct {
		name   string
		region Region
	}{
		{"no pages", Region{Base: testBase, PageSize: 1024, NumPages: 0}},
		{"odd page size", Region{Base: testBase, PageSize: 1020, NumPages: 2}},
		{"misaligned base", Region{Base: testBase + 4, PageSize: 1024, NumPages: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewFlash(tt.region); err == nil {
				t.Error("expected region to be rejected")
			}
		})
	}
}

func TestFlash_ProgramOnlyClearsBits(t *testing.T) {
	f := newTestFlash(t)

	if err := f.ProgramUnit(testBase, 0x55555555); err != nil {
		t.Fatalf("first program failed: %v", err)
	}
	if err := f.ProgramUnit(testBase, 0x00000000); err != nil {
		t.Fatalf("clearing more bits should succeed: %v", err)
	}
	err := f.ProgramUnit(testBase, 0x55555555)
	if !errors.Is(err, ErrBitViolation) {
		t.Fatalf("expected ErrBitViolation, got %v", err)
	}

	got, _ := f.ReadUnit(testBase)
	if got != 0 {
		t.Errorf("rejected program must not change contents, got 0x%08X", got)
	}
}

func TestFlash_ProgramDoubleUnitLayout(t *testing.T) {
	f := newTestFlash(t)
	addr := testBase + 8

	if err := f.ProgramDoubleUnit(addr, uint64(0xCAFEBABE)<<32|0x12121212); err != nil {
		t.Fatalf("ProgramDoubleUnit failed: %v", err)
	}

	lo, _ := f.ReadUnit(addr)
	hi, _ := f.ReadUnit(addr + 4)
	if lo != 0x12121212 || hi != 0xCAFEBABE {
		t.Errorf("got lo=0x%08X hi=0x%08X", lo, hi)
	}
	if f.ProgramCount() != 1 {
		t.Errorf("expected 1 program, got %d", f.ProgramCount())
	}
}

func TestFlash_AlignmentAndRange(t *testing.T) {
	f := newTestFlash(t)

	if _, err := f.ReadUnit(testBase + 2); !errors.Is(err, ErrMisaligned) {
		t.Errorf("expected ErrMisaligned for read, got %v", err)
	}
	if err := f.ProgramDoubleUnit(testBase+4, 0); !errors.Is(err, ErrMisaligned) {
		t.Errorf("expected ErrMisaligned for double program, got %v", err)
	}
	if _, err := f.ReadUnit(testBase + 2048); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange past the end, got %v", err)
	}
	if _, err := f.ReadUnit(testBase - 4); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange before the base, got %v", err)
	}
	if err := f.ErasePage(testBase + 8); !errors.Is(err, ErrMisaligned) {
		t.Errorf("expected ErrMisaligned for erase inside a page, got %v", err)
	}
}

func TestFlash_EraseResetsPageAndCounts(t *testing.T) {
	f := newTestFlash(t)

	_ = f.ProgramUnit(testBase+1024, 0)
	_ = f.ProgramUnit(testBase, 0)

	if err := f.ErasePage(testBase + 1024); err != nil {
		t.Fatalf("ErasePage failed: %v", err)
	}

	if got, _ := f.ReadUnit(testBase + 1024); got != primitives.ErasedUnit {
		t.Errorf("erased page still holds 0x%08X", got)
	}
	if got, _ := f.ReadUnit(testBase); got != 0 {
		t.Errorf("erase must not touch the other page, got 0x%08X", got)
	}

	counts := f.EraseCounts()
	if counts[0] != 0 || counts[1] != 1 {
		t.Errorf("unexpected erase counts %v", counts)
	}
}

func TestFlash_CutPowerAfter(t *testing.T) {
	f := newTestFlash(t)
	f.CutPowerAfter(2)

	if err := f.ProgramUnit(testBase, 0x55555555); err != nil {
		t.Fatalf("op 1 should succeed: %v", err)
	}
	if err := f.ProgramUnit(testBase+8, 0); err != nil {
		t.Fatalf("op 2 should succeed: %v", err)
	}
	if err := f.ErasePage(testBase); !errors.Is(err, ErrPowerLoss) {
		t.Fatalf("op 3 should lose power, got %v", err)
	}
	if err := f.ProgramUnit(testBase+16, 0); !errors.Is(err, ErrPowerLoss) {
		t.Fatalf("power should stay lost, got %v", err)
	}

	if got, _ := f.ReadUnit(testBase); got != 0x55555555 {
		t.Errorf("reads keep working and see pre-cut data, got 0x%08X", got)
	}

	f.RestorePower()
	if err := f.ProgramUnit(testBase+16, 0); err != nil {
		t.Fatalf("program after restore failed: %v", err)
	}
}

func TestFlash_CloneIsIndependent(t *testing.T) {
	f := newTestFlash(t)
	_ = f.ProgramUnit(testBase, 0x55555555)

	c := f.Clone()
	_ = c.ProgramUnit(testBase, 0)

	if got, _ := f.ReadUnit(testBase); got != 0x55555555 {
		t.Errorf("original changed through clone: 0x%08X", got)
	}
	if got, _ := c.ReadUnit(testBase); got != 0 {
		t.Errorf("clone did not take the write: 0x%08X", got)
	}
}

func TestFlash_PokeBypassesRules(t *testing.T) {
	f := newTestFlash(t)
	_ = f.ProgramUnit(testBase, 0)

	if err := f.Poke(testBase, 0x12345678); err != nil {
		t.Fatalf("Poke failed: %v", err)
	}
	if got, _ := f.ReadUnit(testBase); got != 0x12345678 {
		t.Errorf("expected poked value, got 0x%08X", got)
	}
}
