package primitives

import "testing"

func TestPageIndex_Other(t *testing.T) {
	if Page0.Other() != Page1 {
		t.Errorf("expected page0 sibling to be page1, got %v", Page0.Other())
	}
	if Page1.Other() != Page0 {
		t.Errorf("expected page1 sibling to be page0, got %v", Page1.Other())
	}
}

func TestAddress_IsAligned(t *testing.T) {
	tests := []struct {
		addr  Address
		align uint32
		want  bool
	}{
		{0x0801F800, DoubleUnitSize, true},
		{0x0801F804, DoubleUnitSize, false},
		{0x0801F804, UnitSize, true},
		{0x0801F802, UnitSize, false},
	}

	for _, tt := range tests {
		if got := tt.addr.IsAligned(tt.align); got != tt.want {
			t.Errorf("%v aligned to %d: expected %v, got %v", tt.addr, tt.align, tt.want, got)
		}
	}
}

func TestStringers(t *testing.T) {
	if got := Address(0x0801F800).String(); got != "0x0801F800" {
		t.Errorf("unexpected address string %q", got)
	}
	if got := VariableID(0x12121212).String(); got != "0x12121212" {
		t.Errorf("unexpected variable string %q", got)
	}
	if got := Page1.String(); got != "page1" {
		t.Errorf("unexpected page string %q", got)
	}
}
