package main

import (
	"eepromkv/pkg/device"
	"eepromkv/pkg/eeprom"
	"eepromkv/pkg/primitives"
	"strings"
	"sync"
	"testing"
)

func newCollector(t *testing.T) *MetricsCollector {
	t.Helper()
	cfg := eeprom.Config{
		Geometry: eeprom.Geometry{
			Pages:    [primitives.NumPages]primitives.Address{0x2000, 0x2040},
			PageSize: 64,
		},
		Schema: eeprom.NewSchema(1, 2),
	}

	region, err := cfg.Geometry.Region()
	if err != nil {
		t.Fatalf("Region failed: %v", err)
	}
	flash, err := device.NewFlash(region)
	if err != nil {
		t.Fatalf("NewFlash failed: %v", err)
	}
	store, err := eeprom.New(flash, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := store.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return NewMetricsCollector(store, flash)
}

func TestMetricsCollector_CountsWritesAndTransfers(t *testing.T) {
	mc := newCollector(t)

	// Seven slots per page: the eighth write transfers.
	for i := uint32(0); i < 8; i++ {
		if err := mc.Write(1, i); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := mc.Write(99, 0); err == nil {
		t.Fatal("expected error for identifier outside schema")
	}

	out := mc.GetMetrics()
	for _, want := range []string{
		"eepromkv_writes_total 9",
		"eepromkv_write_errors_total 1",
		"eepromkv_transfers_total 1",
		`eepromkv_page_active{page="1"} 1`,
		`eepromkv_page_active{page="0"} 0`,
		`eepromkv_page_free_slots{page="1"} 6`,
		"eepromkv_up 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in metrics:\n%s", want, out)
		}
	}
}

func TestMetricsCollector_SerialisesConcurrentWriters(t *testing.T) {
	mc := newCollector(t)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(id primitives.VariableID) {
			defer wg.Done()
			for i := uint32(0); i < 50; i++ {
				if err := mc.Write(id, i); err != nil {
					t.Errorf("Write failed: %v", err)
					return
				}
			}
		}(primitives.VariableID(w%2 + 1))
	}
	wg.Wait()

	if !strings.Contains(mc.GetMetrics(), "eepromkv_writes_total 200") {
		t.Error("expected all 200 writes to be counted")
	}
	got, err := mc.store.Read(1)
	if err != nil || got != 49 {
		t.Errorf("Read(1) = %d, %v; want 49", got, err)
	}
}
