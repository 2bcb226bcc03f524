package main

import (
	"eepromkv/pkg/device"
	"eepromkv/pkg/eeprom"
	"eepromkv/pkg/primitives"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func writeImage(t *testing.T) primitives.Filepath {
	t.Helper()
	path := primitives.Filepath(filepath.Join(t.TempDir(), "eeprom.img"))

	cfg := eeprom.DefaultConfig()
	region, err := cfg.Geometry.Region()
	if err != nil {
		t.Fatalf("Region failed: %v", err)
	}
	dev, err := device.OpenFileFlash(path, region)
	if err != nil {
		t.Fatalf("OpenFileFlash failed: %v", err)
	}
	defer dev.Close()

	store, err := eeprom.New(dev, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := store.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	for _, w := range []struct {
		id    primitives.VariableID
		value uint32
	}{{eeprom.Param1, 0x1111}, {eeprom.Param2, 0x2222}, {eeprom.Param1, 0x3333}} {
		if err := store.Write(w.id, w.value); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	return path
}

func TestLoadImage_ReadsBothPages(t *testing.T) {
	path := writeImage(t)

	msg := loadImage(path, eeprom.DefaultGeometry())().(imageLoadedMsg)
	if msg.err != nil {
		t.Fatalf("loadImage failed: %v", msg.err)
	}
	if msg.pages[0].State != eeprom.StateActive || len(msg.pages[0].Records) != 3 {
		t.Errorf("page0 = %s with %d records", msg.pages[0].State, len(msg.pages[0].Records))
	}
	if msg.pages[1].State != eeprom.StateCleared {
		t.Errorf("page1 = %s, want CLEARED", msg.pages[1].State)
	}
}

func TestLoadImage_MissingFile(t *testing.T) {
	path := primitives.Filepath(filepath.Join(t.TempDir(), "missing.img"))
	msg := loadImage(path, eeprom.DefaultGeometry())().(imageLoadedMsg)
	if msg.err == nil {
		t.Fatal("expected error for missing image")
	}
	if path.Exists() {
		t.Error("inspector must not create the image")
	}
}

func TestPageModel_Navigation(t *testing.T) {
	path := writeImage(t)
	m := initialPageModel(path)

	next, _ := m.Update(loadImage(path, m.geometry)())
	m = next.(pageModel)
	if m.currentView != "overview" {
		t.Fatalf("view = %q, want overview", m.currentView)
	}
	if !strings.Contains(m.View(), "0x12121212 = 13107") {
		t.Error("expected latest Param1 value in overview")
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(pageModel)
	if m.currentView != "records" || m.cursor != primitives.Page0 {
		t.Fatalf("view = %q cursor = %s, want records on page0", m.currentView, m.cursor)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	m = next.(pageModel)
	if m.cursor != primitives.Page1 {
		t.Errorf("cursor = %s, want page1", m.cursor)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(pageModel)
	if m.currentView != "overview" {
		t.Errorf("view = %q, want overview after esc", m.currentView)
	}
}

func TestIsLastFor(t *testing.T) {
	records := []eeprom.Record{
		{ID: 1, Value: 10},
		{ID: 2, Value: 20},
		{ID: 1, Value: 11},
	}
	want := []bool{false, true, true}
	for i, w := range want {
		if got := isLastFor(records, i); got != w {
			t.Errorf("isLastFor(%d) = %v, want %v", i, got, w)
		}
	}
}
