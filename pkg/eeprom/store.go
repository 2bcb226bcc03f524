package eeprom

import (
	"eepromkv/pkg/device"
	storeerr "eepromkv/pkg/error"
	"eepromkv/pkg/logging"
	"eepromkv/pkg/primitives"
	"errors"
	"log/slog"
)

// Stats counts store activity since the Store was built.
type Stats struct {
	Appends   uint64
	Transfers uint64
	Formats   uint64
	Replays   uint64

	// LastRecovery names the action taken by the most recent Init.
	LastRecovery string
}

// Store is the emulated EEPROM. Build it with New, then call Init once
// before any Read or Write.
type Store struct {
	dev    device.Device
	geo    Geometry
	schema Schema
	log    *slog.Logger
	ready  bool
	stats  Stats
}

// New validates cfg and binds a store to dev. It does not touch the device.
func New(dev device.Device, cfg Config) (*Store, error) {
	if dev == nil {
		return nil, storeerr.InvalidConfig("device cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = logging.WithComponent("eeprom")
	}

	return &Store{
		dev:    dev,
		geo:    cfg.Geometry,
		schema: NewSchema(cfg.Schema.ids...),
		log:    log,
	}, nil
}

// Init runs recovery and must succeed before Read or Write are accepted.
// A device failure during recovery is returned as is; nothing is retried.
func (s *Store) Init() error {
	s.ready = false
	if err := s.runRecovery(); err != nil {
		s.log.Error("recovery failed", "error", err)
		return err
	}
	s.ready = true
	return nil
}

// Read returns the current value of id.
func (s *Store) Read(id primitives.VariableID) (uint32, error) {
	if err := s.checkReady("Read"); err != nil {
		return 0, err
	}
	return s.lookup(id)
}

// lookup resolves the active page and finds the latest record for id.
func (s *Store) lookup(id primitives.VariableID) (uint32, error) {
	// The reserved id is what an unprogrammed slot reads as.
	if id == primitives.ReservedVariableID {
		return 0, storeerr.NotFound("Read", "id="+id.String())
	}

	page, err := s.activePage()
	if err != nil {
		return 0, err
	}

	value, found, err := s.findLatest(page, id)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, storeerr.NotFound("Read", "id="+id.String())
	}
	return value, nil
}

// Write stores value for id. It appends to the active page when a slot is
// free and runs a page transfer when the page is full.
func (s *Store) Write(id primitives.VariableID, value uint32) error {
	if !s.schema.Contains(id) {
		return storeerr.InvalidIdentifier("Write", "id="+id.String())
	}
	if err := s.checkReady("Write"); err != nil {
		return err
	}

	page, err := s.activePage()
	if err != nil {
		return err
	}

	addr, found, err := s.findFreeSlot(page)
	if err != nil {
		return err
	}
	if found {
		return s.appendRecord(addr, id, value)
	}

	return s.transfer(page, id, value)
}

// Format erases both pages and makes page0 the empty ACTIVE page. Every
// stored value is lost. Calling it twice leaves the same state as once.
func (s *Store) Format() error {
	s.ready = false
	if err := s.format(); err != nil {
		return err
	}
	s.ready = true
	return nil
}

func (s *Store) format() error {
	s.log.Warn("formatting both pages")

	for p := primitives.PageIndex(0); p < primitives.NumPages; p++ {
		if err := s.clearPage(p); err != nil {
			return err
		}
	}
	if err := s.setState(primitives.Page0, StateActive); err != nil {
		return err
	}

	s.stats.Formats++
	return nil
}

func (s *Store) checkReady(op string) error {
	if !s.ready {
		return storeerr.Inconsistent(op, "store not initialised; call Init first")
	}
	return nil
}

// Schema returns the variables accepted by the store.
func (s *Store) Schema() Schema {
	return NewSchema(s.schema.ids...)
}

// Geometry returns the page placement.
func (s *Store) Geometry() Geometry {
	return s.geo
}

// Stats returns a copy of the activity counters.
func (s *Store) Stats() Stats {
	return s.stats
}

func isNotFound(err error) bool {
	return errors.Is(err, storeerr.ErrNotFound)
}
