package eeprom

import (
	"eepromkv/pkg/primitives"
)

// transfer moves the live data set from the full page old to its sibling
// and appends (id, value) on the way. Until the final marker write the old
// page stays ACTIVE, so every intermediate state is recoverable by Init.
func (s *Store) transfer(old primitives.PageIndex, id primitives.VariableID, value uint32) error {
	target := old.Other()
	log := s.log.With("from", old.String(), "to", target.String())
	log.Info("page transfer started", "variable", id.String())

	if err := s.prepareTarget(target); err != nil {
		return err
	}
	if err := s.setState(target, StateReceiving); err != nil {
		return err
	}

	// The new value goes first so it survives an interruption of the copy.
	next := s.geo.firstSlot(target)
	if err := s.appendRecord(next, id, value); err != nil {
		return err
	}
	next += RecordSize

	if _, err := s.copyLive(target, next, id); err != nil {
		return err
	}

	if err := s.clearPage(old); err != nil {
		return err
	}
	if err := s.setState(target, StateActive); err != nil {
		return err
	}

	s.stats.Transfers++
	log.Info("page transfer finished")
	return nil
}

// copyLive appends the current value of every schema variable except skip
// to target, starting at next. Values are read through the normal lookup,
// which still resolves to the old ACTIVE page because target is RECEIVING.
// Variables that were never written stay absent. It returns the next free
// slot.
func (s *Store) copyLive(target primitives.PageIndex, next primitives.Address, skip primitives.VariableID) (primitives.Address, error) {
	for _, v := range s.schema.ids {
		if v == skip {
			continue
		}

		current, err := s.lookup(v)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return next, err
		}

		if err := s.appendRecord(next, v, current); err != nil {
			return next, err
		}
		next += RecordSize
	}
	return next, nil
}

// prepareTarget makes sure a transfer target holds nothing but ones. A page
// whose marker reads CLEARED can still carry data after an interrupted erase.
func (s *Store) prepareTarget(p primitives.PageIndex) error {
	blank, err := s.isBlank(p)
	if err != nil {
		return err
	}
	if blank {
		return nil
	}

	s.log.Warn("transfer target not blank, erasing", "page", p.String())
	return s.clearPage(p)
}
