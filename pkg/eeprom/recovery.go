package eeprom

import (
	"eepromkv/pkg/primitives"
	"fmt"
)

// recoveryKind is what Init does for one marker pair.
type recoveryKind uint8

const (
	// recoverUndefined is the zero value; the plan table must never hold it.
	recoverUndefined recoveryKind = iota

	// recoverKeep: the pair is stable, nothing to do.
	recoverKeep

	// recoverFormat: the pair is ambiguous or empty; erase both pages and
	// start over with page0 ACTIVE.
	recoverFormat

	// recoverPromote: the RECEIVING page finished its copy before the
	// interruption; clear the sibling if needed and mark it ACTIVE.
	recoverPromote

	// recoverReplay: a transfer was cut short while the old page was still
	// ACTIVE; redo the whole copy from the old page.
	recoverReplay

	// recoverDiscard: one page is ACTIVE and the other holds an unreadable
	// marker; clear the unreadable page.
	recoverDiscard
)

func (k recoveryKind) String() string {
	switch k {
	case recoverKeep:
		return "keep"
	case recoverFormat:
		return "format"
	case recoverPromote:
		return "promote"
	case recoverReplay:
		return "replay"
	case recoverDiscard:
		return "discard"
	default:
		return "undefined"
	}
}

// recoveryStep is a plan entry. page is the page that ends up ACTIVE; it is
// ignored for recoverFormat, which always activates page0.
type recoveryStep struct {
	kind recoveryKind
	page primitives.PageIndex
}

func (r recoveryStep) String() string {
	if r.kind == recoverFormat {
		return r.kind.String()
	}
	return fmt.Sprintf("%s(%s)", r.kind, r.page)
}

// recoveryPlan is indexed by [state of page0][state of page1] and covers
// every pair, including unreadable markers. An unknown marker is dispatched
// like CLEARED, and the page carrying it is erased before it is used again.
// Replay clears the old page before marking the target ACTIVE, so no
// (ACTIVE, ACTIVE) pair is ever left on the device.
var recoveryPlan = [numStates][numStates]recoveryStep{
	StateCleared: {
		StateCleared:   {kind: recoverFormat},
		StateActive:    {kind: recoverKeep, page: primitives.Page1},
		StateReceiving: {kind: recoverPromote, page: primitives.Page1},
		StateUnknown:   {kind: recoverFormat},
	},
	StateActive: {
		StateCleared:   {kind: recoverKeep, page: primitives.Page0},
		StateActive:    {kind: recoverFormat},
		StateReceiving: {kind: recoverReplay, page: primitives.Page1},
		StateUnknown:   {kind: recoverDiscard, page: primitives.Page0},
	},
	StateReceiving: {
		StateCleared:   {kind: recoverPromote, page: primitives.Page0},
		StateActive:    {kind: recoverReplay, page: primitives.Page0},
		StateReceiving: {kind: recoverFormat},
		StateUnknown:   {kind: recoverPromote, page: primitives.Page0},
	},
	StateUnknown: {
		StateCleared:   {kind: recoverFormat},
		StateActive:    {kind: recoverDiscard, page: primitives.Page1},
		StateReceiving: {kind: recoverPromote, page: primitives.Page1},
		StateUnknown:   {kind: recoverFormat},
	},
}

// runRecovery reads both markers once and applies the plan for the pair.
func (s *Store) runRecovery() error {
	states, err := s.readStates()
	if err != nil {
		return err
	}

	step := recoveryPlan[states[primitives.Page0]][states[primitives.Page1]]
	s.stats.LastRecovery = step.String()
	s.log.Info("recovery",
		"page0", states[primitives.Page0].String(),
		"page1", states[primitives.Page1].String(),
		"action", step.String())

	switch step.kind {
	case recoverKeep:
		return nil
	case recoverFormat:
		return s.format()
	case recoverPromote:
		return s.promote(step.page, states[step.page.Other()])
	case recoverReplay:
		return s.replay(step.page)
	case recoverDiscard:
		return s.clearPage(step.page.Other())
	default:
		panic(fmt.Sprintf("eeprom: no recovery step for %s/%s", states[0], states[1]))
	}
}

// promote finalises a transfer whose copy loop had completed: the sibling is
// cleared unless it already is, then p becomes ACTIVE.
func (s *Store) promote(p primitives.PageIndex, sibling PageState) error {
	if sibling != StateCleared {
		if err := s.clearPage(p.Other()); err != nil {
			return err
		}
	}
	return s.setState(p, StateActive)
}

// replay redoes an interrupted transfer into target from the still ACTIVE
// sibling. Whatever target already holds is discarded, not resumed: it is
// erased and re-marked RECEIVING, then every live value is copied again.
// The old page is cleared before target is marked ACTIVE, the same order a
// normal transfer uses, so a second interruption is again recoverable.
func (s *Store) replay(target primitives.PageIndex) error {
	old := target.Other()
	s.log.Warn("replaying interrupted transfer", "from", old.String(), "to", target.String())

	if err := s.clearPage(target); err != nil {
		return err
	}
	if err := s.setState(target, StateReceiving); err != nil {
		return err
	}

	if _, err := s.copyLive(target, s.geo.firstSlot(target), primitives.ReservedVariableID); err != nil {
		return err
	}

	if err := s.clearPage(old); err != nil {
		return err
	}
	if err := s.setState(target, StateActive); err != nil {
		return err
	}

	s.stats.Replays++
	return nil
}
