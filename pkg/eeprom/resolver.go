package eeprom

import (
	storeerr "eepromkv/pkg/error"
	"eepromkv/pkg/primitives"
	"fmt"
)

// activePage returns the page whose marker is ACTIVE while its sibling's is
// not. Any other pair is an inconsistency that only recovery may resolve.
func (s *Store) activePage() (primitives.PageIndex, error) {
	states, err := s.readStates()
	if err != nil {
		return 0, err
	}

	switch {
	case states[primitives.Page0] == StateActive && states[primitives.Page1] != StateActive:
		return primitives.Page0, nil
	case states[primitives.Page1] == StateActive && states[primitives.Page0] != StateActive:
		return primitives.Page1, nil
	default:
		return 0, storeerr.Inconsistent("ActivePage",
			fmt.Sprintf("page0=%s page1=%s", states[primitives.Page0], states[primitives.Page1]))
	}
}
