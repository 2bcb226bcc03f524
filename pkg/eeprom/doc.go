// Package eeprom emulates a small set of non-volatile 32-bit variables on
// top of two erasable flash pages.
//
// # Layout
//
// Each page starts with a one-unit state marker, padded to the record
// width, followed by a data region of fixed 8-byte records:
//
//	+--------+-----+----------------+----------------+-----
//	| marker | pad | id | value     | id | value     | ...
//	+--------+-----+----------------+----------------+-----
//	0        4     8                16               24
//
// Records are appended left to right and never rewritten, so the most
// recent value of a variable is the highest-addressed record carrying its
// identifier. An identifier of 0xFFFFFFFF marks an unprogrammed slot.
//
// # Page states
//
// The marker encodings are chosen so that an erase yields CLEARED and the
// forward transitions CLEARED -> RECEIVING -> ACTIVE only clear bits:
//
//	CLEARED   0xFFFFFFFF
//	RECEIVING 0x55555555
//	ACTIVE    0x00000000
//
// Exactly one page is ACTIVE outside of a transfer. When the ACTIVE page
// fills up, a transfer copies the live value of every variable into the
// other page (RECEIVING while copying), erases the old page and only then
// marks the new one ACTIVE.
//
// # Recovery
//
// Init inspects both markers and drives the device back to a stable pair,
// replaying an interrupted transfer or reformatting when the pair is
// ambiguous. Read and Write are rejected until Init (or Format) succeeds.
//
// A Store is not safe for concurrent use. Callers sharing one store must
// serialise Init, Read, Write and Format with their own lock.
package eeprom
