// Package table models the loosely typed metadata tables exchanged between
// pipeline stages.
//
// Column sets vary per accession, so a Row maps column names to string values
// and the owning Table's Header fixes column order. Readers normalize text to
// Unicode NFC so identical strain or sample identifiers compare equal no
// matter which source emitted them.
package table
