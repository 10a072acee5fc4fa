// Package merge concatenates raw per-accession tables into the merged table.
//
// The merged artifact records the ordered accessions it was built from. A
// later run that names additional accessions rebuilds the table from the
// recorded sources followed by the new ones, reading sources that were already
// consumed from their gzip archive. A run that adds nothing returns the
// existing table untouched.
package merge
