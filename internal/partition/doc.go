// Package partition splits the filtered table into one CSV per strain.
//
// Each strain's rows keep their filtered-table order. Strain IDs that are not
// safe file names are percent-escaped, and after a run the strain directory
// holds exactly one file per strain in the current filtered table.
package partition
