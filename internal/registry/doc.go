// Package registry maintains ENA_strain_list.json, the accumulated list of
// strain IDs consumed by downstream workflows.
//
// The registry only grows: a run appends strain IDs it has not seen before
// and never drops earlier ones. A registry file that cannot be decoded as a
// JSON array of strings is reported as corrupt and never treated as empty.
package registry
