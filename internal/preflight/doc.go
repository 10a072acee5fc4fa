// Package preflight provides readiness checks for the results directory and
// the ENA portal.
//
// These checks run in two contexts:
//   - The pipeline runner calls RunAll before any stage writes. If a check
//     fails, the run aborts before touching existing artifacts.
//   - The CLI "strainmanifest status" command uses individual check functions
//     (CheckDirectoryAccess, CheckPortal) to display environment health.
package preflight
