// Package preflight provides readiness checks for the directories, index
// backends, and remote services the viewer daemon depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll once at startup and republishes the results
//     through the status API so a broken blob directory or unreachable
//     DICOMweb origin is visible without digging through logs.
//   - The CLI "lightbox status" command uses individual check functions to
//     display environment health next to the daemon state.
//
// Each check is gated by its config driver selection; backends that are not
// configured are skipped. Checks report, they never abort startup on their
// own.
package preflight
