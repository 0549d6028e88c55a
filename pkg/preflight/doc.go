// Package preflight holds the startup preconditions of a disk check run. Each
// failed precondition writes manual-intervention entries to the audit log and
// returns an error the caller treats as fatal.
//
// Logging levels:
//   - V(2): precondition results
//   - V(4): individual command lookups
package preflight
