// Package checker assembles a disk check run: host capability, tracker,
// orchestrator, cleanup, metrics and crash-recovery state.
//
// # Logging Verbosity Convention
//
// This package follows Kubernetes logging conventions for verbosity levels:
//
//   - V(0): Always visible - startup failures, programmer errors
//   - V(1): Configuration
//   - V(2): Production default - run outcomes, state changes
//     Examples: "Run 3f2a finished", "Remounted disk2s1"
//   - V(4): Debug level - intermediate steps, parameters, diagnostics
//     Examples: "Describing disk2s1", "Loaded 0 stale entries"
//   - V(5): Trace level - command lines and raw diskutil output
//
// V(3) is avoided in favor of V(2) (if actionable) or V(4) (if diagnostic).
//
// The audit log, not klog, is the operator-facing record of a run. klog output
// goes to stderr and is silent at the default verbosity except for warnings.
package checker
