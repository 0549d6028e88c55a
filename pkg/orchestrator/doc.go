// Package orchestrator drives the per-volume disk check pipeline and the
// cleanup that puts volumes back when the run ends or is interrupted.
//
// Volumes are processed sequentially in host order: system check, classify,
// mount state, unmount, policy, remount. No per-volume failure aborts the run.
// Cancellation is observed between volumes and before the policy step; host
// calls already in flight are never interrupted.
//
// Logging levels:
//   - V(2): per-volume results
//   - V(4): pipeline steps
package orchestrator
