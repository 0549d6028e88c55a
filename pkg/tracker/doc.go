// Package tracker records which volumes the current run unmounted and is
// therefore responsible for remounting.
//
// A volume is registered only after its unmount succeeded, released after its
// remount succeeded, and marked stranded (still registered) when the remount
// failed. Stranded volumes are manual-intervention items for the rest of the run;
// they are never retried.
//
// Logging levels:
//   - V(2): state transitions
//   - V(4): persistence activity
package tracker
