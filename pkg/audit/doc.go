// Package audit writes the two per-run artifacts operators read after a disk
// check: the full activity log and the manual-intervention log.
//
// Every entry is one line, "2006-01-02 15:04:05,000 - LEVEL - message", written
// with a single Write call under one mutex so lines never interleave. Error
// entries go to both files; info entries go to the full log only. Both are echoed
// to the console.
//
// Finalize appends the "Summary of Recommendations" block to the
// manual-intervention log exactly once per run.
//
// Logging levels (klog mirror of audit entries):
//   - V(2): errors
//   - V(4): info entries and file lifecycle
package audit
