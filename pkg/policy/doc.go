// Package policy decides and executes the filesystem action for one volume.
//
// Supported kinds are verified, and repaired when verification finds issues.
// Unsupported and unknown kinds are logged for manual intervention and never
// touched. Dry runs only report what would be verified.
//
// Logging levels:
//   - V(2): outcomes
//   - V(4): dispatch decisions
package policy
