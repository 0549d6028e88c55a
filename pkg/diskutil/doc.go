// Package diskutil wraps the macOS diskutil command as the host disk capability.
//
// Listings and volume descriptions are requested as property lists and decoded into
// typed models. Mutating operations (unmount, mount, verifyVolume, repairVolume)
// return a *CommandError carrying the tool's raw output so callers can record it
// verbatim.
//
// Host calls are synchronous and are not cancellable; verify and repair can block for
// as long as the physical media takes.
//
// # Logging Verbosity Convention
//
//   - V(2): operation outcomes ("Unmounted disk2s1")
//   - V(4): intermediate steps ("Describing disk2s1")
//   - V(5): command lines and raw output
package diskutil
