package utils

import "regexp"

// This file contains ReDoS-resistant regex patterns used throughout the codebase.

var (
	// DiskIdentifierPattern matches BSD disk identifiers, optionally as device nodes.
	// Examples: disk2, disk2s1, /dev/disk4s2, /dev/rdisk3, disk5s1s1 (sealed snapshot)
	// ReDoS-safe: bounded digit runs and a bounded slice-suffix repetition
	DiskIdentifierPattern = regexp.MustCompile(`^(?:/dev/)?r?disk[0-9]{1,4}(?:s[0-9]{1,4}){0,3}$`)
)
