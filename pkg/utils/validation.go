package utils

import (
	"fmt"
	"strings"
)

// Shell metacharacters that could be used for command injection
var dangerousCharacters = []string{
	";",    // Command separator
	"|",    // Pipe
	"&",    // Background/AND
	"$",    // Variable expansion
	"`",    // Command substitution
	"(",    // Subshell
	")",    // Subshell
	"<",    // Input redirection
	">",    // Output redirection
	"\n",   // Newline (command separator)
	"\r",   // Carriage return
	"*",    // Glob wildcard
	"?",    // Glob wildcard
	"'",    // String delimiter (can break out of quotes)
	"\"",   // String delimiter (can break out of quotes)
	"\\",   // Escape character
	"\t",   // Tab (can cause parsing issues)
	" ",    // Argument splitting
	"\x00", // Null byte
}

// ValidateDiskIdentifier checks that id is safe to hand to the host disk tool.
// Identifiers come from host listings, but are re-checked before every exec.
func ValidateDiskIdentifier(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidIdentifier)
	}

	for _, char := range dangerousCharacters {
		if strings.Contains(id, char) {
			return fmt.Errorf("%w: contains dangerous character %q: %s", ErrInvalidIdentifier, char, id)
		}
	}

	if !DiskIdentifierPattern.MatchString(id) {
		return fmt.Errorf("%w: %s does not look like a disk identifier", ErrInvalidIdentifier, id)
	}

	return nil
}

// ValidateCommandName checks a required command name taken from configuration
func ValidateCommandName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty command name", ErrInvalidConfig)
	}
	for _, char := range dangerousCharacters {
		if strings.Contains(name, char) {
			return fmt.Errorf("%w: command %q contains dangerous character %q", ErrInvalidConfig, name, char)
		}
	}
	return nil
}

// BareIdentifier strips a /dev/ prefix so identifiers compare consistently.
func BareIdentifier(id string) string {
	return strings.TrimPrefix(id, "/dev/")
}

// DeviceNode returns the /dev path for a bare or already-qualified identifier.
func DeviceNode(id string) string {
	if strings.HasPrefix(id, "/dev/") {
		return id
	}
	return "/dev/" + id
}
