package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"git.srvlab.io/whiskey/diskcheck/pkg/policy"
)

const menuText = `
Select an option:
1) Run normally
2) Dry run (simulate actions without making changes)
3) Run non-interactively
4) Exit
`

var menuChoices = map[string]policy.Mode{
	"1": policy.ModeNormal,
	"2": policy.ModeDryRun,
	"3": policy.ModeNonInteractive,
}

// promptMode shows the menu until a valid choice is read. proceed is false when
// the operator chose to exit or stdin closed.
func promptMode(in io.Reader, out io.Writer) (mode policy.Mode, proceed bool, err error) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, menuText)
		fmt.Fprint(out, "Enter your choice [1-4]: ")

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return policy.ModeNormal, false, fmt.Errorf("reading menu choice: %w", err)
			}
			fmt.Fprintln(out, "\nExiting.")
			return policy.ModeNormal, false, nil
		}

		choice := strings.TrimSpace(scanner.Text())
		if choice == "4" {
			fmt.Fprintln(out, "Exiting.")
			return policy.ModeNormal, false, nil
		}
		if mode, ok := menuChoices[choice]; ok {
			return mode, true, nil
		}
		fmt.Fprintln(out, "Invalid choice. Please enter a number between 1 and 4.")
	}
}
