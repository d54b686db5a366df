package main

import (
	"fmt"
	"os"

	"github.com/duskline/forge/internal/skill"
)

// runSkills implements the `forge skills` subcommand: list the workspace's
// declared skills without starting the REPL.
func runSkills() error {
	workspaceDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve workspace directory: %w", err)
	}
	defs, errs := skill.ScanDir(workspaceDir)
	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "warning: %v\n", e)
	}
	if len(defs) == 0 {
		fmt.Println("no skills found")
		return nil
	}
	for _, d := range defs {
		fmt.Printf("%-20s %s (%s)\n", d.Name, d.Description, d.Runtime)
	}
	return nil
}

func printWorkspaceSkills(workspaceDir string, term *terminal) {
	defs, errs := skill.ScanDir(workspaceDir)
	for _, e := range errs {
		term.printWarning(e.Error())
	}
	if len(defs) == 0 {
		term.printInfo("no skills found")
		return
	}
	for _, d := range defs {
		fmt.Printf("  %-20s %s (%s)\n", d.Name, d.Description, d.Runtime)
	}
}
