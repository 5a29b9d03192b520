// Package deps verifies the external binaries papermill shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"papermill/internal/config"
)

// Requirement defines an external dependency papermill relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// ForConfig derives the requirement list from the active configuration.
func ForConfig(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "Document converter",
			Command:     cfg.Converter.Binary,
			Description: "headless converter invoked for every job",
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		default:
			if _, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}

// Verify returns an error when any required dependency is unavailable. The
// daemon refuses to start rather than fail every job at spawn time.
func Verify(cfg *config.Config) error {
	for _, status := range CheckBinaries(ForConfig(cfg)) {
		if status.Optional || status.Available {
			continue
		}
		return fmt.Errorf("missing required dependency %s: %s", status.Name, status.Detail)
	}
	return nil
}
