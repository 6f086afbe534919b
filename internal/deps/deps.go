package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external program a pipeline stage delegates to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Stages      []string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Requirement
	Path      string
	Available bool
	Detail    string
}

// CheckBinaries resolves every requirement on PATH and reports availability in
// the order given. It never stops at the first miss.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		status := Status{Requirement: req}
		if req.Command == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := exec.LookPath(req.Command)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", req.Command)
			results = append(results, status)
			continue
		}
		status.Path = path
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the commands of required, unavailable entries.
func Missing(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if status.Available || status.Optional {
			continue
		}
		missing = append(missing, status.Command)
	}
	return missing
}
