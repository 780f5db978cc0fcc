// Package preflight probes the external tools the install plans shell out to. Running it
// before a plan turns "step 3 failed with exit code 127" into "pre-commit is missing"
// while the filesystem is still untouched.
package preflight

import (
	"context"
	"os/exec"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rotisserie/eris"
)

// Status classifies the outcome of a single tool probe.
type Status string

const (
	StatusOK       Status = "ok"
	StatusMissing  Status = "missing"
	StatusOutdated Status = "outdated"
	StatusUnknown  Status = "unknown"
)

// Tool describes one external dependency and how to probe it.
type Tool struct {
	// Name is the label shown to the user.
	Name string

	// Probe is the command that prints the tool's version.
	Probe []string

	// Constraint is a semver range the probed version has to satisfy. Empty accepts any
	// version.
	Constraint string

	// Optional tools don't fail the overall check when they're missing.
	Optional bool

	// Hint tells the user where to get the tool.
	Hint string
}

// Result is the outcome of probing a single tool.
type Result struct {
	Tool    Tool
	Status  Status
	Version string
	Err     error
}

var execCommandContext = exec.CommandContext

var versionPattern = regexp.MustCompile(`[0-9]+\.[0-9]+(\.[0-9]+)?`)

// Check probes a single tool and classifies the result. Probes that exit non-zero but
// still print a version number are accepted since several tools report their version on
// stderr with a non-zero status.
func Check(ctx context.Context, tool Tool) Result {
	result := Result{Tool: tool}

	cmd := execCommandContext(ctx, tool.Probe[0], tool.Probe[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if eris.Is(err, exec.ErrNotFound) {
			result.Status = StatusMissing
			result.Err = err
			return result
		}

		var exitErr *exec.ExitError
		if !eris.As(err, &exitErr) || len(out) == 0 {
			result.Status = StatusUnknown
			result.Err = eris.Wrapf(err, "failed to run %s", strings.Join(tool.Probe, " "))
			return result
		}
	}

	raw := versionPattern.FindString(string(out))
	if raw == "" {
		result.Status = StatusUnknown
		result.Err = eris.Errorf("no version number in the output of %s", strings.Join(tool.Probe, " "))
		return result
	}
	result.Version = raw

	if tool.Constraint != "" {
		version, err := semver.NewVersion(raw)
		if err != nil {
			result.Status = StatusUnknown
			result.Err = eris.Wrapf(err, "failed to parse version %s", raw)
			return result
		}

		con, err := semver.NewConstraint(tool.Constraint)
		if err != nil {
			result.Status = StatusUnknown
			result.Err = eris.Wrapf(err, "invalid constraint %s for %s", tool.Constraint, tool.Name)
			return result
		}

		if !con.Check(version) {
			result.Status = StatusOutdated
			return result
		}
	}

	result.Status = StatusOK
	return result
}

// CheckAll probes the given tools in order.
func CheckAll(ctx context.Context, tools []Tool) []Result {
	results := make([]Result, len(tools))
	for idx, tool := range tools {
		results[idx] = Check(ctx, tool)
	}

	return results
}

// Failed reports whether any required tool is missing, outdated or unreadable.
func Failed(results []Result) bool {
	for _, result := range results {
		if result.Tool.Optional {
			continue
		}
		if result.Status != StatusOK {
			return true
		}
	}

	return false
}

// DevTools lists the external tools the dev plan invokes. The pip executable is
// configurable which is why it's passed in here.
func DevTools(pip string) []Tool {
	return []Tool{
		{
			Name:       "git",
			Probe:      []string{"git", "--version"},
			Constraint: ">= 2.13.0",
			Hint:       "https://git-scm.com/downloads",
		},
		{
			Name:       "python3",
			Probe:      []string{"python3", "--version"},
			Constraint: ">= 3.7.0",
			Hint:       "Hdl21 needs Python 3.7 or newer",
		},
		{
			Name:  pip,
			Probe: []string{pip, "--version"},
			Hint:  "usually ships with Python (python3 -m ensurepip)",
		},
		{
			Name:  "pre-commit",
			Probe: []string{"pre-commit", "--version"},
			Hint:  "pip install pre-commit",
		},
		{
			Name:     "ngspice",
			Probe:    []string{"ngspice", "--version"},
			Optional: true,
			Hint:     "only needed to run simulations, see https://ngspice.sourceforge.io",
		},
	}
}

// PDKTools lists the external tools the pdk plan invokes.
func PDKTools() []Tool {
	return []Tool{
		{
			Name:       "git",
			Probe:      []string{"git", "--version"},
			Constraint: ">= 2.13.0",
			Hint:       "https://git-scm.com/downloads",
		},
		{
			Name:  "make",
			Probe: []string{"make", "--version"},
			Hint:  "install your platform's build essentials",
		},
		{
			Name:       "python3",
			Probe:      []string{"python3", "--version"},
			Constraint: ">= 3.6.0",
			Hint:       "the open_pdks install scripts run through python3",
		},
		{
			Name:       "magic",
			Probe:      []string{"magic", "--version"},
			Constraint: ">= 8.3.0",
			Hint:       "open_pdks needs magic 8.3+ to build the PDK, see http://opencircuitdesign.com/magic",
		},
	}
}
