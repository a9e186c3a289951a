package aptcheck

import (
	"fmt"
	"strings"

	"github.com/AlexB7/monitoring-plugins/internal/config"
	"github.com/AlexB7/monitoring-plugins/internal/plugin"
)

// Report is the aggregated outcome of a run: the final verdict, the counts
// behind it, and the flags the summary line annotates.
type Report struct {
	State    plugin.State
	Pending  int
	Critical int
	Packages []Package

	StderrSeen bool
	ExecFailed bool
	TimedOut   bool

	distUpgrade bool
	criticalSet bool
	threshold   int
}

// buildReport combines the step states and applies the pending-count floor.
// When the update step did not run, its initial UNKNOWN is overwritten by
// the upgrade outcome rather than combined with it.
func buildReport(opts *config.Resolved, update *StepResult, upgrade StepResult, pkgs []Package) Report {
	r := Report{
		Packages:    pkgs,
		distUpgrade: opts.DistUpgrade,
		criticalSet: opts.Critical != nil,
		threshold:   opts.PackagesWarning,
	}

	r.State = upgrade.State
	r.StderrSeen = upgrade.StderrSeen
	r.ExecFailed = upgrade.ExecFailed
	if update != nil {
		r.State = plugin.Max(update.State, upgrade.State)
		r.StderrSeen = r.StderrSeen || update.StderrSeen
		r.ExecFailed = r.ExecFailed || update.ExecFailed
	}

	for _, p := range pkgs {
		r.Pending++
		if p.Critical {
			r.Critical++
		}
	}

	// Floor rules: raise, never lower.
	switch {
	case r.Critical > 0:
		r.State = plugin.Max(r.State, plugin.StateCritical)
	case r.Pending >= r.threshold:
		r.State = plugin.Max(r.State, plugin.StateWarning)
	default:
		r.State = plugin.Max(r.State, plugin.StateOK)
	}

	return r
}

// timeoutReport is the hard-deadline outcome: the run stops where it is and
// reports UNKNOWN.
func timeoutReport(opts *config.Resolved, update *StepResult) Report {
	r := Report{
		State:       plugin.StateUnknown,
		ExecFailed:  true,
		TimedOut:    true,
		distUpgrade: opts.DistUpgrade,
		criticalSet: opts.Critical != nil,
		threshold:   opts.PackagesWarning,
	}
	if update != nil {
		r.StderrSeen = update.StderrSeen
	}
	return r
}

// Summary formats the single machine-parsable line written to stdout.
func (r Report) Summary() string {
	var b strings.Builder

	mode := "upgrade"
	if r.distUpgrade {
		mode = "dist-upgrade"
	}
	fmt.Fprintf(&b, "APT %s: %d packages available for %s", r.State, r.Pending, mode)
	if r.criticalSet {
		fmt.Fprintf(&b, " (%d critical)", r.Critical)
	}
	b.WriteString(".")

	if r.StderrSeen {
		b.WriteString(" (warnings detected)")
	}
	if r.StderrSeen && r.ExecFailed {
		b.WriteString(",")
	}
	if r.ExecFailed {
		b.WriteString(" (errors detected)")
	}

	return b.String()
}

// ListLines formats the -l package listing printed below the summary.
func (r Report) ListLines() []string {
	if len(r.Packages) == 0 {
		return nil
	}
	lines := make([]string, 0, len(r.Packages))
	for _, p := range r.Packages {
		if p.Critical {
			lines = append(lines, p.Name+" (critical)")
		} else {
			lines = append(lines, p.Name)
		}
	}
	return lines
}
