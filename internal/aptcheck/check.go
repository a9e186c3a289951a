// Package aptcheck runs apt-get in simulate-only mode and classifies the
// outcome into a monitoring verdict.
package aptcheck

import (
	"context"
	"strings"

	"github.com/AlexB7/monitoring-plugins/internal/config"
	"github.com/AlexB7/monitoring-plugins/internal/plugin"
	"github.com/AlexB7/monitoring-plugins/internal/system"
	"github.com/AlexB7/monitoring-plugins/internal/ui"
)

const (
	aptGetPath = "/usr/bin/apt-get"

	// apt-get -s prints "Inst ..." for proposed installs and "Conf ..."
	// for configuration steps. Only Inst lines count as pending packages.
	instPrefix = "Inst"
)

var (
	updateArgs      = []string{"-q", "update"}
	upgradeArgs     = []string{"-o", "Debug::NoLocking=true", "-s", "-qq", "upgrade"}
	distUpgradeArgs = []string{"-o", "Debug::NoLocking=true", "-s", "-qq", "dist-upgrade"}
)

// StepResult classifies one apt-get invocation.
type StepResult struct {
	State      plugin.State
	ExecFailed bool
	StderrSeen bool
}

// Package is one proposed install found in the simulated upgrade output.
type Package struct {
	Name     string
	Line     string
	Critical bool
}

// Checker runs the update and upgrade steps against an injected command
// runner.
type Checker struct {
	runner system.CommandRunner
	opts   *config.Resolved
	ui     *ui.UI
}

// New creates a Checker.
func New(runner system.CommandRunner, opts *config.Resolved, out *ui.UI) *Checker {
	return &Checker{runner: runner, opts: opts, ui: out}
}

// Check runs the configured steps under ctx and aggregates the outcome.
// The ctx deadline is the hard budget for the whole run: once it expires,
// remaining steps are skipped and the report is UNKNOWN.
func (c *Checker) Check(ctx context.Context) Report {
	var update *StepResult
	if c.opts.DoUpdate {
		res := c.RunUpdate(ctx)
		update = &res
		if ctx.Err() != nil {
			return timeoutReport(c.opts, update)
		}
	}

	upgrade, pkgs := c.RunUpgrade(ctx)
	if ctx.Err() != nil {
		return timeoutReport(c.opts, update)
	}

	return buildReport(c.opts, update, upgrade, pkgs)
}

// RunUpdate refreshes the package index. An execution failure or non-zero
// exit classifies as UNKNOWN but never aborts the run.
func (c *Checker) RunUpdate(ctx context.Context) StepResult {
	args := append(append([]string{}, updateArgs...), c.opts.UpdateArgs...)
	c.ui.Command(aptGetPath, args)

	res := StepResult{State: plugin.StateUnknown}

	out, err := c.runner.Run(ctx, aptGetPath, args...)
	if err != nil {
		res.ExecFailed = true
		c.ui.Errorf("'%s update' failed to run: %v", aptGetPath, err)
		return res
	}

	if out.ExitCode != 0 {
		res.ExecFailed = true
		c.ui.Errorf("'%s update' exited with non-zero status %d.", aptGetPath, out.ExitCode)
	} else {
		res.State = plugin.StateOK
	}

	c.ui.EchoAll(out.Stdout.Lines)
	c.observeStderr(&res, out)

	return res
}

// RunUpgrade simulates the upgrade (or dist-upgrade) and counts proposed
// installs. The returned packages already have the include/exclude filters
// applied.
func (c *Checker) RunUpgrade(ctx context.Context) (StepResult, []Package) {
	base := upgradeArgs
	if c.opts.DistUpgrade {
		base = distUpgradeArgs
	}
	args := append(append([]string{}, base...), c.opts.UpgradeArgs...)
	c.ui.Command(aptGetPath, args)

	res := StepResult{State: plugin.StateUnknown}

	out, err := c.runner.Run(ctx, aptGetPath, args...)
	if err != nil {
		res.ExecFailed = true
		c.ui.Errorf("'%s %s' failed to run: %v", aptGetPath, base[len(base)-1], err)
		return res, nil
	}

	if out.ExitCode != 0 {
		// apt-get only changes its exit status on an internal error,
		// never merely because upgrades are pending.
		res.ExecFailed = true
		c.ui.Errorf("'%s %s' exited with non-zero status %d. Run again with -v for more info.",
			aptGetPath, base[len(base)-1], out.ExitCode)
	} else {
		res.State = plugin.StateOK
	}

	var pkgs []Package
	for _, line := range out.Stdout.Lines {
		if !strings.HasPrefix(line, instPrefix) {
			continue
		}
		if c.opts.Include != nil && !c.opts.Include.MatchString(line) {
			continue
		}
		if c.opts.Exclude != nil && c.opts.Exclude.MatchString(line) {
			continue
		}
		pkgs = append(pkgs, Package{
			Name:     packageName(line),
			Line:     line,
			Critical: c.opts.Critical != nil && c.opts.Critical.MatchString(line),
		})
		c.ui.Echo(line)
	}

	c.observeStderr(&res, out)

	return res, pkgs
}

// observeStderr applies the shared rule: any bytes on the child's stderr
// raise the step to at least WARNING.
func (c *Checker) observeStderr(res *StepResult, out *system.Output) {
	if out.Stderr.Empty() {
		return
	}
	res.StderrSeen = true
	res.State = plugin.Max(res.State, plugin.StateWarning)
	c.ui.EchoAll(out.Stderr.Lines)
}

// packageName extracts the package field from an "Inst <pkg> ..." line.
func packageName(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}
