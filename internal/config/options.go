// Package config holds the run configuration for the apt check. Options are
// populated from command-line flags (optionally pre-filled from an INI
// extra-opts section), validated once, and read-only afterwards.
package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/kballard/go-shellquote"
)

// DefaultTimeoutSeconds bounds the whole run, not each child individually.
const DefaultTimeoutSeconds = 10

// Options mirrors the CLI flag surface.
type Options struct {
	Verbosity       int
	TimeoutSeconds  int
	DoUpdate        bool
	DistUpgrade     bool
	ListPackages    bool
	IncludePattern  string
	ExcludePattern  string
	CriticalPattern string
	PackagesWarning int
	UpdateOpts      string
	UpgradeOpts     string
}

// Resolved is the validated form of Options: regexes compiled, timeout
// converted, extra option strings split into argv words. Immutable for the
// rest of the run.
type Resolved struct {
	Options

	Timeout time.Duration

	// nil when the corresponding pattern was not given.
	Include  *regexp.Regexp
	Exclude  *regexp.Regexp
	Critical *regexp.Regexp

	// Extra words appended to the apt-get invocations.
	UpdateArgs  []string
	UpgradeArgs []string
}

// Resolve validates the options and compiles the derived fields.
func (o Options) Resolve() (*Resolved, error) {
	if o.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("timeout must be a positive number of seconds, got %d", o.TimeoutSeconds)
	}
	if o.PackagesWarning < 1 {
		return nil, fmt.Errorf("packages-warning threshold must be at least 1, got %d", o.PackagesWarning)
	}

	r := &Resolved{
		Options: o,
		Timeout: time.Duration(o.TimeoutSeconds) * time.Second,
	}

	var err error
	if r.Include, err = compilePattern("include", o.IncludePattern); err != nil {
		return nil, err
	}
	if r.Exclude, err = compilePattern("exclude", o.ExcludePattern); err != nil {
		return nil, err
	}
	if r.Critical, err = compilePattern("critical", o.CriticalPattern); err != nil {
		return nil, err
	}

	if r.UpdateArgs, err = splitOpts("update-opts", o.UpdateOpts); err != nil {
		return nil, err
	}
	if r.UpgradeArgs, err = splitOpts("upgrade-opts", o.UpgradeOpts); err != nil {
		return nil, err
	}

	return r, nil
}

func compilePattern(flag, pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid %s pattern %q: %w", flag, pattern, err)
	}
	return re, nil
}

func splitOpts(flag, opts string) ([]string, error) {
	if opts == "" {
		return nil, nil
	}
	words, err := shellquote.Split(opts)
	if err != nil {
		return nil, fmt.Errorf("cannot parse %s value %q: %w", flag, opts, err)
	}
	return words, nil
}
