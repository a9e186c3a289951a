package aptcheck

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexB7/monitoring-plugins/internal/config"
	"github.com/AlexB7/monitoring-plugins/internal/plugin"
	"github.com/AlexB7/monitoring-plugins/internal/system"
	"github.com/AlexB7/monitoring-plugins/internal/ui"
)

type mockCall struct {
	name string
	args []string
}

type mockResponse struct {
	out *system.Output
	err error
}

// mockRunner replays scripted responses in call order.
type mockRunner struct {
	responses []mockResponse
	calls     []mockCall
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) (*system.Output, error) {
	m.calls = append(m.calls, mockCall{name: name, args: args})
	if len(m.responses) == 0 {
		return nil, errors.New("mockRunner: no scripted response left")
	}
	r := m.responses[0]
	m.responses = m.responses[1:]
	return r.out, r.err
}

func output(exitCode int, stdout, stderr []string) *system.Output {
	return &system.Output{
		Stdout:   captureOf(stdout),
		Stderr:   captureOf(stderr),
		ExitCode: exitCode,
	}
}

func captureOf(lines []string) system.Capture {
	c := system.Capture{Lines: lines}
	for _, l := range lines {
		c.Bytes += len(l) + 1
	}
	return c
}

func resolve(t *testing.T, o config.Options) *config.Resolved {
	t.Helper()
	if o.TimeoutSeconds == 0 {
		o.TimeoutSeconds = config.DefaultTimeoutSeconds
	}
	if o.PackagesWarning == 0 {
		o.PackagesWarning = 1
	}
	r, err := o.Resolve()
	require.NoError(t, err)
	return r
}

func newChecker(t *testing.T, o config.Options, runner *mockRunner) (*Checker, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	u := ui.NewWithWriters(&out, &bytes.Buffer{}, o.Verbosity)
	return New(runner, resolve(t, o), u), &out
}

func TestRunUpgradeCountsOnlyInstLines(t *testing.T) {
	runner := &mockRunner{responses: []mockResponse{
		{out: output(0, []string{"Inst foo", "Conf bar", "Inst baz"}, nil)},
	}}
	c, _ := newChecker(t, config.Options{}, runner)

	res, pkgs := c.RunUpgrade(context.Background())

	assert.Equal(t, plugin.StateOK, res.State)
	assert.False(t, res.ExecFailed)
	assert.False(t, res.StderrSeen)
	require.Len(t, pkgs, 2)
	assert.Equal(t, "foo", pkgs[0].Name)
	assert.Equal(t, "baz", pkgs[1].Name)
}

func TestRunUpgradeInvokesSimulateOnlyCommand(t *testing.T) {
	runner := &mockRunner{responses: []mockResponse{
		{out: output(0, nil, nil)},
	}}
	c, _ := newChecker(t, config.Options{}, runner)

	c.RunUpgrade(context.Background())

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "/usr/bin/apt-get", runner.calls[0].name)
	assert.Equal(t, []string{"-o", "Debug::NoLocking=true", "-s", "-qq", "upgrade"}, runner.calls[0].args)
}

func TestRunUpgradeDistUpgradeCommand(t *testing.T) {
	runner := &mockRunner{responses: []mockResponse{
		{out: output(0, nil, nil)},
	}}
	c, _ := newChecker(t, config.Options{DistUpgrade: true, UpgradeOpts: "--fix-missing"}, runner)

	c.RunUpgrade(context.Background())

	require.Len(t, runner.calls, 1)
	assert.Equal(t,
		[]string{"-o", "Debug::NoLocking=true", "-s", "-qq", "dist-upgrade", "--fix-missing"},
		runner.calls[0].args)
}

func TestRunUpgradeStderrRaisesWarning(t *testing.T) {
	runner := &mockRunner{responses: []mockResponse{
		{out: output(0, nil, []string{"W: some repository warning"})},
	}}
	c, _ := newChecker(t, config.Options{}, runner)

	res, pkgs := c.RunUpgrade(context.Background())

	assert.Equal(t, plugin.StateWarning, res.State)
	assert.True(t, res.StderrSeen)
	assert.False(t, res.ExecFailed)
	assert.Empty(t, pkgs)
}

func TestRunUpgradeNonZeroExitIsUnknown(t *testing.T) {
	runner := &mockRunner{responses: []mockResponse{
		{out: output(100, nil, nil)},
	}}
	c, _ := newChecker(t, config.Options{}, runner)

	res, _ := c.RunUpgrade(context.Background())

	assert.Equal(t, plugin.StateUnknown, res.State)
	assert.True(t, res.ExecFailed)
}

func TestRunUpgradeSpawnFailureIsUnknown(t *testing.T) {
	runner := &mockRunner{responses: []mockResponse{
		{err: errors.New("running /usr/bin/apt-get: no such file")},
	}}
	c, _ := newChecker(t, config.Options{}, runner)

	res, pkgs := c.RunUpgrade(context.Background())

	assert.Equal(t, plugin.StateUnknown, res.State)
	assert.True(t, res.ExecFailed)
	assert.Nil(t, pkgs)
}

func TestRunUpgradeFilters(t *testing.T) {
	lines := []string{
		"Inst libc6 [2.36-9] (2.36-10 Debian:stable)",
		"Inst libssl-dev [3.0] (3.1 Debian:stable)",
		"Inst openssl [3.0] (3.1 Debian-Security:stable-security)",
		"Inst bash [5.2] (5.3 Debian:stable)",
		"Conf libc6 (2.36-10 Debian:stable)",
	}

	tests := []struct {
		name         string
		opts         config.Options
		wantNames    []string
		wantCritical []string
	}{
		{
			name:      "no filters",
			wantNames: []string{"libc6", "libssl-dev", "openssl", "bash"},
		},
		{
			name:      "include",
			opts:      config.Options{IncludePattern: `^Inst lib`},
			wantNames: []string{"libc6", "libssl-dev"},
		},
		{
			name:      "exclude",
			opts:      config.Options{ExcludePattern: `-dev`},
			wantNames: []string{"libc6", "openssl", "bash"},
		},
		{
			name:      "include and exclude",
			opts:      config.Options{IncludePattern: `^Inst lib`, ExcludePattern: `-dev`},
			wantNames: []string{"libc6"},
		},
		{
			name:         "critical marks security lines",
			opts:         config.Options{CriticalPattern: `Debian-Security`},
			wantNames:    []string{"libc6", "libssl-dev", "openssl", "bash"},
			wantCritical: []string{"openssl"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockRunner{responses: []mockResponse{
				{out: output(0, lines, nil)},
			}}
			c, _ := newChecker(t, tt.opts, runner)

			_, pkgs := c.RunUpgrade(context.Background())

			var names, critical []string
			for _, p := range pkgs {
				names = append(names, p.Name)
				if p.Critical {
					critical = append(critical, p.Name)
				}
			}
			assert.Equal(t, tt.wantNames, names)
			assert.Equal(t, tt.wantCritical, critical)
		})
	}
}

func TestRunUpdateCommand(t *testing.T) {
	runner := &mockRunner{responses: []mockResponse{
		{out: output(0, []string{"Hit:1 http://deb.debian.org/debian stable InRelease"}, nil)},
	}}
	c, _ := newChecker(t, config.Options{DoUpdate: true}, runner)

	res := c.RunUpdate(context.Background())

	assert.Equal(t, plugin.StateOK, res.State)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"-q", "update"}, runner.calls[0].args)
}

func TestRunUpdateNonZeroExitIsUnknown(t *testing.T) {
	runner := &mockRunner{responses: []mockResponse{
		{out: output(100, nil, []string{"E: Could not get lock"})},
	}}
	c, _ := newChecker(t, config.Options{DoUpdate: true}, runner)

	res := c.RunUpdate(context.Background())

	// Stderr raises to at least WARNING; the UNKNOWN from the non-zero
	// exit already outranks it.
	assert.Equal(t, plugin.StateUnknown, res.State)
	assert.True(t, res.ExecFailed)
	assert.True(t, res.StderrSeen)
}

func TestCheckWarningScenario(t *testing.T) {
	runner := &mockRunner{responses: []mockResponse{
		{out: output(0, []string{"Inst pkgA [1.0] (1.1)", "Inst pkgB [2.0] (2.1)", "Conf pkgA (1.1)"}, nil)},
	}}
	c, _ := newChecker(t, config.Options{}, runner)

	report := c.Check(context.Background())

	assert.Equal(t, plugin.StateWarning, report.State)
	assert.Equal(t, 2, report.Pending)
	assert.Equal(t, "APT WARNING: 2 packages available for upgrade.", report.Summary())
}

func TestCheckAllClean(t *testing.T) {
	runner := &mockRunner{responses: []mockResponse{
		{out: output(0, nil, nil)},
	}}
	c, _ := newChecker(t, config.Options{}, runner)

	report := c.Check(context.Background())

	assert.Equal(t, plugin.StateOK, report.State)
	assert.Equal(t, 0, report.Pending)
	assert.False(t, report.StderrSeen)
	assert.False(t, report.ExecFailed)
	assert.Equal(t, "APT OK: 0 packages available for upgrade.", report.Summary())
}

func TestCheckUpdateFailureOutranksUpgradeWarning(t *testing.T) {
	runner := &mockRunner{responses: []mockResponse{
		{err: errors.New("running /usr/bin/apt-get: operation timed out")},
		{out: output(0, []string{"Inst pkgA [1.0] (1.1)"}, nil)},
	}}
	c, _ := newChecker(t, config.Options{DoUpdate: true}, runner)

	report := c.Check(context.Background())

	// UNKNOWN from the failed update outranks the upgrade's WARNING.
	assert.Equal(t, plugin.StateUnknown, report.State)
	assert.Equal(t, 1, report.Pending)
	assert.True(t, report.ExecFailed)
	require.Len(t, runner.calls, 2, "the upgrade step must still run")
}

func TestCheckDeadlineAbortsAfterUpdate(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	runner := &mockRunner{responses: []mockResponse{
		{err: context.DeadlineExceeded},
	}}
	c, _ := newChecker(t, config.Options{DoUpdate: true}, runner)

	report := c.Check(ctx)

	assert.Equal(t, plugin.StateUnknown, report.State)
	assert.True(t, report.TimedOut)
	assert.True(t, report.ExecFailed)
	require.Len(t, runner.calls, 1, "the upgrade step must be skipped")
}

func TestCheckVerboseEchoesCountedLines(t *testing.T) {
	runner := &mockRunner{responses: []mockResponse{
		{out: output(0, []string{"Inst pkgA [1.0] (1.1)", "Conf pkgA (1.1)"}, nil)},
	}}
	c, out := newChecker(t, config.Options{Verbosity: 1}, runner)

	c.Check(context.Background())

	assert.Contains(t, out.String(), "Inst pkgA [1.0] (1.1)")
	assert.NotContains(t, out.String(), "Conf pkgA")
}

func TestCheckQuietByDefault(t *testing.T) {
	runner := &mockRunner{responses: []mockResponse{
		{out: output(0, []string{"Inst pkgA [1.0] (1.1)"}, []string{"W: something"})},
	}}
	c, out := newChecker(t, config.Options{}, runner)

	c.Check(context.Background())

	assert.Empty(t, strings.TrimSpace(out.String()), "no diagnostics without -v")
}
