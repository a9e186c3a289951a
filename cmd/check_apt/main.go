package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AlexB7/monitoring-plugins/internal/aptcheck"
	"github.com/AlexB7/monitoring-plugins/internal/config"
	"github.com/AlexB7/monitoring-plugins/internal/plugin"
	"github.com/AlexB7/monitoring-plugins/internal/system"
	"github.com/AlexB7/monitoring-plugins/internal/ui"
	"github.com/AlexB7/monitoring-plugins/pkg/version"
)

const progname = "check_apt"

var (
	opts        config.Options
	extraOpts   string
	showVersion bool

	// Final state for the supervisor. Help and version paths exit OK;
	// runCheck overwrites this with the aggregated verdict.
	exitState = plugin.StateOK
)

var rootCmd = &cobra.Command{
	Use:   progname,
	Short: "Check for pending package upgrades via apt-get",
	Long: `Checks for software updates on systems that use package management
based on the apt-get(8) command found in Debian GNU/Linux.

apt-get runs in simulate-only mode, so the system is never modified and no
locks are taken. The result is a single summary line on stdout and an exit
code for the monitoring supervisor: 0=OK, 1=WARNING, 2=CRITICAL, 3=UNKNOWN.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true, // Usage errors are reported once, by main
	SilenceErrors: true,
	RunE:          runCheck,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Info(progname))
	},
}

func init() {
	f := rootCmd.Flags()
	f.CountVarP(&opts.Verbosity, "verbose", "v", "Verbose output (repeat for more detail)")
	f.IntVarP(&opts.TimeoutSeconds, "timeout", "t", config.DefaultTimeoutSeconds, "Seconds before the whole check aborts")
	f.BoolVarP(&opts.DoUpdate, "update", "u", false, "Run 'apt-get update' first (may need root)")
	f.BoolVarP(&opts.DistUpgrade, "dist-upgrade", "d", false, "Simulate a dist-upgrade instead of a normal upgrade")
	f.BoolVarP(&opts.ListPackages, "list", "l", false, "List the packages available for upgrade")
	f.StringVarP(&opts.IncludePattern, "include", "i", "", "Only count packages matching this regex")
	f.StringVarP(&opts.ExcludePattern, "exclude", "e", "", "Never count packages matching this regex")
	f.StringVarP(&opts.CriticalPattern, "critical", "c", "", "Report CRITICAL when packages matching this regex are pending")
	f.IntVarP(&opts.PackagesWarning, "packages-warning", "w", 1, "Minimum pending packages for a WARNING result")
	f.StringVar(&opts.UpdateOpts, "update-opts", "", "Extra options for 'apt-get update' (shell-quoted)")
	f.StringVar(&opts.UpgradeOpts, "upgrade-opts", "", "Extra options for the simulated upgrade (shell-quoted)")
	f.StringVar(&extraOpts, "extra-opts", "", "Read defaults from an INI section ([section][@file])")
	f.Lookup("extra-opts").NoOptDefVal = config.DefaultExtraOptsSection
	f.BoolVarP(&showVersion, "version", "V", false, "Print version information and exit")

	rootCmd.AddCommand(versionCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	if showVersion {
		fmt.Println(version.Info(progname))
		return nil
	}

	if cmd.Flags().Changed("extra-opts") {
		if err := config.ApplyExtraOpts(&opts, extraOpts, cmd.Flags().Changed); err != nil {
			return err
		}
	}

	resolved, err := opts.Resolve()
	if err != nil {
		return err
	}

	out := ui.New(resolved.Verbosity)
	checker := aptcheck.New(system.NewRunner(), resolved, out)

	ctx, cancel := context.WithTimeout(context.Background(), resolved.Timeout)
	defer cancel()

	report := checker.Check(ctx)

	if report.TimedOut {
		out.Errorf("%s: check timed out after %s", progname, resolved.Timeout)
	}
	if report.StderrSeen {
		out.Warning("warning, output detected on stderr. re-run with -v for more information.")
	}

	fmt.Println(report.Summary())
	if resolved.ListPackages {
		out.List(report.ListLines())
	}

	exitState = report.State
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", progname, err)
		os.Exit(plugin.StateUnknown.ExitCode())
	}
	os.Exit(exitState.ExitCode())
}
