// Package cli is the yogan-monitor command line: start, dashboard, setup,
// status, logs and test.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/KOMKZ/go-yogan-monitor/config"
	"github.com/KOMKZ/go-yogan-monitor/flagx"
	"github.com/spf13/cobra"
)

// NewRootCommand yogan-monitor with every subcommand attached
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "yogan-monitor",
		Short:         "Health monitoring and dashboard for the Yogan application",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newStartCommand(),
		newDashboardCommand(),
		newSetupCommand(),
		newStatusCommand(),
		newLogsCommand(),
		newTestCommand(),
	)
	return root
}

// Run executes args and returns the process exit code.
// Failures print one short line to stderr and return 1.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// bind registers the option flags on cmd
func bind(cmd *cobra.Command, opts interface{}) *cobra.Command {
	if err := flagx.BindFlags(cmd, opts); err != nil {
		panic(fmt.Sprintf("cli: %s flags: %v", cmd.Name(), err))
	}
	return cmd
}

// loadConfig layers file, dotenv, env and the changed flags of cmd
func loadConfig(cmd *cobra.Command, file string, opts interface{}) (*config.MonitorConfig, error) {
	b := config.NewLoaderBuilder().
		WithConfigFile(file).
		WithFlags(cmd.Flags(), flagx.Bindings(opts))

	cfg, _, err := config.Load(b)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
