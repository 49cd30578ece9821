package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/mqtt-stat/internal/service/remote"
)

var (
	// controlAddress overrides the control API address from the configuration.
	controlAddress string

	// waitForAgent keeps retrying until the agent answers.
	waitForAgent bool

	// quiet hides informational log lines.
	quiet bool

	// stopCmd silences a ringing alarm.
	stopCmd = &cobra.Command{
		Use:   "stop",
		Short: "Stop a ringing alarm.",
		Long: `Asks the local agent to stop the alarm started by a "find" command.

Stopping is immediate and does nothing when the alarm is quiet.`,
		Args: cobra.NoArgs,
		RunE: remoteRunE(remote.ActionStop),
	}

	// findCmd rings the alarm for testing the speaker.
	findCmd = &cobra.Command{
		Use:   "find",
		Short: "Ring the alarm on this machine.",
		Long: `Starts the alarm through the local agent, the same way a remote "find" command does.

Use "mqtt-stat stop" to silence it.`,
		Args: cobra.NoArgs,
		RunE: remoteRunE(remote.ActionFind),
	}

	// statusCmd prints the agent status.
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Print agent status.",
		Args:  cobra.NoArgs,
		RunE:  remoteRunE(remote.ActionStatus),
	}
)

// remoteRunE returns a RunE that performs action against the local agent.
func remoteRunE(action remote.Action) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		// Setup graceful shutdown handling.
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		options := &remote.Options{
			ConfigPath: configPath,
			Address:    controlAddress,
			Action:     action,
			Wait:       waitForAgent,
			Quiet:      quiet,
			Output:     cmd.OutOrStdout(),
		}

		return remote.Run(ctx, options)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	for _, c := range []*cobra.Command{stopCmd, findCmd, statusCmd} {
		c.Flags().StringVarP(&controlAddress, "address", "a", "", "control API address, overrides the configuration")
		c.Flags().BoolVarP(&waitForAgent, "wait", "w", false, "retry every second until the agent answers")
		c.Flags().BoolVarP(&quiet, "quiet", "q", false, "log warnings and errors only")
	}
}
