package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/mqtt-stat/internal/config"
	"github.com/oshokin/mqtt-stat/internal/logger"
	"github.com/oshokin/mqtt-stat/internal/service/agent"
	"github.com/oshokin/mqtt-stat/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// logLevel overrides the log level from the configuration.
	logLevel string

	// rootCmd runs the agent.
	rootCmd = &cobra.Command{
		Use:   "mqtt-stat",
		Short: "MQTT device status agent.",
		Long: `Keeps a connection to an MQTT broker and answers remote commands.

On connect the agent registers an offline last will, announces itself online
and listens for commands. "get_status" is answered with the network name and
battery state of this machine, "find" rings an alarm with rising volume until
it is stopped with "mqtt-stat stop".`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &agent.Options{
				ConfigPath: configPath,
				LogLevel:   logLevel,
			}

			return agent.Run(ctx, options)
		},
	}
)

// Execute runs the mqtt-stat CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	err := rootCmd.Execute()

	logger.Sync()

	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(stopCmd, findCmd, statusCmd, sealCmd)
}
