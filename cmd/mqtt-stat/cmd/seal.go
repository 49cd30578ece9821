package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/mqtt-stat/internal/service/sealer"
)

// sealCmd encrypts an alarm sound for the agent.
var sealCmd = &cobra.Command{
	Use:   "seal [sound.wav] [asset-name]",
	Short: "Encrypt an alarm sound.",
	Long: `Encrypts a WAV file into the configured assets directory.

The age identity named in the configuration is created on first use.
Without asset-name the sound replaces the configured alarm asset.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(_ *cobra.Command, args []string) error {
		// Setup graceful shutdown handling.
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		options := &sealer.Options{
			ConfigPath: configPath,
			SoundFile:  args[0],
		}

		if len(args) > 1 {
			options.AssetName = args[1]
		}

		return sealer.Run(ctx, options)
	},
}
