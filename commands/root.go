// Package commands implements the crash-video command line.
package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/darkace1998/crash-video-recorder/commands/formatter"
	"github.com/darkace1998/crash-video-recorder/internal/config"
	"github.com/darkace1998/crash-video-recorder/internal/logger"
	"github.com/darkace1998/crash-video-recorder/internal/version"
	"github.com/darkace1998/crash-video-recorder/models"
)

const skipConfigAnnotation = "skip_config"

// runtime is shared by every subcommand. It is filled in by the root
// PersistentPreRunE before a subcommand runs.
type runtime struct {
	configPath string
	format     string

	settings  *models.Settings
	output    formatter.Format
	logCloser io.Closer
}

func (rt *runtime) out(cmd *cobra.Command) *formatter.Output {
	return formatter.New(cmd.OutOrStdout(), rt.output)
}

// NewRootCmd builds the crash-video command tree.
func NewRootCmd() *cobra.Command {
	rt := &runtime{}

	rootCmd := &cobra.Command{
		Use:   "crash-video",
		Short: "Keep a rolling screen recording and save it when the app crashes",
		Long: "crash-video keeps the last N seconds of the screen in a circular buffer. " +
			"On a crash or capture request the buffer is written to an .mp4 and attached to the error reporter.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.init(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if rt.logCloser != nil {
				return rt.logCloser.Close()
			}
			return nil
		},
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	rootCmd.PersistentFlags().StringVarP(&rt.configPath, "config", "c", "", "Path to config file (defaults only when empty)")
	rootCmd.PersistentFlags().StringVar(&rt.format, "format", "table", "Output format: table, json, csv")

	rootCmd.AddCommand(
		newRecordCmd(rt),
		newCaptureCmd(rt),
		newRecoverCmd(rt),
		newPruneCmd(rt),
		newStatusCmd(rt),
		newAttachmentsCmd(rt),
		newValidateCmd(rt),
		newConfigCmd(rt),
		newVersionCmd(rt),
	)

	return rootCmd
}

func (rt *runtime) init(cmd *cobra.Command) error {
	format, err := formatter.ParseFormat(rt.format)
	if err != nil {
		return err
	}
	rt.output = format

	if cmd.Annotations[skipConfigAnnotation] == "true" {
		return nil
	}

	settings, err := config.Load(rt.configPath)
	if err != nil {
		return err
	}
	rt.settings = settings

	closer, err := logger.InitWithWriter(cmd.ErrOrStderr(), settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	rt.logCloser = closer
	return nil
}

func skipConfig() map[string]string {
	return map[string]string{skipConfigAnnotation: "true"}
}
