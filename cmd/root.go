package cmd

import (
	"fmt"
	"os"
	"time"

	"unsafelinks/pkg/clipboard"
	"unsafelinks/pkg/config"
	"unsafelinks/pkg/errors"
	"unsafelinks/pkg/logger"
	"unsafelinks/pkg/watcher"

	"github.com/spf13/cobra"
)

const (
	unknownValue = "unknown"
)

var (
	Version   string
	BuildTime string
	GitCommit string
)

// newClipboard is replaced in tests.
var newClipboard = func(cfg *config.Config) watcher.Clipboard {
	return &clipboard.System{
		Attempts:   cfg.Clipboard.WriteAttempts,
		RetryDelay: cfg.Clipboard.RetryDelay,
	}
}

type rootOptions struct {
	service    bool
	interval   time.Duration
	configPath string
	logLevel   string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "unsafelinks [URL]",
		Short: "Decode Microsoft SafeLinks URLs",
		Long: `Decodes Microsoft SafeLinks wrapped URLs back to their original form.

Without arguments the clipboard is decoded in place. With a URL argument the
decoded URL is printed and copied to the clipboard. With --service the
clipboard is watched and every SafeLink copied to it is replaced with the
original URL until the process is interrupted.`,
		Example: `  unsafelinks
  unsafelinks 'https://eur01.safelinks.protection.outlook.com/?url=https%3A%2F%2Fduckduckgo.com&data=...'
  unsafelinks --service`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Set log level: explicit flag takes precedence over env var
			level := opts.logLevel
			if !cmd.Flags().Changed("log-level") {
				if envLevel := os.Getenv("UNSAFELINKS_LOG_LEVEL"); envLevel != "" {
					level = envLevel
				}
			}
			logger.SetLevel(level)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.service && len(args) > 0 {
				return errors.ValidationError("--service does not take a URL argument")
			}

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("interval") {
				cfg.Service.PollInterval = opts.interval
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			if opts.service {
				return runService(cmd, cfg)
			}
			if len(args) == 1 {
				return runOnceURL(cmd, cfg, args[0])
			}
			return runOnceClipboard(cmd, cfg)
		},
	}

	flags := rootCmd.Flags()
	flags.BoolVarP(&opts.service, "service", "s", false, "Watch the clipboard and replace SafeLinks with the original URL")
	flags.DurationVar(&opts.interval, "interval", watcher.DefaultInterval, "Clipboard poll interval in service mode")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/unsafelinks/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", logger.DefaultLevel, "Log level (debug, info, warn, error, off)")

	RegisterCommands(rootCmd)
	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			ver := Version
			if ver == "" {
				ver = "dev"
			}
			bt := BuildTime
			if bt == "" {
				bt = unknownValue
			}
			gc := GitCommit
			if gc == "" {
				gc = unknownValue
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "unsafelinks version %s\n", ver)
			fmt.Fprintf(out, "Built: %s\n", bt)
			fmt.Fprintf(out, "Git commit: %s\n", gc)
		},
	}
}

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		exitCode := errors.HandleReturn(err)
		os.Exit(int(exitCode))
	}
}
