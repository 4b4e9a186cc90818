package main

import (
	"time"

	"github.com/spf13/cobra"

	"torrentstream/queueservice/internal/app"
)

// commandContext carries the persistent flags shared by subcommands.
type commandContext struct {
	configFile  string
	sourceURL   string
	userAgent   string
	timeout     time.Duration
	concurrency int
}

func newRootCommand() *cobra.Command {
	defaults := app.LoadConfig()
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "queuectl",
		Short:         "Inspect download client queues",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.configFile, "config", "c", defaults.QueueConfigFile, "Queue configuration file (YAML)")
	flags.StringVar(&ctx.sourceURL, "source-url", defaults.SourceURLTemplate, "Queue endpoint template, {appId} is replaced per source")
	flags.StringVar(&ctx.userAgent, "user-agent", defaults.UserAgent, "User-Agent sent to queue endpoints")
	flags.DurationVar(&ctx.timeout, "timeout", defaults.FetchTimeout, "Per-source fetch timeout")
	flags.IntVar(&ctx.concurrency, "concurrency", defaults.MaxConcurrentSources, "Maximum sources fetched at once")

	rootCmd.AddCommand(newQueuesCommand(ctx))
	rootCmd.AddCommand(newShowCommand(ctx))

	return rootCmd
}
