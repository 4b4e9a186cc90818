package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"torrentstream/queueservice/internal/app"
	"torrentstream/queueservice/internal/domain"
	"torrentstream/queueservice/internal/queue"
)

func newQueuesCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "queues",
		Short: "List queues resolved from the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			configs, err := ctx.resolveQueues()
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, configs)
			}
			if len(configs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No queues configured")
				return nil
			}
			table := renderTable(
				[]string{"ID", "App", "Name", "Sources"},
				buildQueueRows(configs),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprint(cmd.OutOrStdout(), table)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func (c *commandContext) resolveQueues() ([]domain.QueueConfig, error) {
	file, err := app.LoadQueueFile(c.configFile)
	if err != nil {
		return nil, err
	}
	return queue.ResolveQueues(file.Queue, file.Queues), nil
}

func buildQueueRows(configs []domain.QueueConfig) [][]string {
	handles := queue.QueueHandles(configs)
	rows := make([][]string, 0, len(configs))
	for i, cfg := range configs {
		if handles[i] == "" {
			continue
		}
		sources := make([]string, 0, len(cfg.Sources))
		for _, source := range cfg.Sources {
			sources = append(sources, source.AppID)
		}
		sourceCell := "-"
		if len(sources) > 0 {
			sourceCell = strings.Join(sources, ", ") + " (" + strconv.Itoa(len(sources)) + ")"
		}
		rows = append(rows, []string{handles[i], cfg.AppID, cfg.AppName, sourceCell})
	}
	return rows
}
