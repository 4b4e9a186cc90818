package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"torrentstream/queueservice/internal/app"
	"torrentstream/queueservice/internal/domain"
	"torrentstream/queueservice/internal/queue"
)

var itemColumnHeaders = []string{"Title", "Detail", "Sub Detail", "Quality", "Protocol", "Time Left", "Progress"}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var (
		typeFilter   string
		statusFilter string
		sortColumn   string
		descending   bool
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "show <queue>",
		Short: "Fetch a queue once and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := app.LoadQueueFile(ctx.configFile)
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))

			fetcher := queue.NewHTTPFetcher(ctx.sourceURL, ctx.userAgent, &http.Client{Timeout: ctx.timeout})
			service := queue.NewService(fetcher, ctx.timeout,
				queue.WithLogger(logger),
				queue.WithMaxConcurrentSources(ctx.concurrency),
			)
			registry := queue.NewRegistry(service, file.Queue, file.Queues, queue.WithRegistryLogger(logger))
			if _, err := registry.Reload(cmd.Context()); err != nil {
				return err
			}
			target, err := registry.Get(args[0])
			if err != nil {
				return err
			}
			if _, err := target.Refresh(cmd.Context()); err != nil {
				return err
			}

			target.SetFilters(typeFilter, statusFilter)
			if strings.TrimSpace(sortColumn) != "" {
				column, err := parseSortColumn(sortColumn)
				if err != nil {
					return err
				}
				dir := domain.SortAsc
				if descending {
					dir = domain.SortDesc
				}
				if err := target.SetSort(column, dir); err != nil {
					return err
				}
			}

			view := target.View()
			if jsonOutput {
				return writeJSON(cmd, view)
			}
			renderQueueView(cmd.OutOrStdout(), view)
			return nil
		},
	}

	cmd.Flags().StringVar(&typeFilter, "type", domain.FilterAll, "Type filter: a source id for combined queues, torrent or usenet otherwise")
	cmd.Flags().StringVar(&statusFilter, "status", domain.FilterAll, "Status filter such as downloading, seeding or active")
	cmd.Flags().StringVar(&sortColumn, "sort", "", "Sort column name (title, detail, subDetail, quality, protocol, timeLeft, progress) or index")
	cmd.Flags().BoolVar(&descending, "desc", false, "Sort descending")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func parseSortColumn(raw string) (int, error) {
	value := strings.TrimSpace(raw)
	if index, err := strconv.Atoi(value); err == nil {
		if index < 0 || index >= queue.ColumnCount {
			return 0, fmt.Errorf("%w: %d", queue.ErrInvalidColumn, index)
		}
		return index, nil
	}
	if index, ok := queue.ColumnIndex(value); ok {
		return index, nil
	}
	return 0, fmt.Errorf("%w: %s", queue.ErrInvalidColumn, value)
}

func renderQueueView(w io.Writer, view domain.QueueView) {
	name := view.AppName
	if name == "" {
		name = view.ID
	}

	if view.State == domain.LoadStateUnavailable {
		fmt.Fprintf(w, "Unable to load %s queue\n", name)
		writeSourceFailures(w, view.Sources)
		return
	}

	fmt.Fprintf(w, "%s: %d of %d items\n", name, len(view.Items), view.TotalItems)
	writeSourceFailures(w, view.Sources)
	if len(view.Items) == 0 {
		if view.TotalItems == 0 {
			fmt.Fprintln(w, "Queue is empty")
		} else {
			fmt.Fprintln(w, "No items match the current filters")
		}
		return
	}

	fmt.Fprint(w, renderTable(
		itemColumnHeaders,
		buildItemRows(view.Items),
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight},
	))
}

func writeSourceFailures(w io.Writer, sources []domain.SourceStatus) {
	for _, source := range sources {
		if source.OK {
			continue
		}
		fmt.Fprintf(w, "  %s failed: %s\n", source.SourceName, source.Error)
	}
}

func buildItemRows(items []domain.QueueItem) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.Title,
			item.Detail,
			item.SubDetail,
			item.Quality,
			string(item.Protocol),
			item.TimeLeft,
			strconv.FormatFloat(item.Progress, 'f', 1, 64) + "%",
		})
	}
	return rows
}
