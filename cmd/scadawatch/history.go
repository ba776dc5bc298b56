package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/scadawatch/scadawatch/internal/history"
	"github.com/scadawatch/scadawatch/internal/monitor"
	"github.com/scadawatch/scadawatch/internal/poller"
	"github.com/scadawatch/scadawatch/internal/types"
	"github.com/spf13/cobra"
)

type historyFlags struct {
	preset   string
	start    string
	end      string
	status   string
	search   string
	template string
	alarmID  string
	latest   bool
	order    string
	maxPages int
	asJSON   bool
	watch    bool
}

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	hf := &historyFlags{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query alarm history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := hf.request()
			if err != nil {
				return err
			}
			// keep stdout for results
			env, err := setup(flags, os.Stderr)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			load := func(ctx context.Context) ([]types.HistoryRecord, error) {
				return monitor.LoadHistory(ctx, env.client, req, time.Now())
			}
			if !hf.watch {
				records, err := load(cmd.Context())
				if err != nil {
					return err
				}
				return printHistory(out, records, hf.asJSON)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			q := poller.New("history", env.cfg.Polling.HistoryInterval, load,
				poller.WithLogger[[]types.HistoryRecord](env.logger),
				poller.OnUpdate(func(s poller.State[[]types.HistoryRecord]) {
					if s.IsFetching {
						return
					}
					if s.IsError {
						env.logger.Error().Err(s.Err).Msg("History refresh failed")
						return
					}
					if err := printHistory(out, s.Data, hf.asJSON); err != nil {
						env.logger.Error().Err(err).Msg("Failed to print history")
					}
				}),
			)
			q.Run(ctx)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&hf.preset, "range", string(history.Preset24h), "Time range preset (24h, 3d, 7d, 30d)")
	f.StringVar(&hf.start, "start", "", "Custom range start (RFC3339); overrides --range")
	f.StringVar(&hf.end, "end", "", "Custom range end (RFC3339)")
	f.StringVar(&hf.status, "status", history.StatusAll, "Status filter (active, acknowledged, resolved, all)")
	f.StringVar(&hf.search, "search", "", "Free-text search over value, description and timestamp")
	f.StringVar(&hf.template, "template", "", "Only records of this alarm template")
	f.StringVar(&hf.alarmID, "alarm", "", "Only records of this alarm id or id prefix")
	f.BoolVar(&hf.latest, "latest", false, "Keep only the most recent record per template")
	f.StringVar(&hf.order, "order", string(history.SortDesc), "Sort order (asc, desc)")
	f.IntVar(&hf.maxPages, "max-pages", 0, "Stop after this many pages (0 loads all)")
	f.BoolVar(&hf.asJSON, "json", false, "Print JSON instead of a table")
	f.BoolVar(&hf.watch, "watch", false, "Re-run the query every polling.history_interval")
	return cmd
}

func (hf *historyFlags) request() (monitor.HistoryRequest, error) {
	req := monitor.HistoryRequest{
		Filter: history.Filter{
			Template:          hf.template,
			AlarmID:           hf.alarmID,
			Status:            hf.status,
			Search:            hf.search,
			LatestPerTemplate: hf.latest,
			Location:          time.Local,
		},
		Order:    history.SortOrder(hf.order),
		MaxPages: hf.maxPages,
	}
	if req.Order != history.SortAsc && req.Order != history.SortDesc {
		return req, fmt.Errorf("invalid --order %q", hf.order)
	}
	if hf.start == "" && hf.end == "" {
		req.Filter.Range.Preset = history.Preset(hf.preset)
		return req, req.Filter.Range.Validate()
	}
	var err error
	if hf.start != "" {
		if req.Filter.Range.Start, err = time.Parse(time.RFC3339, hf.start); err != nil {
			return req, fmt.Errorf("invalid --start: %w", err)
		}
	}
	if hf.end != "" {
		if req.Filter.Range.End, err = time.Parse(time.RFC3339, hf.end); err != nil {
			return req, fmt.Errorf("invalid --end: %w", err)
		}
	}
	return req, req.Filter.Range.Validate()
}

func printHistory(w io.Writer, records []types.HistoryRecord, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tID\tDESCRIPTION\tSTATUS\tVALUE")
	for _, r := range records {
		value := strings.TrimSpace(fmt.Sprintf("%v %s", r.Value, r.Unit))
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.Timestamp.Local().Format(history.TimestampLayout), r.ID, r.Description, r.Status, value)
	}
	fmt.Fprintf(tw, "\n%d record(s)\n", len(records))
	return tw.Flush()
}

func newMeterCmd(flags *globalFlags) *cobra.Command {
	var (
		hours    int
		start    string
		maxPages int
	)
	cmd := &cobra.Command{
		Use:   "meter",
		Short: "Query meter reading history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := history.MeterQuery{Hours: hours}
			if start != "" {
				t, err := time.Parse(time.RFC3339, start)
				if err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
				q.StartTime = t
			}
			env, err := setup(flags, os.Stderr)
			if err != nil {
				return err
			}
			readings, err := monitor.LoadMeterHistory(cmd.Context(), env.client, q, maxPages)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(readings)
		},
	}
	cmd.Flags().IntVar(&hours, "hours", 24, "Look back this many hours")
	cmd.Flags().StringVar(&start, "start", "", "Start time (RFC3339)")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "Stop after this many pages (0 loads all)")
	return cmd
}
