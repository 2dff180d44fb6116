package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/vectorconf/composer/internal/compose"
	"github.com/obsidianstack/vectorconf/composer/internal/config"
	"github.com/obsidianstack/vectorconf/composer/internal/probe"
)

func newProbeCmd() *cobra.Command {
	var (
		valuesPath string
		endpoint   string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Report event counters of a running agent for every composed component",
		Long: `Probe scrapes the agent's prometheus_exporter endpoint (the one the metrics
exporter partial configures, unless --endpoint is given) and prints received and
sent event totals for each component id of the composed document. It exits
non-zero when a component exposed no counters.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.Load(valuesPath)
			if err != nil {
				return err
			}
			b, err := compose.Build(v)
			if err != nil {
				return err
			}

			if endpoint == "" {
				if !v.MetricsExporter.Enabled {
					slog.Warn("metrics_exporter is disabled; probing its default address anyway")
				}
				endpoint = probe.EndpointFor(v.MetricsExporter)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			res, err := probe.New(timeout).Probe(ctx, endpoint, v.MetricsExporter.Namespace, b.ComponentIDs())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "COMPONENT\tRECEIVED\tSENT")
			for _, id := range b.ComponentIDs() {
				fmt.Fprintf(tw, "%s\t%.0f\t%.0f\n", id, res.Received[id], res.Sent[id])
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			slog.Info("probe complete",
				"endpoint", res.Endpoint,
				"scraped_at", res.ScrapedAt.Format(time.RFC3339),
				"components_seen", len(res.IDs()),
			)

			if extra := res.Unexpected(b.ComponentIDs()); len(extra) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "\nnot in the composed document: %s\n", strings.Join(extra, ", "))
			}

			if len(res.Missing) > 0 {
				return fmt.Errorf("%d component(s) exposed no counters: %v", len(res.Missing), res.Missing)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&valuesPath, "values", "f", "values.yaml", "path to values file")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "exporter URL (default derived from metrics_exporter)")
	cmd.Flags().DurationVar(&timeout, "timeout", probe.DefaultTimeout, "request timeout")
	return cmd
}
