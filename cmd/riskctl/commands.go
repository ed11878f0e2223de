package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/quakepredictec/riesgo-dashboard/internal/dashboard"
	"github.com/quakepredictec/riesgo-dashboard/internal/export"
	"github.com/quakepredictec/riesgo-dashboard/internal/query"
	"github.com/quakepredictec/riesgo-dashboard/internal/source"
	"github.com/quakepredictec/riesgo-dashboard/internal/view"
)

type globalOptions struct {
	backendURL string
	timeout    time.Duration
	threshold  float64
}

type tableOptions struct {
	search string
	sort   string
	dir    string
	level  string
}

func (o *tableOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.search, "search", "", "case-insensitive location substring")
	cmd.Flags().StringVar(&o.sort, "sort", "", "sort key: date, location, probability, riskLevel")
	cmd.Flags().StringVar(&o.dir, "dir", "", "sort direction: asc, desc")
	cmd.Flags().StringVar(&o.level, "level", "", "only rows with this risk level")
}

func (o *tableOptions) mutation(page int) (func(*query.State), error) {
	st := query.NewState(query.DefaultPageSize)
	if o.sort != "" || o.dir != "" {
		key, dir := st.SortKey, st.SortDirection
		var err error
		if o.sort != "" {
			if key, err = query.ParseSortKey(o.sort); err != nil {
				return nil, err
			}
		}
		if o.dir != "" {
			if dir, err = query.ParseDirection(o.dir); err != nil {
				return nil, err
			}
		}
		st.SetSort(key, dir)
	}
	return func(s *query.State) {
		s.SetSearch(o.search)
		s.SetRiskLevel(o.level)
		s.SetSort(st.SortKey, st.SortDirection)
		if page > 1 {
			s.SetPage(page)
		}
	}, nil
}

// load builds a controller without a map surface and fetches once
func load(ctx context.Context, opts *globalOptions) (*dashboard.Controller, error) {
	if strings.TrimSpace(opts.backendURL) == "" {
		return nil, fmt.Errorf("--backend is required")
	}
	ctrl := dashboard.New(
		source.NewClient(opts.backendURL, opts.timeout),
		view.NewMapRenderer(view.DiscardSurface{}),
		dashboard.Options{Threshold: opts.threshold},
	)
	if err := ctrl.Refresh(ctx); err != nil {
		return nil, err
	}
	return ctrl, nil
}

func newFetchCommand(opts *globalOptions) *cobra.Command {
	var table tableOptions
	var page int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the latest predictions and print one table page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mutate, err := table.mutation(page)
			if err != nil {
				return err
			}
			ctrl, err := load(cmd.Context(), opts)
			if err != nil {
				return err
			}
			resp := ctrl.Table(mutate)
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			if resp.Message != "" {
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FECHA\tUBICACION\tPROBABILIDAD\tNIVEL")
			for _, r := range resp.Rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Date, r.Location, r.ProbabilityPercentText, r.RiskLevel)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "page %d/%d, %d rows\n", resp.Page, resp.TotalPages, resp.Total)
			return nil
		},
	}
	table.bind(cmd)
	cmd.Flags().IntVar(&page, "page", 1, "page number (1-based)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the page as JSON")
	return cmd
}

func newAlertsCommand(opts *globalOptions) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List locations at or above the alert threshold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := load(cmd.Context(), opts)
			if err != nil {
				return err
			}
			resp := ctrl.Alerts()
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			if resp.Count == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no alerts")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "UBICACION\tPROBABILIDAD\tNIVEL")
			for _, a := range resp.Alerts {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", a.LocationKey, view.PercentText(a.Probability, 1), a.RiskLevel)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print alerts as JSON")
	return cmd
}

func newExportCommand(opts *globalOptions) *cobra.Command {
	var table tableOptions
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered predictions as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mutate, err := table.mutation(1)
			if err != nil {
				return err
			}
			ctrl, err := load(cmd.Context(), opts)
			if err != nil {
				return err
			}
			ctrl.Table(mutate)
			records := ctrl.ExportRecords()

			if output == "" || output == "-" {
				return export.WriteCSV(cmd.OutOrStdout(), records)
			}
			if len(records) == 0 {
				return export.ErrNoRows
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := export.WriteCSV(f, records); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d rows to %s\n", len(records), output)
			return nil
		},
	}
	table.bind(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", export.Filename, `output file ("-" for stdout)`)
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
