package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Skufu/skinscreen/internal/config"
	"github.com/Skufu/skinscreen/internal/history"
	"github.com/Skufu/skinscreen/internal/prediction"
	"github.com/Skufu/skinscreen/internal/store"
)

type options struct {
	file string
	user string
	text string
	risk string
	sort string
}

func (o *options) query() history.Query {
	return history.Query{
		Text: o.text,
		Risk: history.ParseRiskFilter(o.risk),
		Sort: history.ParseSortKey(o.sort),
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "screenctl",
		Short:         "Summaries, exports and chart feeds for skin screening history",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.file, "file", "f", "", "JSON file with prediction records")
	flags.StringVarP(&opts.user, "user", "u", "", "read the user's records from DATABASE_URL")
	flags.StringVarP(&opts.text, "q", "q", "", "case-insensitive filename / class search")
	flags.StringVar(&opts.risk, "risk", "all", "risk filter: all, benign, malignant")
	flags.StringVar(&opts.sort, "sort", "newest", "sort order: newest, oldest, confidence")
	root.MarkFlagsMutuallyExclusive("file", "user")
	root.MarkFlagsOneRequired("file", "user")

	root.AddCommand(newSummaryCmd(opts), newExportCmd(opts), newChartCmd(opts))
	return root
}

func newSummaryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print total, benign / non-benign counts and average confidence",
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := loadRecords(cmd.Context(), opts)
			if err != nil {
				return err
			}
			filtered := history.FilterByRisk(history.FilterByText(records, opts.text), history.ParseRiskFilter(opts.risk))
			return writeJSON(cmd.OutOrStdout(), history.SummaryStats(filtered))
		},
	}
}

func newExportCmd(opts *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered, sorted history as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := loadRecords(cmd.Context(), opts)
			if err != nil {
				return err
			}
			rows := history.ExportRows(opts.query().Apply(records))

			if out == "" {
				return history.WriteCSV(cmd.OutOrStdout(), rows)
			}
			return writeFile(out, func(w io.Writer) error {
				return history.WriteCSV(w, rows)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")
	return cmd
}

func newChartCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chart",
		Short: "Print the confidence trend series as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := loadRecords(cmd.Context(), opts)
			if err != nil {
				return err
			}
			filtered := history.FilterByRisk(history.FilterByText(records, opts.text), history.ParseRiskFilter(opts.risk))
			return writeJSON(cmd.OutOrStdout(), history.ChartSeries(filtered))
		},
	}
}

func loadRecords(ctx context.Context, opts *options) ([]prediction.Record, error) {
	if opts.file != "" {
		data, err := os.ReadFile(opts.file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", opts.file, err)
		}
		return decodeRecords(data)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required with --user")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	pg, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	defer pg.Close()
	return pg.ListByUser(ctx, opts.user, 0)
}

// decodeRecords accepts a bare array or the backend's {"predictions": [...]} envelope.
func decodeRecords(data []byte) ([]prediction.Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope struct {
			Predictions []prediction.Record `json:"predictions"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("decode predictions: %w", err)
		}
		return envelope.Predictions, nil
	}
	var records []prediction.Record
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("decode predictions: %w", err)
	}
	return records, nil
}

// writeFile creates path and reports the close error when write succeeded.
func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return write(f)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
