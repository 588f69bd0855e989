package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"plafond/internal/domain"
	"plafond/internal/sink"
)

var (
	runPeriod     string
	runCategories []string
	runRequests   string
	runOutput     string
	runFormat     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compute applicable ceilings from the cached dataset",
	Long: `Computes, for each requested (period, category) pair, the ceiling in
force: the record with the most recent effective date not after the
period. Targets come from --period/--category or from a YAML request
file:

  requests:
    - period: 2024-06-01
      categories: [monthly, annual]

The cache is read-only to this command; run download first.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runPeriod, "period", "", "target date (YYYY-MM-DD)")
	runCmd.Flags().StringSliceVar(&runCategories, "category", nil, "ceiling categories for --period (default: configured category)")
	runCmd.Flags().StringVar(&runRequests, "requests", "", "YAML request file, mutually exclusive with --period")
	runCmd.Flags().StringVar(&runOutput, "output", "-", "destination: - (stdout), a file path, or s3://bucket/key")
	runCmd.Flags().StringVar(&runFormat, "format", "table", "output format: table, csv or json")
}

func runRun(cmd *cobra.Command, args []string) error {
	targets, err := resolveRunTargets()
	if err != nil {
		return err
	}
	format, err := sink.ParseFormat(runFormat)
	if err != nil {
		return &usageError{err.Error()}
	}
	dest, err := sink.ParseDestination(runOutput)
	if err != nil {
		return &usageError{err.Error()}
	}

	ctx := cmd.Context()
	results, err := newOrchestrator().Run(ctx, targets)
	if err != nil {
		return err
	}

	payload, err := sink.EncodeResults(results, format)
	if err != nil {
		return err
	}

	writer, _ := newWriter(ctx)
	return writer.Write(ctx, dest, payload)
}

func resolveRunTargets() ([]domain.RequestTarget, error) {
	switch {
	case runRequests != "" && runPeriod != "":
		return nil, &usageError{"--requests and --period are mutually exclusive"}

	case runRequests != "":
		data, err := os.ReadFile(runRequests)
		if err != nil {
			return nil, &domain.StorageError{Op: "read", Path: runRequests, Err: err}
		}
		set, err := domain.ParseRequestFile(data)
		if err != nil {
			return nil, &usageError{err.Error()}
		}
		targets, err := set.Normalize()
		if err != nil {
			return nil, &usageError{err.Error()}
		}
		return targets, nil

	case runPeriod != "":
		period, err := domain.ParseDate(runPeriod)
		if err != nil {
			return nil, &usageError{fmt.Sprintf("invalid --period: %v", err)}
		}
		categories := runCategories
		if len(categories) == 0 {
			categories = []string{cfg.DefaultCategory}
		}
		set := &domain.RequestSet{Requests: []domain.RequestEntry{{Period: period, Categories: categories}}}
		targets, err := set.Normalize()
		if err != nil {
			return nil, &usageError{err.Error()}
		}
		return targets, nil

	default:
		return nil, &usageError{"one of --period or --requests is required"}
	}
}
