package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"plafond/internal/analyze"
	"plafond/internal/cache"
	"plafond/internal/compute"
	"plafond/internal/domain"
	"plafond/internal/sink"
)

var (
	analyzePeriod    string
	analyzeCategory  string
	analyzeCeiling   float64
	analyzeOpenEnded float64
	analyzeTotal     int64
	analyzeOutput    string
	analyzeFormat    string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Estimate the savings from capping pensions at a ceiling",
	Long: `Applies a ceiling to the cached pension distribution and reports the
would-be savings plus distribution aggregates. The ceiling defaults to
the one in force for --period; --ceiling replaces it with an arbitrary
amount for what-if runs.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzePeriod, "period", "", "target date (YYYY-MM-DD)")
	analyzeCmd.Flags().StringVar(&analyzeCategory, "category", "", "ceiling category to cap with (default: configured category)")
	analyzeCmd.Flags().Float64Var(&analyzeCeiling, "ceiling", 0, "cap at this amount instead of the cached ceiling")
	analyzeCmd.Flags().Float64Var(&analyzeOpenEnded, "open-ended-average", 0, "assumed average pension of the open-ended top band")
	analyzeCmd.Flags().Int64Var(&analyzeTotal, "total-pensioners", 0, "override the cached pensioner total")
	analyzeCmd.Flags().StringVar(&analyzeOutput, "output", "-", "destination: - (stdout), a file path, or s3://bucket/key")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "table", "output format: table, csv or json")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analyzePeriod == "" {
		return &usageError{"--period is required"}
	}
	period, err := domain.ParseDate(analyzePeriod)
	if err != nil {
		return &usageError{fmt.Sprintf("invalid --period: %v", err)}
	}
	format, err := sink.ParseFormat(analyzeFormat)
	if err != nil {
		return &usageError{err.Error()}
	}
	dest, err := sink.ParseDestination(analyzeOutput)
	if err != nil {
		return &usageError{err.Error()}
	}

	category := strings.ToLower(strings.TrimSpace(analyzeCategory))
	if category == "" {
		category = cfg.DefaultCategory
	}
	openEnded := analyzeOpenEnded
	if !cmd.Flags().Changed("open-ended-average") {
		openEnded = cfg.OpenEndedAverage
	}

	store, err := cache.Open(cfg.CachePath())
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	svc := analyze.NewService(store, compute.NewService(store, log), log)
	report, err := svc.Analyze(ctx, analyze.Params{
		Period:                  period,
		Category:                category,
		CeilingOverride:         analyzeCeiling,
		OpenEndedAverage:        openEnded,
		TotalPensionersOverride: analyzeTotal,
	})
	if err != nil {
		return err
	}

	payload, err := sink.EncodeReport(report, format)
	if err != nil {
		return err
	}

	writer, _ := newWriter(ctx)
	return writer.Write(ctx, dest, payload)
}
