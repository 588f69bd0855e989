// Package sink encodes pipeline results and delivers them to their
// destination. Encodings are deterministic: identical inputs produce
// identical bytes, which is what makes compute runs comparable.
package sink

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"plafond/internal/domain"
)

// Format selects an output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

// ParseFormat validates a format flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatTable:
		return FormatTable, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown format %q (want table, csv or json)", s)
	}
}

// EncodeResults renders ceiling results in the requested format.
func EncodeResults(results []domain.CeilingResult, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return marshalJSON(results)
	case FormatCSV:
		return resultsCSV(results)
	case FormatTable:
		return resultsTable(results)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// EncodeReport renders a capping analysis report. The CSV form carries
// the per-band table; aggregates are in the table and JSON forms.
func EncodeReport(report *domain.AnalysisReport, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return marshalJSON(report)
	case FormatCSV:
		return reportCSV(report)
	case FormatTable:
		return reportTable(report)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func marshalJSON(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode json: %w", err)
	}
	return append(data, '\n'), nil
}

func resultsCSV(results []domain.CeilingResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"period", "category", "value", "basis"}); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range results {
		row := []string{r.Period, r.Category, amount(r.Value), basisString(r.Basis)}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func resultsTable(results []domain.CeilingResult) ([]byte, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "PERIOD\tCATEGORY\tCEILING\tBASIS")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Period, r.Category, amount(r.Value), basisString(r.Basis))
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to render table: %w", err)
	}
	return buf.Bytes(), nil
}

func reportCSV(report *domain.AnalysisReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"position", "label", "percentage", "average_pension",
		"pensioners", "monthly_excess", "capped_average"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, b := range report.Bands {
		row := []string{
			strconv.Itoa(b.Position),
			b.Label,
			amount(b.Percentage),
			amount(b.AveragePension),
			fmt.Sprintf("%.0f", b.Pensioners),
			amount(b.MonthlyExcess),
			amount(b.CappedAverage),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func reportTable(report *domain.AnalysisReport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Capping analysis for %s (%s)\n", report.Period, report.Category)
	if len(report.CeilingBasis) > 0 {
		fmt.Fprintf(&buf, "Ceiling: %s (basis %s)\n", amount(report.Ceiling), basisString(report.CeilingBasis))
	} else {
		fmt.Fprintf(&buf, "Ceiling: %s (override)\n", amount(report.Ceiling))
	}
	fmt.Fprintf(&buf, "Total pensioners: %d\n\n", report.TotalPensioners)

	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "POS\tBAND\tSHARE%\tAVG\tPENSIONERS\tEXCESS\tCAPPED")
	for _, b := range report.Bands {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.0f\t%s\t%s\n",
			b.Position, b.Label, amount(b.Percentage), amount(b.AveragePension),
			b.Pensioners, amount(b.MonthlyExcess), amount(b.CappedAverage))
	}
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to render table: %w", err)
	}

	fmt.Fprintf(&buf, "\nSavings: %s EUR/month, %s EUR/year (%s%% of pension mass)\n",
		amount(report.SavingsMonthly), amount(report.SavingsAnnual), amount(report.SavingsShare*100))
	fmt.Fprintf(&buf, "Weighted mean pension: %s, median: %s\n",
		amount(report.WeightedMeanPension), amount(report.WeightedMedianPension))
	fmt.Fprintf(&buf, "Pensioners above ceiling: %s%%\n", amount(report.ShareAboveCeiling*100))

	return buf.Bytes(), nil
}

// amount formats EUR values and percentages with fixed precision so
// output is stable across runs.
func amount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// basisString renders basis references as date@version pairs.
func basisString(basis []domain.BasisRecord) string {
	parts := make([]string, len(basis))
	for i, b := range basis {
		parts[i] = b.EffectiveDate + "@" + b.SourceVersion
	}
	return strings.Join(parts, ";")
}
