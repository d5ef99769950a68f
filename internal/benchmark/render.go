package benchmark

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Format selects how reports are printed
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// Render writes reports in the given format
func Render(w io.Writer, format Format, reports ...*Report) error {
	switch format {
	case FormatTable, "":
		return RenderTable(w, reports...)
	case FormatJSON:
		return RenderJSON(w, reports...)
	case FormatYAML:
		return RenderYAML(w, reports...)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// RenderTable writes an aligned comparison table followed by the overall recommendation
func RenderTable(w io.Writer, reports ...*Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FEATURE\tITERATIONS\tBASELINE MEAN\tOPTIMIZED MEAN\tSTD DEV (B/O)\tFACTOR\tIMPROVEMENT\tRECOMMENDATION")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%d\t%.4fs\t%.4fs\t%.4f/%.4f\t%.2fx\t%.1f%%\t%s\n",
			r.Name,
			r.Iterations,
			r.Baseline.Mean,
			r.Optimized.Mean,
			r.Baseline.StdDev,
			r.Optimized.StdDev,
			r.ImprovementFactor,
			r.ImprovementPercent,
			r.Recommendation,
		)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}

	_, err := fmt.Fprintf(w, "\nOverall: concurrent execution is %s\n", Overall(reports))
	return err
}

type document struct {
	Reports []*Report `json:"reports" yaml:"reports"`
	Overall Tier      `json:"overall" yaml:"overall"`
}

// RenderJSON writes the reports as an indented JSON document
func RenderJSON(w io.Writer, reports ...*Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(document{Reports: reports, Overall: Overall(reports)}); err != nil {
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}
	return nil
}

// RenderYAML writes the reports as a YAML document
func RenderYAML(w io.Writer, reports ...*Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(document{Reports: reports, Overall: Overall(reports)}); err != nil {
		return fmt.Errorf("failed to encode YAML report: %w", err)
	}
	return enc.Close()
}
