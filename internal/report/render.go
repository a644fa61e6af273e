package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderOptions controls table output.
type RenderOptions struct {
	Title string
	// Color enables ANSI styling; callers enable it for terminals.
	Color bool
}

// Render writes the summary, confusion matrix, and recall tables to w.
func Render(w io.Writer, s Summary, opts RenderOptions) error {
	if opts.Title != "" {
		if _, err := fmt.Fprintln(w, opts.Title); err != nil {
			return err
		}
	}

	overview := newTable(opts)
	overview.AppendHeader(table.Row{"Metric", "Value"})
	overview.AppendRows([]table.Row{
		{"Trials", s.Total},
		{"Annotated", s.Annotated},
		{"Correct", s.Correct},
		{"Incorrect", s.Incorrect},
		{"Accuracy", accuracyText(s)},
		{"Mean confidence", fmt.Sprintf("%.2f%%", s.MeanConfidence)},
		{"Mean processing", fmt.Sprintf("%.2f ms", s.MeanMillis)},
		{"Max processing", fmt.Sprintf("%.2f ms", s.MaxMillis)},
	})
	overview.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	if _, err := fmt.Fprintln(w, overview.Render()); err != nil {
		return err
	}

	if s.Annotated == 0 {
		_, err := fmt.Fprintln(w, "No annotated trials; confusion matrix omitted.")
		return err
	}

	classes := Classes()
	matrix := newTable(opts)
	header := table.Row{"True \\ Pred"}
	for _, c := range classes {
		header = append(header, c)
	}
	header = append(header, "Recall")
	matrix.AppendHeader(header)
	for _, truth := range classes[:len(classes)-1] {
		row, ok := s.Confusion[truth]
		if !ok {
			continue
		}
		r := table.Row{truth}
		for _, pred := range classes {
			r = append(r, strconv.Itoa(row[pred]))
		}
		r = append(r, fmt.Sprintf("%.1f%%", s.Recall[truth]*100))
		matrix.AppendRow(r)
	}
	configs := make([]table.ColumnConfig, 0, len(classes)+1)
	for i := range classes {
		configs = append(configs, table.ColumnConfig{Number: i + 2, Align: text.AlignRight})
	}
	configs = append(configs, table.ColumnConfig{Number: len(classes) + 2, Align: text.AlignRight})
	matrix.SetColumnConfigs(configs)
	_, err := fmt.Fprintln(w, matrix.Render())
	return err
}

func accuracyText(s Summary) string {
	if s.Annotated == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", s.Accuracy*100)
}

func newTable(opts RenderOptions) table.Writer {
	tw := table.NewWriter()
	if opts.Color {
		tw.SetStyle(table.StyleColoredBright)
	} else {
		tw.SetStyle(table.StyleRounded)
	}
	return tw
}
