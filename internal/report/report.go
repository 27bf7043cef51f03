// Package report summarises classified grids as category histograms and
// renders them as text tables or XLSX workbooks.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/floodrisk/internal/grid"
	"github.com/sells-group/floodrisk/internal/risk"
)

var printer = message.NewPrinter(language.English)

// Summary is the category histogram of one classified grid.
type Summary struct {
	Name   string                `json:"name"`
	Rows   int                   `json:"rows"`
	Cols   int                   `json:"cols"`
	Counts map[risk.Category]int `json:"counts"`
}

// Summarize builds a Summary of g.
func Summarize(name string, g *grid.Grid) Summary {
	return Summary{
		Name:   name,
		Rows:   g.Rows(),
		Cols:   g.Cols(),
		Counts: risk.Histogram(g),
	}
}

// Total returns the number of cells.
func (s Summary) Total() int { return s.Rows * s.Cols }

// Percent returns the share of cells in cat, 0–100.
func (s Summary) Percent(cat risk.Category) float64 {
	if s.Total() == 0 {
		return 0
	}
	return 100 * float64(s.Counts[cat]) / float64(s.Total())
}

// Weight is one factor's share of the combined score.
type Weight struct {
	Factor string  `json:"factor"`
	Weight float64 `json:"weight"`
}

// Report groups the summaries and weights of one assessment.
type Report struct {
	Title     string
	Summaries []Summary
	Weights   []Weight
	// CR is nil when weights were given directly.
	CR *float64
}

// WriteTable prints s as an aligned text table.
func WriteTable(w io.Writer, s Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s (%dx%d)\n", s.Name, s.Rows, s.Cols)
	fmt.Fprintln(tw, "CATEGORY\tCELLS\tPERCENT")
	for _, cat := range risk.Categories {
		fmt.Fprintln(tw, printer.Sprintf("%s\t%d\t%.2f%%", cat, s.Counts[cat], s.Percent(cat)))
	}
	fmt.Fprintln(tw, printer.Sprintf("total\t%d\t", s.Total()))
	return eris.Wrap(tw.Flush(), "report: flush table")
}

// WriteWeights prints the factor weights and, when present, the CR.
func WriteWeights(w io.Writer, weights []Weight, cr *float64) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FACTOR\tWEIGHT")
	for _, wt := range weights {
		fmt.Fprintf(tw, "%s\t%.4f\n", wt.Factor, wt.Weight)
	}
	if cr != nil {
		fmt.Fprintf(tw, "CR\t%.4f\n", *cr)
	}
	return eris.Wrap(tw.Flush(), "report: flush weights")
}

// WriteXLSX saves r as a workbook: one sheet per summary and, when weights
// are present, a "weights" sheet.
func WriteXLSX(path string, r Report) error {
	f := xlsx.NewFile()
	for _, s := range r.Summaries {
		sheet, err := f.AddSheet(sheetName(s.Name))
		if err != nil {
			return eris.Wrapf(err, "report: add sheet %s", s.Name)
		}
		header := sheet.AddRow()
		for _, h := range []string{"category", "code", "cells", "percent"} {
			header.AddCell().SetString(h)
		}
		for _, cat := range risk.Categories {
			row := sheet.AddRow()
			row.AddCell().SetString(cat.String())
			row.AddCell().SetInt(int(cat))
			row.AddCell().SetInt(s.Counts[cat])
			row.AddCell().SetFloat(s.Percent(cat))
		}
		total := sheet.AddRow()
		total.AddCell().SetString("total")
		total.AddCell().SetString("")
		total.AddCell().SetInt(s.Total())
		total.AddCell().SetFloat(100)
	}

	if len(r.Weights) > 0 {
		sheet, err := f.AddSheet("weights")
		if err != nil {
			return eris.Wrap(err, "report: add weights sheet")
		}
		header := sheet.AddRow()
		header.AddCell().SetString("factor")
		header.AddCell().SetString("weight")
		for _, wt := range r.Weights {
			row := sheet.AddRow()
			row.AddCell().SetString(wt.Factor)
			row.AddCell().SetFloat(wt.Weight)
		}
		if r.CR != nil {
			row := sheet.AddRow()
			row.AddCell().SetString("consistency_ratio")
			row.AddCell().SetFloat(*r.CR)
		}
	}

	if len(f.Sheets) == 0 {
		return eris.New("report: nothing to write")
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

// sheetName trims s to the 31-character XLSX limit.
func sheetName(s string) string {
	if s == "" {
		s = "summary"
	}
	if len(s) > 31 {
		s = s[:31]
	}
	return s
}
