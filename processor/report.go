package processor

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/CloudyKit/jet"
)

type ReportProduct struct {
	Name  string
	Path  string
	Stats string
}

// ReportData is what a report template is executed against.
type ReportData struct {
	RunID     string
	Input     string
	OutputDir string
	Products  []ReportProduct
}

func NewReportData(runID, input, outputDir string, products []*Product) *ReportData {
	data := &ReportData{RunID: runID, Input: input, OutputDir: outputDir}
	for _, p := range products {
		rp := ReportProduct{Name: p.Name, Path: p.Path}
		if p.Stats != nil {
			rp.Stats = p.Stats.String()
		}
		data.Products = append(data.Products, rp)
	}
	return data
}

// RenderReport executes the jet template at templatePath.
func RenderReport(templatePath string, data *ReportData) (string, error) {
	view := jet.NewSet(jet.SafeWriter(func(w io.Writer, b []byte) {
		w.Write(b)
	}), filepath.Dir(templatePath), "/")

	template, err := view.GetTemplate("/" + filepath.Base(templatePath))
	if err != nil {
		return "", fmt.Errorf("report template error: %v", err)
	}

	var resBuf bytes.Buffer
	vars := make(jet.VarMap)
	if err = template.Execute(&resBuf, vars, data); err != nil {
		return "", fmt.Errorf("report template error: %v", err)
	}
	return resBuf.String(), nil
}

// PlainReport lists the outputs the same way when no template is set.
func PlainReport(data *ReportData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Done! Results in %s/\n", data.OutputDir)
	for _, p := range data.Products {
		fmt.Fprintf(&b, "  - %s\n", filepath.Base(p.Path))
	}
	return b.String()
}
