// Package export writes analysis results to the JSON interop format and to
// XLSX workbooks for manual review.
package export

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/shadewalk/shadewalk/internal/model"
)

// WriteJSON writes the result in the stable interop format consumed by the
// graph-enhancement tooling.
func WriteJSON(result *model.AnalysisResult, path string) error {
	raw, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return eris.Wrap(err, "export: marshal result")
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}

// ReadJSON loads a previously exported result.
func ReadJSON(path string) (*model.AnalysisResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: read %s", path)
	}
	var result model.AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, eris.Wrapf(err, "export: parse %s", path)
	}
	return &result, nil
}

// WriteXLSX writes the result as a two-sheet workbook: a run summary and
// the per-edge classifications.
func WriteXLSX(result *model.AnalysisResult, path string) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}
	addKV(summary, "Analysis time", result.AnalysisTime.Format("2006-01-02 15:04:05 MST"))
	addKV(summary, "Total edges", fmt.Sprintf("%d", result.TotalEdges))
	addKV(summary, "Processed edges", fmt.Sprintf("%d", result.ProcessedEdges))
	addKV(summary, "Errors", fmt.Sprintf("%d", result.Errors))
	addKV(summary, "Processing time (ms)", fmt.Sprintf("%d", result.ProcessingTimeMs))

	edges, err := f.AddSheet("Edges")
	if err != nil {
		return eris.Wrap(err, "export: add edges sheet")
	}
	header := edges.AddRow()
	for _, h := range []string{"Edge ID", "Shade %", "Shaded", "Samples"} {
		header.AddCell().SetString(h)
	}
	for _, c := range result.Edges {
		row := edges.AddRow()
		row.AddCell().SetString(c.EdgeID)
		row.AddCell().SetFloat(c.ShadePct)
		row.AddCell().SetBool(c.Shaded)
		row.AddCell().SetInt(c.SampleCount)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func addKV(sheet *xlsx.Sheet, key, value string) {
	row := sheet.AddRow()
	row.AddCell().SetString(key)
	row.AddCell().SetString(value)
}
