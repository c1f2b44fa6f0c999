// Package exporter writes rendered dashboards to CSV and XLSX.
//
// CSVWriter emits a summary block followed by one block per aggregate table,
// with an optional UTF-8 BOM so Excel detects the encoding. XLSXWriter builds
// a workbook with a Summary sheet and one sheet and chart per aggregate table.
//
// Both writers accept Options.Formatted to switch from exact values to the
// display formatting used on the dashboard ($1,234.56, N/A).
//
//	w := exporter.NewCSVWriter(logger)
//	err := w.Write(out, dashboard, exporter.Options{BOMPrefix: true})
package exporter
