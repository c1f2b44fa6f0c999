// Command salesreport renders the full-domain dashboard of a sales table
// once and prints it as text, CSV or an XLSX workbook.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"salesdash/internal/config"
	"salesdash/internal/dataprocessing"
	"salesdash/internal/exporter"
	"salesdash/internal/services"
	"salesdash/internal/validation"
	"salesdash/pkg/contracts"
	"salesdash/pkg/contracts/domain"
)

const (
	formatTable = "table"
	formatCSV   = "csv"
	formatXLSX  = "xlsx"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		slog.Error("salesreport failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg := config.Default()

	flags := flag.NewFlagSet("salesreport", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&cfg.Data.Path, "path", cfg.Data.Path, "sales table to read (.csv or .xlsx)")
	flags.StringVar(&cfg.Data.Encoding, "encoding", cfg.Data.Encoding, "character encoding of CSV input")
	format := flags.String("format", formatTable, "output format: table, csv or xlsx")
	out := flags.String("out", "", "write to this file instead of stdout (required for xlsx)")
	showVersion := flags.Bool("version", false, "print the version and exit")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		_, err := fmt.Fprintln(stdout, contracts.VersionString("salesreport"))
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	switch *format {
	case formatTable, formatCSV:
	case formatXLSX:
		if *out == "" {
			return errors.New("xlsx output requires -out")
		}
	default:
		return fmt.Errorf("unknown format %q", *format)
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	files := validation.NewFileValidator(logger)
	if err := files.ValidateSalesTable(cfg.Data.Path); err != nil {
		return err
	}
	if *out != "" {
		ext := *format
		if ext == formatTable {
			ext = ""
		}
		if err := files.ValidateOutputFile(*out, ext); err != nil {
			return err
		}
	}

	parser, err := dataprocessing.NewParser(logger, dataprocessing.ParserConfig{Encoding: cfg.Data.Encoding})
	if err != nil {
		return err
	}
	svc := services.NewDashboardService(dataprocessing.NewTableCache(parser, nil, logger), cfg.Data.Path, nil, logger)

	sel, err := svc.DefaultSelection(ctx)
	if err != nil {
		return err
	}
	dash, err := svc.Render(ctx, sel)
	if err != nil {
		return err
	}

	opts := exporter.Options{Formatted: true}
	switch *format {
	case formatXLSX:
		return exporter.NewXLSXWriter(logger).WriteFile(*out, dash, opts)
	case formatCSV:
		if *out != "" {
			return exporter.NewCSVWriter(logger).WriteFile(*out, dash, opts)
		}
		return exporter.NewCSVWriter(logger).Write(stdout, dash, opts)
	}

	if *out == "" {
		return writeText(stdout, dash)
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := writeText(f, dash); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeText prints the metrics block and every aggregate table as aligned
// columns.
func writeText(w io.Writer, dash *domain.Dashboard) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, services.PageTitle)
	fmt.Fprintf(tw, "%s to %s\n\n", dash.Selection.Start.Format("2006-01-02"), dash.Selection.End.Format("2006-01-02"))
	for _, row := range exporter.SummaryRows(dash.Metrics, true) {
		fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
	}

	for _, t := range dash.Tables {
		fmt.Fprintf(tw, "\n%s\n", t.Title)
		fmt.Fprintf(tw, "%s\t%s\n", t.Dimension, t.Measure)
		for _, p := range t.Points {
			fmt.Fprintf(tw, "%s\t%s\n", p.Key, exporter.PointValue(t, p, true))
		}
	}
	return tw.Flush()
}
