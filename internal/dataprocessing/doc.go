// Package dataprocessing turns a sales export into dashboard data.
//
// The pipeline has three stages:
//
//  1. Parser reads a CSV or XLSX file into an immutable domain.SalesTable,
//     decoding text with a configurable charset. Unparseable dates become
//     nil instead of failing the load.
//  2. Filter keeps the rows that satisfy every criterion of a
//     domain.FilterSelection. An empty categorical set matches nothing.
//  3. Summarize and Summarizer.Aggregate reduce the filtered view into
//     four summary metrics and six aggregate tables.
//
// TableCache sits in front of the parser and memoizes tables per path.
//
//	parser, _ := dataprocessing.NewParser(logger, dataprocessing.ParserConfig{Encoding: "latin1"})
//	cache := dataprocessing.NewTableCache(parser, nil, logger)
//	table, err := cache.Get(ctx, "supermarket_sales.csv")
//	dash, err := dataprocessing.NewSummarizer(logger).Render(ctx, table, dataprocessing.DefaultSelection(table))
package dataprocessing
