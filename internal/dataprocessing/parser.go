package dataprocessing

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"

	apperrors "salesdash/internal/errors"
	"salesdash/pkg/contracts/domain"
)

// DefaultEncoding is used when ParserConfig.Encoding is empty.
const DefaultEncoding = "latin1"

// Canonical column names of the sales table.
const (
	ColInvoiceID    = "Invoice ID"
	ColBranch       = "Branch"
	ColCity         = "City"
	ColCustomerType = "Customer type"
	ColGender       = "Gender"
	ColProductLine  = "Product line"
	ColPayment      = "Payment"
	ColDate         = "Date"
	ColQuantity     = "Quantity"
	ColUnitPrice    = "Unit price"
	ColTotal        = "Total"
	ColGrossIncome  = "gross income"
	ColRating       = "Rating"
)

// RequiredColumns must all be present in the header row.
var RequiredColumns = []string{
	ColBranch, ColProductLine, ColCustomerType, ColPayment,
	ColDate, ColQuantity, ColTotal, ColGrossIncome, ColRating,
}

var optionalColumns = []string{ColInvoiceID, ColCity, ColGender, ColUnitPrice}

// dateLayouts are tried in order; the first match wins.
var dateLayouts = []string{
	"1/2/2006",
	"2006-01-02",
	"2006/01/02",
	"1/2/06",
	"02-Jan-2006",
	"2-Jan-06",
	"Jan 2, 2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

// ParserConfig holds options for the sales table parser.
type ParserConfig struct {
	// Encoding names the charset of delimited input, e.g. "latin1" or "utf-8".
	Encoding string
}

// LoadReport summarizes one load of a sales table.
type LoadReport struct {
	Source         string        `json:"source"`
	Format         string        `json:"format"`
	Encoding       string        `json:"encoding"`
	Delimiter      string        `json:"delimiter,omitempty"`
	Rows           int           `json:"rows"`
	NullDates      int           `json:"null_dates"`
	MissingRatings int           `json:"missing_ratings"`
	Duration       time.Duration `json:"duration"`
}

// Parser reads sales tables from CSV or XLSX files.
type Parser struct {
	logger       *slog.Logger
	encodingName string
	encoding     encoding.Encoding
}

// NewParser resolves the configured encoding and returns a parser.
func NewParser(logger *slog.Logger, config ParserConfig) (*Parser, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Encoding == "" {
		config.Encoding = DefaultEncoding
	}

	enc, err := LookupEncoding(config.Encoding)
	if err != nil {
		return nil, err
	}

	return &Parser{
		logger:       logger.With(slog.String("component", "parser")),
		encodingName: config.Encoding,
		encoding:     enc,
	}, nil
}

// LookupEncoding maps a charset label to a decoder. The latin-1 family maps
// to true ISO 8859-1 rather than the WHATWG windows-1252 alias.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "latin1", "l1", "iso-8859-1", "iso8859-1", "iso_8859-1":
		return charmap.ISO8859_1, nil
	case "utf-8", "utf8":
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, apperrors.NewConfigError(fmt.Sprintf("unsupported encoding %q", name), err)
	}
	return enc, nil
}

// Encoding returns the configured encoding label.
func (p *Parser) Encoding() string {
	return p.encodingName
}

// ParseFile loads the sales table at path. A missing file, an unreadable
// file, a header without the required columns, or a file with no data rows
// are all fatal.
func (p *Parser) ParseFile(ctx context.Context, path string) (*domain.SalesTable, *LoadReport, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, apperrors.NewNotFoundError("sales table", err).WithContext("path", path)
		}
		return nil, nil, apperrors.NewStorageError("cannot stat sales table", err).WithContext("path", path)
	}
	if info.IsDir() {
		return nil, nil, apperrors.NewStorageError("sales table path is a directory", nil).WithContext("path", path)
	}

	var (
		rows   [][]string
		report = &LoadReport{Source: path}
	)

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err = p.readWorkbook(path)
		report.Format = "xlsx"
	} else {
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, nil, apperrors.NewStorageError("cannot read sales table", err).WithContext("path", path)
		}
		rows, err = p.readDelimited(data, report)
		report.Format = "csv"
	}
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, nil, appErr.WithContext("path", path)
		}
		return nil, nil, apperrors.NewParsingError("cannot read sales table", err).WithContext("path", path)
	}

	table, err := p.buildTable(ctx, path, rows, report)
	if err != nil {
		return nil, nil, err
	}
	report.Duration = time.Since(start)

	p.logger.InfoContext(ctx, "sales table loaded",
		slog.String("path", path),
		slog.String("format", report.Format),
		slog.String("encoding", report.Encoding),
		slog.Int("rows", report.Rows),
		slog.Int("null_dates", report.NullDates),
		slog.Int("missing_ratings", report.MissingRatings),
		slog.Duration("duration", report.Duration))

	return table, report, nil
}

// Parse reads delimited data from r, for callers that do not load from disk.
func (p *Parser) Parse(ctx context.Context, r io.Reader, source string) (*domain.SalesTable, *LoadReport, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, apperrors.NewStorageError("cannot read sales table", err)
	}
	report := &LoadReport{Source: source, Format: "csv"}
	rows, err := p.readDelimited(data, report)
	if err != nil {
		return nil, nil, err
	}
	table, err := p.buildTable(ctx, source, rows, report)
	if err != nil {
		return nil, nil, err
	}
	return table, report, nil
}

// readDelimited decodes data with the configured charset and splits it into
// records. Decoding never fails on invalid byte sequences.
func (p *Parser) readDelimited(data []byte, report *LoadReport) ([][]string, error) {
	enc, name := p.encoding, p.encodingName
	if bytes.HasPrefix(data, bomUTF8) {
		enc, name = unicode.UTF8BOM, "utf-8"
	}
	report.Encoding = name

	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, apperrors.NewParsingError("cannot decode sales table", err)
	}

	delim := detectDelimiter(decoded)
	report.Delimiter = string(delim)

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError("malformed delimited data", err)
	}
	return rows, nil
}

// readWorkbook returns the rows of the first sheet of an XLSX file.
func (p *Parser) readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError("cannot open workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewParsingError("workbook has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.NewParsingError("cannot read sheet "+sheets[0], err)
	}
	p.logger.Debug("workbook sheet selected", slog.String("sheet", sheets[0]), slog.Int("rows", len(rows)))
	return rows, nil
}

// detectDelimiter picks the most frequent candidate separator in the header
// line, defaulting to a comma.
func detectDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	best, bestCount := ',', 0
	for _, c := range []rune{',', ';', '\t', '|'} {
		if n := bytes.Count(line, []byte(string(c))); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

// columnIndex maps canonical column names to positions in a row.
type columnIndex map[string]int

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

func resolveColumns(header []string) (columnIndex, *apperrors.AppError) {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, dup := byName[key]; !dup && key != "" {
			byName[key] = i
		}
	}

	idx := make(columnIndex)
	var missing []string
	for _, col := range RequiredColumns {
		pos, ok := byName[normalizeHeader(col)]
		if !ok {
			missing = append(missing, col)
			continue
		}
		idx[col] = pos
	}
	if len(missing) > 0 {
		return nil, apperrors.NewParsingError("missing required columns", nil).
			WithContext("missing_columns", missing)
	}

	for _, col := range optionalColumns {
		if pos, ok := byName[normalizeHeader(col)]; ok {
			idx[col] = pos
		}
	}
	return idx, nil
}

func (c columnIndex) cell(row []string, col string) string {
	pos, ok := c[col]
	if !ok || pos >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[pos])
}

func (p *Parser) buildTable(ctx context.Context, source string, rows [][]string, report *LoadReport) (*domain.SalesTable, error) {
	if len(rows) == 0 {
		return nil, apperrors.NewParsingError("sales table is empty", nil).WithContext("path", source)
	}

	cols, colErr := resolveColumns(rows[0])
	if colErr != nil {
		return nil, colErr.WithContext("path", source)
	}

	xlsx := report.Format == "xlsx"
	records := make([]domain.SaleRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if isBlankRow(row) {
			continue
		}

		// 1-based, counting the header
		line := i + 2
		rec, err := parseRecord(cols, row, xlsx)
		if err != nil {
			return nil, err.WithContext("path", source).WithContext("row", line)
		}
		if rec.Date == nil {
			report.NullDates++
		}
		if rec.Rating == nil {
			report.MissingRatings++
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, apperrors.NewParsingError("sales table has no data rows", nil).WithContext("path", source)
	}
	report.Rows = len(records)
	if report.Encoding == "" {
		report.Encoding = "utf-8"
	}

	return domain.NewSalesTable(source, records), nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseRecord(cols columnIndex, row []string, xlsx bool) (domain.SaleRecord, *apperrors.AppError) {
	rec := domain.SaleRecord{
		InvoiceID:    cols.cell(row, ColInvoiceID),
		Branch:       cols.cell(row, ColBranch),
		City:         cols.cell(row, ColCity),
		CustomerType: cols.cell(row, ColCustomerType),
		Gender:       cols.cell(row, ColGender),
		ProductLine:  cols.cell(row, ColProductLine),
		Payment:      cols.cell(row, ColPayment),
		Date:         ParseDate(cols.cell(row, ColDate), xlsx),
	}

	var err error
	if rec.Quantity, err = parseQuantity(cols.cell(row, ColQuantity)); err != nil {
		return rec, columnError(ColQuantity, err)
	}
	if rec.UnitPrice, err = parseAmount(cols.cell(row, ColUnitPrice)); err != nil {
		return rec, columnError(ColUnitPrice, err)
	}
	if rec.Total, err = parseAmount(cols.cell(row, ColTotal)); err != nil {
		return rec, columnError(ColTotal, err)
	}
	if rec.GrossIncome, err = parseAmount(cols.cell(row, ColGrossIncome)); err != nil {
		return rec, columnError(ColGrossIncome, err)
	}
	if rec.Rating, err = parseRating(cols.cell(row, ColRating)); err != nil {
		return rec, columnError(ColRating, err)
	}
	return rec, nil
}

func columnError(col string, err error) *apperrors.AppError {
	return apperrors.NewParsingError(fmt.Sprintf("invalid %s value", col), err).WithContext("column", col)
}

// ParseDate parses a date cell into a UTC calendar day. It returns nil for
// empty or unrecognized values. Workbook cells may also carry an Excel
// serial day number.
func ParseDate(s string, allowSerial bool) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			day := truncateDay(t)
			return &day
		}
	}
	if allowSerial {
		if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				day := truncateDay(t)
				return &day
			}
		}
	}
	return nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// missingTokens are the cell spellings spreadsheet and dataframe exports
// use for an absent value. They read as empty cells.
var missingTokens = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "<NA>": {},
	"N/A": {}, "n/a": {}, "NA": {},
	"NaN": {}, "nan": {}, "-NaN": {}, "-nan": {},
	"NULL": {}, "null": {}, "None": {},
}

func isMissing(s string) bool {
	_, ok := missingTokens[s]
	return ok
}

func cleanNumber(s string) string {
	s = strings.TrimSpace(s)
	if isMissing(s) {
		return ""
	}
	s = strings.TrimPrefix(s, "$")
	return strings.ReplaceAll(s, ",", "")
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = cleanNumber(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func parseQuantity(s string) (int64, error) {
	s = cleanNumber(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("quantity %q is not a whole number", s)
	}
	return d.IntPart(), nil
}

// parseRating returns nil for missing and non-finite ratings so they drop
// out of rating means.
func parseRating(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || isMissing(s) {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, nil
	}
	return &v, nil
}
