package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/GTDGit/gtd_console/internal/utils"
)

// Format is the tabular encoding of an uploaded file.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat picks the format from the uploaded file name.
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xls":
		return FormatXLSX, nil
	default:
		return "", utils.ErrUnsupportedFormat
	}
}

// Row is one data line of an uploaded table.
type Row struct {
	// Number is the 1-based line in the file; the header is line 1.
	Number int
	Fields map[string]string
	Raw    []string
	// Err is set when the line could not be decoded; Raw then holds the line text.
	Err error
}

// Get returns the first non-empty value among the given header aliases.
func (r Row) Get(aliases ...string) (string, bool) {
	for _, a := range aliases {
		if v, ok := r.Fields[a]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// String renders the raw cells the way they appeared in the file.
func (r Row) String() string {
	return strings.Join(r.Raw, ",")
}

// errUnreadableRow marks a line the decoder rejected.
var errUnreadableRow = errors.New("unreadable row")

// line is one decoded record with its position in the file.
type line struct {
	number int
	cells  []string
	err    error
}

// preferred sheet names for xlsx uploads, checked before falling back to the first sheet
var sheetNames = []string{"Products", "Stock"}

// ReadTable decodes a header row plus data rows. Blank lines are skipped but
// still counted so that row numbers match what the user sees. A line that
// cannot be decoded becomes a Row with Err set; only a missing header or an
// empty file fails the whole table.
func ReadTable(r io.Reader, format Format) ([]Row, error) {
	var (
		lines []line
		err   error
	)
	switch format {
	case FormatCSV:
		lines, err = readCSV(r)
	case FormatXLSX:
		lines, err = readXLSX(r)
	default:
		return nil, utils.ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, utils.ErrEmptyFile
	}
	if lines[0].err != nil {
		return nil, fmt.Errorf("%w: unreadable header row", utils.ErrInvalidInput)
	}

	headers := normalizeHeaders(lines[0].cells)

	var rows []Row
	for _, l := range lines[1:] {
		if l.err != nil {
			rows = append(rows, Row{Number: l.number, Raw: l.cells, Err: l.err})
			continue
		}
		if blank(l.cells) {
			continue
		}
		row := Row{Number: l.number, Fields: make(map[string]string, len(headers)), Raw: l.cells}
		for j, value := range l.cells {
			if j < len(headers) && headers[j] != "" {
				row.Fields[headers[j]] = strings.TrimSpace(value)
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, utils.ErrEmptyFile
	}
	return rows, nil
}

func readCSV(r io.Reader) ([]line, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	physical := strings.Split(string(data), "\n")

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var lines []line
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			lines = append(lines, line{
				number: parseErr.StartLine,
				cells:  []string{rawLines(physical, parseErr.StartLine, parseErr.Line)},
				err:    errUnreadableRow,
			})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		number, _ := reader.FieldPos(0)
		lines = append(lines, line{number: number, cells: record})
	}
	return lines, nil
}

// rawLines returns the file text between two 1-based line numbers.
func rawLines(physical []string, from, to int) string {
	if from < 1 {
		from = 1
	}
	if to > len(physical) {
		to = len(physical)
	}
	if from > to {
		return ""
	}
	out := make([]string, 0, to-from+1)
	for _, l := range physical[from-1 : to] {
		out = append(out, strings.TrimSuffix(l, "\r"))
	}
	return strings.Join(out, "\n")
}

func readXLSX(r io.Reader) ([]line, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, utils.ErrEmptyFile
	}

	sheet := sheets[0]
pick:
	for _, want := range sheetNames {
		for _, name := range sheets {
			if strings.EqualFold(name, want) {
				sheet = name
				break pick
			}
		}
	}

	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	lines := make([]line, len(cells))
	for i, c := range cells {
		lines[i] = line{number: i + 1, cells: c}
	}
	return lines, nil
}

// normalizeHeaders trims headers and drops the " *" required marker used by
// the downloadable template.
func normalizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		h = strings.TrimSpace(strings.TrimSuffix(h, "*"))
		headers[i] = h
	}
	return headers
}

func blank(line []string) bool {
	for _, v := range line {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
