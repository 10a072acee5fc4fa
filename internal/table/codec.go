package table

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrNoHeader is returned when a table source has no header row.
var ErrNoHeader = errors.New("table has no header row")

const utf8BOM = "\ufeff"

// ReadTSV parses a tab-separated table with a header row. Short rows are padded
// with empty cells; rows with more cells than the header are rejected.
func ReadTSV(r io.Reader) (*Table, error) {
	reader := bufio.NewReader(r)
	var t *Table
	lineNo := 0
	for {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read line %d: %w", lineNo+1, err)
		}
		if line != "" {
			lineNo++
			line = strings.TrimRight(line, "\r\n")
			if t == nil {
				header, herr := parseHeader(strings.Split(line, "\t"))
				if herr != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, herr)
				}
				t = New(header)
			} else if strings.TrimSpace(line) != "" {
				row, rerr := buildRow(t.Header, strings.Split(line, "\t"))
				if rerr != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, rerr)
				}
				t.Append(row)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
	}
	if t == nil {
		return nil, ErrNoHeader
	}
	return t, nil
}

// ReadCSV parses a comma-separated table with a header row.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoHeader
	}
	header, err := parseHeader(records[0])
	if err != nil {
		return nil, err
	}
	t := New(header)
	for i, record := range records[1:] {
		row, err := buildRow(header, record)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+2, err)
		}
		t.Append(row)
	}
	return t, nil
}

// WriteTSV writes t as tab-separated text and returns the number of data rows.
// Tabs and newlines inside cells are replaced with spaces.
func WriteTSV(w io.Writer, t *Table) (int, error) {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(sanitizeTSV(t.Header), "\t") + "\n"); err != nil {
		return 0, err
	}
	for _, row := range t.Rows {
		if _, err := bw.WriteString(strings.Join(sanitizeTSV(t.Values(row)), "\t") + "\n"); err != nil {
			return 0, err
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	return len(t.Rows), nil
}

// WriteCSV writes t as comma-separated text and returns the number of data rows.
func WriteCSV(w io.Writer, t *Table) (int, error) {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Header); err != nil {
		return 0, err
	}
	for _, row := range t.Rows {
		if err := writer.Write(t.Values(row)); err != nil {
			return 0, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, err
	}
	return len(t.Rows), nil
}

func parseHeader(fields []string) ([]string, error) {
	if len(fields) > 0 {
		fields[0] = strings.TrimPrefix(fields[0], utf8BOM)
	}
	header := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for i, field := range fields {
		name := Normalize(field)
		if name == "" {
			return nil, fmt.Errorf("header column %d is empty", i+1)
		}
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("duplicate header column %q", name)
		}
		seen[name] = struct{}{}
		header = append(header, name)
	}
	if len(header) == 0 {
		return nil, ErrNoHeader
	}
	return header, nil
}

func buildRow(header []string, fields []string) (Row, error) {
	if len(fields) > len(header) {
		return nil, fmt.Errorf("row has %d cells but header has %d columns", len(fields), len(header))
	}
	row := make(Row, len(header))
	for i, column := range header {
		if i < len(fields) {
			row[column] = norm.NFC.String(fields[i])
		} else {
			row[column] = ""
		}
	}
	return row, nil
}

// Normalize trims surrounding whitespace and applies Unicode NFC.
func Normalize(value string) string {
	return norm.NFC.String(strings.TrimSpace(value))
}

var tsvCellReplacer = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

func sanitizeTSV(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = tsvCellReplacer.Replace(v)
	}
	return out
}
