// Package formatter renders command output as a table, JSON or CSV.
package formatter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Format represents an output format type
type Format string

const (
	// FormatTable is the default table format
	FormatTable Format = "table"
	// FormatJSON outputs data as JSON
	FormatJSON Format = "json"
	// FormatCSV outputs data as CSV
	FormatCSV Format = "csv"
)

// ParseFormat parses a format string. The empty string means table.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "table", "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or csv)", s)
	}
}

// Output writes formatted results to a writer.
type Output struct {
	format Format
	writer io.Writer
}

// New creates a new Output formatter
func New(w io.Writer, format Format) *Output {
	return &Output{
		format: format,
		writer: w,
	}
}

// Format returns the configured format.
func (o *Output) Format() Format {
	return o.format
}

// PrintJSON outputs data as indented JSON
func (o *Output) PrintJSON(data any) error {
	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// PrintTable outputs rows as an aligned table
func (o *Output) PrintTable(headers []string, rows [][]string) {
	if len(headers) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow(o.writer, headers, widths)
	printSeparator(o.writer, widths)
	for _, row := range rows {
		printRow(o.writer, row, widths)
	}
}

// PrintCSV outputs rows as CSV
func (o *Output) PrintCSV(headers []string, rows [][]string) error {
	w := csv.NewWriter(o.writer)
	if err := w.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// Print outputs data in the configured format. jsonData is used for JSON,
// headers and rows for the other formats.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) error {
	switch o.format {
	case FormatJSON:
		return o.PrintJSON(jsonData)
	case FormatCSV:
		return o.PrintCSV(headers, rows)
	default:
		o.PrintTable(headers, rows)
		return nil
	}
}

// PrintFields outputs an ordered list of key/value pairs as a two-column
// FIELD/VALUE table. pairs must have even length.
func (o *Output) PrintFields(jsonData any, pairs ...string) error {
	rows := make([][]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		rows = append(rows, []string{pairs[i], pairs[i+1]})
	}
	return o.Print([]string{"FIELD", "VALUE"}, rows, jsonData)
}

// Message prints a line of text, or {"message": text} in JSON mode.
func (o *Output) Message(text string) error {
	if o.format == FormatJSON {
		return o.PrintJSON(map[string]string{"message": text})
	}
	_, err := fmt.Fprintln(o.writer, text)
	return err
}

func printRow(w io.Writer, cells []string, widths []int) {
	for i, cell := range cells {
		if i > 0 {
			_, _ = fmt.Fprintf(w, " | ")
		}
		width := 10
		if i < len(widths) {
			width = widths[i]
		}
		_, _ = fmt.Fprintf(w, "%-*s", width, cell)
	}
	_, _ = fmt.Fprintln(w)
}

func printSeparator(w io.Writer, widths []int) {
	for i, width := range widths {
		if i > 0 {
			_, _ = fmt.Fprintf(w, "-+-")
		}
		_, _ = fmt.Fprintf(w, "%s", strings.Repeat("-", width))
	}
	_, _ = fmt.Fprintln(w)
}
