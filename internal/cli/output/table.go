package output

import (
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// TableRenderer is implemented by types that can render themselves as a table.
type TableRenderer interface {
	// Headers returns the column headers for the table.
	Headers() []string
	// Rows returns the data rows for the table.
	Rows() [][]string
}

// Align is the horizontal alignment of a table column.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// ColumnAligner is implemented by tables with right-aligned columns, such as
// counts and sizes. Missing entries are left-aligned.
type ColumnAligner interface {
	Alignments() []Align
}

// Footer is implemented by tables that end with a summary row.
type Footer interface {
	Footer() []string
}

// PrintTable writes data as a borderless table. Headers are upper-cased
// verbatim; cell values are never reformatted.
func PrintTable(w io.Writer, data TableRenderer) error {
	table := borderless(w, "")

	headers := make([]string, len(data.Headers()))
	for i, h := range data.Headers() {
		headers[i] = strings.ToUpper(h)
	}
	table.SetHeader(headers)

	if a, ok := data.(ColumnAligner); ok {
		table.SetColumnAlignment(columnAlignment(a.Alignments(), len(headers)))
	}
	if f, ok := data.(Footer); ok {
		table.SetFooter(f.Footer())
		table.SetFooterAlignment(tablewriter.ALIGN_LEFT)
	}

	table.AppendBulk(data.Rows())
	table.Render()
	return nil
}

// Field is one labelled value of a Fields listing.
type Field struct {
	Label string
	Value string
}

// Fields is an ordered "Label: value" listing, used for summaries.
type Fields []Field

// Add appends a field and returns the listing for chaining.
func (f Fields) Add(label, value string) Fields {
	return append(f, Field{Label: label, Value: value})
}

// Print writes one "Label: value" line per field with aligned values.
func (f Fields) Print(w io.Writer) error {
	table := borderless(w, ":")
	for _, field := range f {
		table.Append([]string{field.Label, field.Value})
	}
	table.Render()
	return nil
}

func borderless(w io.Writer, separator string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator(separator)
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	return table
}

func columnAlignment(aligns []Align, columns int) []int {
	out := make([]int, columns)
	for i := range out {
		out[i] = tablewriter.ALIGN_LEFT
		if i < len(aligns) && aligns[i] == AlignRight {
			out[i] = tablewriter.ALIGN_RIGHT
		}
	}
	return out
}
