package export

import (
	"fmt"
	"strings"
	"time"
)

// Column renders one field of T.
type Column[T any] struct {
	Header string
	Width  float64
	Value  func(T) any
}

// Table is an entity list flattened for export.
type Table struct {
	Title   string
	Headers []string
	Widths  []float64
	Rows    [][]any
}

func BuildTable[T any](title string, cols []Column[T], items []T) Table {
	t := Table{
		Title:   title,
		Headers: make([]string, len(cols)),
		Widths:  make([]float64, len(cols)),
		Rows:    make([][]any, 0, len(items)),
	}
	for i, c := range cols {
		t.Headers[i] = c.Header
		t.Widths[i] = c.Width
	}
	for _, it := range items {
		row := make([]any, len(cols))
		for i, c := range cols {
			row[i] = c.Value(it)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Format is an export output kind.
type Format string

const (
	FormatXLSX  Format = "xlsx"
	FormatPDF   Format = "pdf"
	FormatPrint Format = "print"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatXLSX, FormatPDF, FormatPrint:
		return f, nil
	case "":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatPrint:
		return "text/html; charset=utf-8"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}

func (f Format) Extension() string {
	if f == FormatPrint {
		return "html"
	}
	return string(f)
}

// Render produces the document for t in format f.
func Render(f Format, t Table) ([]byte, error) {
	switch f {
	case FormatPDF:
		return PDF(t)
	case FormatPrint:
		return PrintHTML(t)
	default:
		return Excel(t)
	}
}

// text formats a cell for the text based outputs.
func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "Yes"
		}
		return "No"
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(x)
	}
}
