// Package render prints evaluation results and error diagnostics.
package render

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/ohler55/ojg/oj"

	"github.com/gnolang/dfq/internal/frame"
	"github.com/gnolang/dfq/internal/lang"
)

// Table is the optional data a filter result is rendered against.
type Table interface {
	Columns() []string
	Series(name string) (*frame.Series, error)
}

// Text writes res in a human-readable form. For a filter, the matching rows
// of tbl are printed followed by an "n/m rows" summary; tbl may be nil, in
// which case only row indices are shown.
func Text(w io.Writer, res *lang.Result, tbl Table) error {
	switch res.Kind {
	case lang.KindFilter:
		return filterText(w, res, tbl)
	case lang.KindCalc:
		return calcText(w, res)
	default:
		return fmt.Errorf("render: cannot render a %s result", res.Kind)
	}
}

func filterText(w io.Writer, res *lang.Result, tbl Table) error {
	rows := res.Rows()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	var cols []*frame.Series
	header := []string{"row"}
	if tbl != nil {
		for _, name := range tbl.Columns() {
			s, err := tbl.Series(name)
			if err != nil {
				continue
			}
			cols = append(cols, s)
			header = append(header, name)
		}
	}

	if len(rows) > 0 {
		fmt.Fprintln(tw, strings.Join(header, "\t"))
		for _, r := range rows {
			cells := []string{strconv.Itoa(r)}
			for _, s := range cols {
				cells = append(cells, Cell(s, r))
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "%s rows match\n", countStyle.Sprintf("%d/%d", len(rows), len(res.Mask)))
	return err
}

func calcText(w io.Writer, res *lang.Result) error {
	if res.IsScalar {
		_, err := fmt.Fprintf(w, "%s\n", countStyle.Sprint(FormatFloat(res.Scalar)))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "row\tvalue")
	for i, v := range res.Values {
		fmt.Fprintf(tw, "%d\t%s\n", i, FormatFloat(v))
	}
	return tw.Flush()
}

// JSON writes res as a single JSON object. Non-finite numbers become null.
func JSON(w io.Writer, res *lang.Result) error {
	_, err := io.WriteString(w, oj.JSON(Document(res), &oj.Options{Sort: true})+"\n")
	return err
}

// Document converts res into the generic form written by JSON.
func Document(res *lang.Result) map[string]any {
	doc := map[string]any{"kind": res.Kind.String()}
	switch {
	case res.Kind == lang.KindFilter:
		mask := make([]any, len(res.Mask))
		for i, ok := range res.Mask {
			mask[i] = ok
		}
		rows := make([]any, 0, len(res.Mask))
		for _, r := range res.Rows() {
			rows = append(rows, int64(r))
		}
		doc["mask"] = mask
		doc["rows"] = rows
		doc["count"] = int64(len(rows))
	case res.IsScalar:
		doc["scalar"] = jsonNumber(res.Scalar)
	default:
		values := make([]any, len(res.Values))
		for i, v := range res.Values {
			values[i] = jsonNumber(v)
		}
		doc["values"] = values
	}
	return doc
}

func jsonNumber(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// FormatFloat prints v in its shortest exact form.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Cell formats row i of s, printing nulls as "null".
func Cell(s *frame.Series, i int) string {
	if !s.IsValid(i) {
		return "null"
	}
	switch s.Kind {
	case frame.SeriesFloat:
		return FormatFloat(s.Floats[i])
	case frame.SeriesString:
		return s.Strings[i]
	default:
		return strconv.FormatBool(s.Bools[i])
	}
}
