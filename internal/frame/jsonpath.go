package frame

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// parseJSONPathRef splits a reference like `payload{$.user.id}` into the
// column name and the JSONPath expression.
func parseJSONPathRef(name string) (column, path string, ok bool) {
	open := strings.Index(name, "{")
	if open == -1 {
		return name, "", false
	}
	end := strings.LastIndex(name, "}")
	if end == -1 || end <= open || end != len(name)-1 {
		return name, "", false
	}

	column = strings.TrimSpace(name[:open])
	path = strings.TrimSpace(name[open+1 : end])
	if column == "" || path == "" {
		return name, "", false
	}
	return column, path, true
}

// jsonPathSeries evaluates path against the JSON document held in every
// cell of a string column. The result is a float series when every
// extracted value is a number, otherwise a string series. Cells that do not
// parse, or where the path matches nothing, are null. Callers hold f.mu.
func (f *Frame) jsonPathSeries(name, column, path string) (*Series, error) {
	base, err := f.column(column)
	if err != nil {
		return nil, err
	}
	if base.Kind != SeriesString {
		return nil, fmt.Errorf("%w: JSONPath needs a string column, %q is %s", ErrUnsupportedType, column, base.Kind)
	}

	expr, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONPath %q: %w", path, err)
	}

	n := base.Len()
	values := make([]any, n)
	valid := make([]bool, n)
	numeric := true
	for i := 0; i < n; i++ {
		if !base.IsValid(i) || base.Strings[i] == "" {
			continue
		}
		doc, err := oj.ParseString(base.Strings[i])
		if err != nil {
			continue
		}
		found := expr.Get(doc)
		if len(found) == 0 || found[0] == nil {
			continue
		}
		values[i], valid[i] = found[0], true
		if _, ok := toFloat(found[0]); !ok {
			numeric = false
		}
	}

	s := &Series{Name: name, Valid: valid}
	if numeric {
		s.Kind = SeriesFloat
		s.Floats = make([]float64, n)
		for i, v := range values {
			if valid[i] {
				s.Floats[i], _ = toFloat(v)
			}
		}
		return s, nil
	}

	s.Kind = SeriesString
	s.Strings = make([]string, n)
	for i, v := range values {
		if valid[i] {
			s.Strings[i] = stringify(v)
		}
	}
	return s, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return oj.JSON(x)
	}
}
