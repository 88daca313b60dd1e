package frame

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// SeriesKind is the value type of a Series.
type SeriesKind int

const (
	SeriesFloat SeriesKind = iota
	SeriesString
	SeriesBool
)

func (k SeriesKind) String() string {
	switch k {
	case SeriesFloat:
		return "float"
	case SeriesString:
		return "string"
	case SeriesBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Series is a plain Go view of one column. Exactly one of Floats, Strings
// and Bools is populated, according to Kind. Valid is nil when the column
// has no nulls.
type Series struct {
	Name    string
	Kind    SeriesKind
	Floats  []float64
	Strings []string
	Bools   []bool
	Valid   []bool
}

// Len returns the number of rows.
func (s *Series) Len() int {
	switch s.Kind {
	case SeriesFloat:
		return len(s.Floats)
	case SeriesString:
		return len(s.Strings)
	default:
		return len(s.Bools)
	}
}

// IsValid reports whether row i holds a value.
func (s *Series) IsValid(i int) bool {
	return s.Valid == nil || s.Valid[i]
}

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func floats[T number](n int, at func(int) T) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(at(i))
	}
	return out
}

// fromArrow converts an Arrow column into a Series.
func fromArrow(name string, arr arrow.Array) (*Series, error) {
	n := arr.Len()
	s := &Series{Name: name, Kind: SeriesFloat}
	if arr.NullN() > 0 {
		s.Valid = make([]bool, n)
		for i := range s.Valid {
			s.Valid[i] = arr.IsValid(i)
		}
	}

	switch a := arr.(type) {
	case *array.Float64:
		s.Floats = floats(n, a.Value)
	case *array.Float32:
		s.Floats = floats(n, a.Value)
	case *array.Float16:
		s.Floats = floats(n, func(i int) float32 { return a.Value(i).Float32() })
	case *array.Int64:
		s.Floats = floats(n, a.Value)
	case *array.Int32:
		s.Floats = floats(n, a.Value)
	case *array.Int16:
		s.Floats = floats(n, a.Value)
	case *array.Int8:
		s.Floats = floats(n, a.Value)
	case *array.Uint64:
		s.Floats = floats(n, a.Value)
	case *array.Uint32:
		s.Floats = floats(n, a.Value)
	case *array.Uint16:
		s.Floats = floats(n, a.Value)
	case *array.Uint8:
		s.Floats = floats(n, a.Value)
	case *array.String:
		s.Kind = SeriesString
		s.Strings = make([]string, n)
		for i := range s.Strings {
			s.Strings[i] = a.Value(i)
		}
	case *array.LargeString:
		s.Kind = SeriesString
		s.Strings = make([]string, n)
		for i := range s.Strings {
			s.Strings[i] = a.Value(i)
		}
	case *array.Boolean:
		s.Kind = SeriesBool
		s.Bools = make([]bool, n)
		for i := range s.Bools {
			s.Bools[i] = a.Value(i)
		}
	default:
		return nil, fmt.Errorf("%w: column %q has type %s", ErrUnsupportedType, name, arr.DataType())
	}
	return s, nil
}
