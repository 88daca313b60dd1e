// Package frame provides the tables that dfq expressions are evaluated
// against. A Frame wraps a single Arrow record; columns are handed to the
// evaluator as Series, plain Go slices converted once and memoized.
package frame

import (
	"errors"
	"fmt"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
)

var (
	ErrNoColumn        = errors.New("no such column")
	ErrUnsupportedType = errors.New("unsupported column type")
	ErrLength          = errors.New("column length mismatch")
	ErrUnknownFormat   = errors.New("unknown table format")
	ErrEmpty           = errors.New("table has no rows")
)

// Frame is a read-only table. It is safe for concurrent use.
type Frame struct {
	rec   arrow.Record
	index map[string]int

	mu     sync.Mutex
	series map[string]*Series
}

// New wraps rec. The frame holds its own reference to rec.
func New(rec arrow.Record) (*Frame, error) {
	if rec == nil {
		return nil, fmt.Errorf("frame: nil record")
	}
	rec.Retain()

	f := &Frame{
		rec:    rec,
		index:  make(map[string]int, rec.NumCols()),
		series: make(map[string]*Series),
	}
	for i, field := range rec.Schema().Fields() {
		if _, dup := f.index[field.Name]; !dup {
			f.index[field.Name] = i
		}
	}
	return f, nil
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int { return int(f.rec.NumRows()) }

// Columns returns the column names in schema order.
func (f *Frame) Columns() []string {
	fields := f.rec.Schema().Fields()
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = field.Name
	}
	return names
}

// Record exposes the underlying Arrow record. The caller must not release it.
func (f *Frame) Record() arrow.Record { return f.rec }

// Release drops the frame's reference to its record.
func (f *Frame) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rec != nil {
		f.rec.Release()
		f.rec = nil
	}
	f.series = nil
}

// Series returns the column called name. A name of the form
// `column{$.json.path}` extracts values from JSON text stored in column.
func (f *Frame) Series(name string) (*Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.rec == nil {
		return nil, fmt.Errorf("frame: series %q requested after release", name)
	}
	if s, ok := f.series[name]; ok {
		return s, nil
	}

	var (
		s   *Series
		err error
	)
	if column, path, ok := parseJSONPathRef(name); ok {
		s, err = f.jsonPathSeries(name, column, path)
	} else {
		s, err = f.column(name)
	}
	if err != nil {
		return nil, err
	}
	f.series[name] = s
	return s, nil
}

// column converts a plain column. Callers hold f.mu.
func (f *Frame) column(name string) (*Series, error) {
	if s, ok := f.series[name]; ok {
		return s, nil
	}
	i, ok := f.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, name)
	}
	s, err := fromArrow(name, f.rec.Column(i))
	if err != nil {
		return nil, err
	}
	f.series[name] = s
	return s, nil
}
