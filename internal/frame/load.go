package frame

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/ohler55/ojg/oj"
)

// Load reads a table file, choosing the format from its extension.
func Load(path string, mem memory.Allocator) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(f, mem)
	case ".json":
		return ReadJSON(f, mem)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// ReadCSV reads a CSV document with a header row. A column whose non-empty
// cells all parse as numbers becomes float64, all booleans becomes bool,
// anything else becomes string. Empty cells are null.
func ReadCSV(r io.Reader, mem memory.Allocator) (*Frame, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	schema, err := csvSchema(data, mem)
	if err != nil {
		return nil, err
	}

	rdr := csv.NewReader(bytes.NewReader(data), schema,
		csv.WithHeader(true),
		csv.WithAllocator(mem),
		csv.WithChunk(-1),
	)
	defer rdr.Release()

	if !rdr.Next() {
		if err := rdr.Err(); err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		return nil, ErrEmpty
	}
	rec := rdr.Record()
	if rec.NumRows() == 0 {
		return nil, ErrEmpty
	}

	b := NewBuilder(mem)
	for i, field := range schema.Fields() {
		col, ok := rec.Column(i).(*array.String)
		if !ok {
			return nil, fmt.Errorf("read csv: column %q is %s, want utf8", field.Name, rec.Column(i).DataType())
		}
		addCSVColumn(b, field.Name, col)
	}
	return b.Build()
}

// csvSchema reads the header and declares every column as text so that no
// cell is lost to a type guessed from the first rows.
func csvSchema(data []byte, mem memory.Allocator) (*arrow.Schema, error) {
	rdr := csv.NewInferringReader(bytes.NewReader(data),
		csv.WithHeader(true),
		csv.WithAllocator(mem),
		csv.WithChunk(1),
	)
	defer rdr.Release()

	if !rdr.Next() {
		if err := rdr.Err(); err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		return nil, ErrEmpty
	}
	fields := make([]arrow.Field, 0, rdr.Schema().NumFields())
	for _, f := range rdr.Schema().Fields() {
		fields = append(fields, arrow.Field{Name: f.Name, Type: arrow.BinaryTypes.String, Nullable: true})
	}
	return arrow.NewSchema(fields, nil), nil
}

func addCSVColumn(b *Builder, name string, col *array.String) {
	n := col.Len()
	cells := make([]string, n)
	valid := make([]bool, n)
	seen, allNumbers, allBools := false, true, true
	for i := 0; i < n; i++ {
		if col.IsNull(i) {
			continue
		}
		cells[i] = strings.TrimSpace(col.Value(i))
		if cells[i] == "" {
			continue
		}
		valid[i], seen = true, true
		if _, err := strconv.ParseFloat(cells[i], 64); err != nil {
			allNumbers = false
		}
		if _, err := strconv.ParseBool(cells[i]); err != nil {
			allBools = false
		}
	}

	switch {
	case seen && allNumbers:
		vals := make([]float64, n)
		for i, cell := range cells {
			if valid[i] {
				vals[i], _ = strconv.ParseFloat(cell, 64)
			}
		}
		b.NullableFloat64(name, vals, valid)
	case seen && allBools:
		vals := make([]bool, n)
		for i, cell := range cells {
			if valid[i] {
				vals[i], _ = strconv.ParseBool(cell)
			}
		}
		b.NullableBool(name, vals, valid)
	default:
		b.NullableString(name, cells, valid)
	}
}

// ReadJSON reads an array of objects, one object per row. Keys become
// columns in sorted order. A column whose non-null values are all numbers
// becomes float64, all booleans becomes bool, anything else becomes string
// with nested values rendered as JSON. Missing keys and nulls are null cells.
func ReadJSON(r io.Reader, mem memory.Allocator) (*Frame, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	doc, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	rows, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("read json: want an array of objects, got %T", doc)
	}
	if len(rows) == 0 {
		return nil, ErrEmpty
	}

	cells := make(map[string][]any)
	for i, row := range rows {
		obj, ok := row.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("read json: row %d is %T, want an object", i, row)
		}
		for k, v := range obj {
			col, seen := cells[k]
			if !seen {
				col = make([]any, len(rows))
				cells[k] = col
			}
			col[i] = v
		}
	}

	names := make([]string, 0, len(cells))
	for k := range cells {
		names = append(names, k)
	}
	sort.Strings(names)

	b := NewBuilder(mem)
	for _, name := range names {
		addJSONColumn(b, name, cells[name])
	}
	return b.Build()
}

func addJSONColumn(b *Builder, name string, col []any) {
	valid := make([]bool, len(col))
	allNumbers, allBools := true, true
	for i, v := range col {
		if v == nil {
			continue
		}
		valid[i] = true
		if _, ok := toFloat(v); !ok {
			allNumbers = false
		}
		if _, ok := v.(bool); !ok {
			allBools = false
		}
	}

	switch {
	case allNumbers:
		vals := make([]float64, len(col))
		for i, v := range col {
			vals[i], _ = toFloat(v)
		}
		b.NullableFloat64(name, vals, valid)
	case allBools:
		vals := make([]bool, len(col))
		for i, v := range col {
			vals[i], _ = v.(bool)
		}
		b.NullableBool(name, vals, valid)
	default:
		vals := make([]string, len(col))
		for i, v := range col {
			if v != nil {
				vals[i] = stringify(v)
			}
		}
		b.NullableString(name, vals, valid)
	}
}
