package frame

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Builder assembles a Frame column by column.
//
//	f, err := frame.NewBuilder(nil).
//		Float64("x", 1, 2, 3).
//		String("y", "a", "b", "a").
//		Build()
type Builder struct {
	mem    memory.Allocator
	fields []arrow.Field
	cols   []arrow.Array
	err    error
}

// NewBuilder returns a Builder that allocates from mem, or from the Go heap
// when mem is nil.
func NewBuilder(mem memory.Allocator) *Builder {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &Builder{mem: mem}
}

func (b *Builder) Float64(name string, vals ...float64) *Builder {
	return b.NullableFloat64(name, vals, nil)
}

func (b *Builder) Int64(name string, vals ...int64) *Builder {
	if b.err != nil {
		return b
	}
	ib := array.NewInt64Builder(b.mem)
	defer ib.Release()
	ib.AppendValues(vals, nil)
	return b.add(arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Int64, Nullable: true}, ib.NewArray())
}

func (b *Builder) String(name string, vals ...string) *Builder {
	return b.NullableString(name, vals, nil)
}

func (b *Builder) Bool(name string, vals ...bool) *Builder {
	return b.NullableBool(name, vals, nil)
}

// NullableFloat64 adds a float64 column; valid may be nil when there are no nulls.
func (b *Builder) NullableFloat64(name string, vals []float64, valid []bool) *Builder {
	if !b.checkValid(name, len(vals), valid) {
		return b
	}
	fb := array.NewFloat64Builder(b.mem)
	defer fb.Release()
	fb.AppendValues(vals, valid)
	return b.add(arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float64, Nullable: true}, fb.NewArray())
}

func (b *Builder) NullableString(name string, vals []string, valid []bool) *Builder {
	if !b.checkValid(name, len(vals), valid) {
		return b
	}
	sb := array.NewStringBuilder(b.mem)
	defer sb.Release()
	sb.AppendValues(vals, valid)
	return b.add(arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}, sb.NewArray())
}

func (b *Builder) NullableBool(name string, vals []bool, valid []bool) *Builder {
	if !b.checkValid(name, len(vals), valid) {
		return b
	}
	bb := array.NewBooleanBuilder(b.mem)
	defer bb.Release()
	bb.AppendValues(vals, valid)
	return b.add(arrow.Field{Name: name, Type: arrow.FixedWidthTypes.Boolean, Nullable: true}, bb.NewArray())
}

func (b *Builder) checkValid(name string, n int, valid []bool) bool {
	if b.err != nil {
		return false
	}
	if valid != nil && len(valid) != n {
		b.err = fmt.Errorf("%w: column %q has %d values and %d validity flags", ErrLength, name, n, len(valid))
		return false
	}
	return true
}

func (b *Builder) add(field arrow.Field, arr arrow.Array) *Builder {
	if len(b.cols) > 0 && b.cols[0].Len() != arr.Len() {
		b.err = fmt.Errorf("%w: column %q has %d rows, want %d", ErrLength, field.Name, arr.Len(), b.cols[0].Len())
		arr.Release()
		return b
	}
	b.fields = append(b.fields, field)
	b.cols = append(b.cols, arr)
	return b
}

// Build creates the Frame. The builder must not be reused afterwards.
func (b *Builder) Build() (*Frame, error) {
	defer func() {
		for _, col := range b.cols {
			col.Release()
		}
		b.cols, b.fields = nil, nil
	}()
	if b.err != nil {
		return nil, b.err
	}

	rows := 0
	if len(b.cols) > 0 {
		rows = b.cols[0].Len()
	}
	rec := array.NewRecord(arrow.NewSchema(b.fields, nil), b.cols, int64(rows))
	defer rec.Release()
	return New(rec)
}
