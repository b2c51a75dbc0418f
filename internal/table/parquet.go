package table

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// ArrowSchema maps column kinds onto nullable Arrow fields.
func ArrowSchema(t *Table) *arrow.Schema {
	fields := make([]arrow.Field, t.Width())
	for i, c := range t.columns {
		fields[i] = arrow.Field{Name: c.Name, Type: arrowType(c.Kind), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

func arrowType(k Kind) arrow.DataType {
	switch k {
	case KindInt:
		return arrow.PrimitiveTypes.Int64
	case KindFloat, KindNull:
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.BinaryTypes.String
	}
}

// WriteParquet writes t as a single-row-group Parquet file (snappy).
func WriteParquet(t *Table) ([]byte, error) {
	schema := ArrowSchema(t)

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	for ci := range t.columns {
		switch fb := b.Field(ci).(type) {
		case *array.Int64Builder:
			for _, r := range t.rows {
				v := r[ci]
				if v.Kind() == KindInt {
					fb.Append(v.i)
				} else {
					fb.AppendNull()
				}
			}
		case *array.Float64Builder:
			for _, r := range t.rows {
				if n, ok := r[ci].Number(); ok && r[ci].Kind().Numeric() {
					fb.Append(n)
				} else {
					fb.AppendNull()
				}
			}
		case *array.StringBuilder:
			for _, r := range t.rows {
				if r[ci].IsNull() {
					fb.AppendNull()
				} else {
					fb.Append(r[ci].Text())
				}
			}
		default:
			return nil, fmt.Errorf("unsupported arrow builder %T", fb)
		}
	}

	rec := b.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(schema, &buf, props, arrowProps)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	if err := writer.Write(rec); err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("failed to write parquet record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}
