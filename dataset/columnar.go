// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/linkedin/goavro/v2"
	"github.com/parquet-go/parquet-go"

	"github.com/logicalclocks/hops-go/dataframe"
	"github.com/logicalclocks/hops-go/hopserr"
)

// parquetSchema builds the file schema from the frame's columns. All
// leaves are optional since frames may carry nil values.
func parquetSchema(frame *dataframe.Frame) *parquet.Schema {
	group := parquet.Group{}
	for _, col := range frame.Columns() {
		group[col.Name] = parquet.Optional(parquetNode(col.Type))
	}
	return parquet.NewSchema("dataset", group)
}

func parquetNode(t dataframe.ValueType) parquet.Node {
	switch t {
	case dataframe.Int, dataframe.SmallInt:
		return parquet.Int(32)
	case dataframe.BigInt:
		return parquet.Int(64)
	case dataframe.Float:
		return parquet.Leaf(parquet.FloatType)
	case dataframe.Double, dataframe.Decimal:
		return parquet.Leaf(parquet.DoubleType)
	case dataframe.Bool:
		return parquet.Leaf(parquet.BooleanType)
	case dataframe.Timestamp:
		return parquet.Timestamp(parquet.Millisecond)
	case dataframe.Binary:
		return parquet.Leaf(parquet.ByteArrayType)
	default:
		return parquet.String()
	}
}

func encodeParquet(frame *dataframe.Frame) ([]byte, error) {
	names := frame.ColumnNames()
	buf := new(bytes.Buffer)
	writer := parquet.NewGenericWriter[map[string]interface{}](buf, parquetSchema(frame))
	for _, row := range frame.Rows() {
		if _, err := writer.Write([]map[string]interface{}{rowAsRecord(names, row)}); err != nil {
			return nil, hopserr.NewInternalError(err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, hopserr.NewInternalError(err)
	}
	return buf.Bytes(), nil
}

func decodeParquet(data []byte) (*dataframe.Frame, error) {
	reader := parquet.NewReader(bytes.NewReader(data))
	defer reader.Close()

	fields := reader.Schema().Fields()
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = field.Name()
	}

	var rows [][]interface{}
	for {
		record := map[string]interface{}{}
		if err := reader.Read(&record); err != nil {
			if err == io.EOF {
				break
			}
			return nil, hopserr.NewInvalidArgumentError(err)
		}
		row := make([]interface{}, len(names))
		for i, name := range names {
			row[i] = record[name]
		}
		rows = append(rows, row)
	}
	return frameFromRows(names, rows)
}

// avroSchema renders the OCF record schema for the frame.
func avroSchema(frame *dataframe.Frame) (string, error) {
	fields := make([]map[string]interface{}, 0, len(frame.Columns()))
	for _, col := range frame.Columns() {
		fields = append(fields, map[string]interface{}{
			"name": col.Name,
			"type": []interface{}{"null", avroType(col.Type)},
		})
	}
	schema, err := json.Marshal(map[string]interface{}{
		"type":   "record",
		"name":   "dataset",
		"fields": fields,
	})
	if err != nil {
		return "", hopserr.NewInternalError(err)
	}
	return string(schema), nil
}

func avroType(t dataframe.ValueType) string {
	switch t {
	case dataframe.Int, dataframe.SmallInt:
		return "int"
	case dataframe.BigInt:
		return "long"
	case dataframe.Float:
		return "float"
	case dataframe.Double, dataframe.Decimal:
		return "double"
	case dataframe.Bool:
		return "boolean"
	case dataframe.Binary:
		return "bytes"
	default:
		return "string"
	}
}

func encodeAvro(frame *dataframe.Frame) ([]byte, error) {
	schema, err := avroSchema(frame)
	if err != nil {
		return nil, err
	}
	buf := new(bytes.Buffer)
	writer, err := goavro.NewOCFWriter(goavro.OCFConfig{W: buf, Schema: schema})
	if err != nil {
		return nil, hopserr.NewInternalError(err)
	}

	columns := frame.Columns()
	records := make([]interface{}, 0, frame.NumRows())
	for _, row := range frame.Rows() {
		record := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			record[col.Name] = avroUnionValue(col.Type, row[i])
		}
		records = append(records, record)
	}
	if err := writer.Append(records); err != nil {
		return nil, hopserr.NewInternalError(err)
	}
	return buf.Bytes(), nil
}

// avroUnionValue wraps a value in the avro union encoding for the
// nullable field types. Timestamp and date columns map to the avro
// string type, so time values are rendered before encoding; goavro
// rejects a raw time.Time in a string union.
func avroUnionValue(t dataframe.ValueType, value interface{}) interface{} {
	if value == nil {
		return nil
	}
	if ts, ok := value.(time.Time); ok {
		value = ts.UTC().Format(time.RFC3339Nano)
	}
	return map[string]interface{}{avroType(t): value}
}

func decodeAvro(data []byte) (*dataframe.Frame, error) {
	reader, err := goavro.NewOCFReader(bytes.NewReader(data))
	if err != nil {
		return nil, hopserr.NewInvalidArgumentError(err)
	}

	var names []string
	var rows [][]interface{}
	for reader.Scan() {
		datum, err := reader.Read()
		if err != nil {
			return nil, hopserr.NewInvalidArgumentError(err)
		}
		record, ok := datum.(map[string]interface{})
		if !ok {
			return nil, hopserr.NewInvalidArgumentError(fmt.Errorf("unexpected avro datum %T", datum))
		}
		if names == nil {
			names = sortedKeys(record)
		}
		row := make([]interface{}, len(names))
		for i, name := range names {
			row[i] = unwrapAvroUnion(record[name])
		}
		rows = append(rows, row)
	}
	if err := reader.Err(); err != nil {
		return nil, hopserr.NewInvalidArgumentError(err)
	}
	return frameFromRows(names, rows)
}

func unwrapAvroUnion(value interface{}) interface{} {
	union, ok := value.(map[string]interface{})
	if !ok || len(union) != 1 {
		return value
	}
	for _, inner := range union {
		return inner
	}
	return nil
}

func sortedKeys(record map[string]interface{}) []string {
	names := make([]string, 0, len(record))
	for name := range record {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
