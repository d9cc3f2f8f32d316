// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

// Package dataframe holds the in-memory tabular value passed between
// the feature store, the statistics engine and the dataset writers.
// It is deliberately small: heavy lifting stays in the engines the
// client talks to.
package dataframe

import (
	"fmt"
	"time"

	"github.com/logicalclocks/hops-go/hopserr"
)

// ValueType is the Hive-aligned type of a column.
type ValueType string

const (
	Int       ValueType = "int"
	BigInt    ValueType = "bigint"
	SmallInt  ValueType = "smallint"
	Float     ValueType = "float"
	Double    ValueType = "double"
	Decimal   ValueType = "decimal"
	Bool      ValueType = "boolean"
	String    ValueType = "string"
	Date      ValueType = "date"
	Timestamp ValueType = "timestamp"
	Binary    ValueType = "binary"
)

func IsNumeric(t ValueType) bool {
	switch t {
	case Int, BigInt, SmallInt, Float, Double, Decimal:
		return true
	}
	return false
}

type Column struct {
	Name string
	Type ValueType
}

// Frame is a row-major table with a fixed schema.
type Frame struct {
	columns []Column
	rows    [][]interface{}
}

func New(columns []Column, rows [][]interface{}) (*Frame, error) {
	if len(columns) == 0 {
		return nil, hopserr.NewInvalidArgumentError(fmt.Errorf("a dataframe needs at least one column"))
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, hopserr.NewInvalidArgumentError(fmt.Errorf(
				"row %d has %d values but the schema has %d columns", i, len(row), len(columns)))
		}
	}
	return &Frame{columns: columns, rows: rows}, nil
}

func (f *Frame) Columns() []Column {
	return f.columns
}

func (f *Frame) ColumnNames() []string {
	names := make([]string, len(f.columns))
	for i, col := range f.columns {
		names[i] = col.Name
	}
	return names
}

func (f *Frame) NumRows() int {
	return len(f.rows)
}

func (f *Frame) Rows() [][]interface{} {
	return f.rows
}

func (f *Frame) Append(row []interface{}) error {
	if len(row) != len(f.columns) {
		return hopserr.NewInvalidArgumentError(fmt.Errorf(
			"row has %d values but the schema has %d columns", len(row), len(f.columns)))
	}
	f.rows = append(f.rows, row)
	return nil
}

func (f *Frame) columnIndex(name string) (int, error) {
	for i, col := range f.columns {
		if col.Name == name {
			return i, nil
		}
	}
	return 0, hopserr.NewFeatureNotFoundError(name, f.ColumnNames())
}

// Column returns the values of a single column.
func (f *Frame) Column(name string) ([]interface{}, error) {
	idx, err := f.columnIndex(name)
	if err != nil {
		return nil, err
	}
	values := make([]interface{}, len(f.rows))
	for i, row := range f.rows {
		values[i] = row[idx]
	}
	return values, nil
}

// Float64Column converts a numeric column to float64 values, skipping
// nils. Non-numeric columns are rejected.
func (f *Frame) Float64Column(name string) ([]float64, error) {
	idx, err := f.columnIndex(name)
	if err != nil {
		return nil, err
	}
	if !IsNumeric(f.columns[idx].Type) {
		return nil, hopserr.NewInvalidArgumentError(fmt.Errorf(
			"the column %s has type %s which is not numeric", name, f.columns[idx].Type))
	}
	values := make([]float64, 0, len(f.rows))
	for _, row := range f.rows {
		v, ok := toFloat64(row[idx])
		if ok {
			values = append(values, v)
		}
	}
	return values, nil
}

// NumericColumns returns the names of all numeric columns, in schema
// order.
func (f *Frame) NumericColumns() []string {
	var names []string
	for _, col := range f.columns {
		if IsNumeric(col.Type) {
			names = append(names, col.Name)
		}
	}
	return names
}

func toFloat64(v interface{}) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int:
		return float64(value), true
	case int32:
		return float64(value), true
	case int64:
		return float64(value), true
	default:
		return 0, false
	}
}

// InferType maps a Go value to the Hive-aligned column type, used when
// building a schema from raw rows.
func InferType(v interface{}) ValueType {
	switch v.(type) {
	case int, int64:
		return BigInt
	case int32, int16:
		return Int
	case float32:
		return Float
	case float64:
		return Double
	case bool:
		return Bool
	case time.Time:
		return Timestamp
	case []byte:
		return Binary
	default:
		return String
	}
}

// InferSchema derives a schema from column names and the first row of
// values.
func InferSchema(names []string, firstRow []interface{}) ([]Column, error) {
	if len(names) != len(firstRow) {
		return nil, hopserr.NewInvalidArgumentError(fmt.Errorf(
			"got %d column names but %d values", len(names), len(firstRow)))
	}
	columns := make([]Column, len(names))
	for i, name := range names {
		columns[i] = Column{Name: name, Type: InferType(firstRow[i])}
	}
	return columns, nil
}
