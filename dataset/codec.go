// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/logicalclocks/hops-go/dataframe"
	"github.com/logicalclocks/hops-go/hopserr"
)

func encodeCSV(frame *dataframe.Frame, comma rune) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	writer.Comma = comma
	if err := writer.Write(frame.ColumnNames()); err != nil {
		return nil, hopserr.NewInternalError(err)
	}
	for _, row := range frame.Rows() {
		record := make([]string, len(row))
		for i, value := range row {
			record[i] = formatValue(value)
		}
		if err := writer.Write(record); err != nil {
			return nil, hopserr.NewInternalError(err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, hopserr.NewInternalError(err)
	}
	return buf.Bytes(), nil
}

func decodeCSV(data []byte, comma rune) (*dataframe.Frame, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	records, err := reader.ReadAll()
	if err != nil {
		return nil, hopserr.NewInvalidArgumentError(err)
	}
	if len(records) == 0 {
		return nil, hopserr.NewInvalidArgumentError(errEmptyDataset)
	}
	header := records[0]
	rows := make([][]interface{}, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make([]interface{}, len(record))
		for i, field := range record {
			row[i] = parseScalar(field)
		}
		rows = append(rows, row)
	}
	return frameFromRows(header, rows)
}

// parseScalar recovers typed values from text fields, falling back to
// the raw string.
func parseScalar(field string) interface{} {
	if field == "" {
		return nil
	}
	if parsed, err := strconv.ParseInt(field, 10, 64); err == nil {
		return parsed
	}
	if parsed, err := strconv.ParseFloat(field, 64); err == nil {
		return parsed
	}
	if field == "true" || field == "false" {
		return field == "true"
	}
	return field
}

func encodeJSON(frame *dataframe.Frame) ([]byte, error) {
	names := frame.ColumnNames()
	records := make([]map[string]interface{}, 0, frame.NumRows())
	for _, row := range frame.Rows() {
		records = append(records, rowAsRecord(names, row))
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, hopserr.NewInternalError(err)
	}
	return data, nil
}

func decodeJSON(data []byte) (*dataframe.Frame, error) {
	var records []map[string]interface{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, hopserr.NewInvalidArgumentError(err)
	}
	if len(records) == 0 {
		return nil, hopserr.NewInvalidArgumentError(errEmptyDataset)
	}
	names := make([]string, 0, len(records[0]))
	for name := range records[0] {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([][]interface{}, 0, len(records))
	for _, record := range records {
		row := make([]interface{}, len(names))
		for i, name := range names {
			value := record[name]
			// JSON numbers decode as float64; fold integral values
			// back to int64 so schema inference holds
			if f, ok := value.(float64); ok && f == float64(int64(f)) {
				value = int64(f)
			}
			row[i] = value
		}
		rows = append(rows, row)
	}
	return frameFromRows(names, rows)
}

func frameFromRows(names []string, rows [][]interface{}) (*dataframe.Frame, error) {
	if len(rows) == 0 {
		return nil, hopserr.NewInvalidArgumentError(errEmptyDataset)
	}
	columns, err := dataframe.InferSchema(names, rows[0])
	if err != nil {
		return nil, err
	}
	return dataframe.New(columns, rows)
}
