// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

// Package dataset materializes dataframes to and from the training
// dataset formats supported by the platform.
package dataset

import (
	"context"
	"fmt"
	"strings"

	"github.com/logicalclocks/hops-go/dataframe"
	"github.com/logicalclocks/hops-go/filestore"
	"github.com/logicalclocks/hops-go/hopserr"
)

var errEmptyDataset = fmt.Errorf("the dataset has no rows")

type Format string

const (
	CSV     Format = "csv"
	TSV     Format = "tsv"
	JSON    Format = "json"
	Parquet Format = "parquet"
	Avro    Format = "avro"
)

// recognizedOnly lists formats the platform knows about but this
// client cannot materialize; they need an engine-side writer.
var recognizedOnly = map[Format]bool{
	"orc":       true,
	"tfrecords": true,
	"tfrecord":  true,
	"npy":       true,
	"hdf5":      true,
	"petastorm": true,
}

// SupportedFormats lists the formats Write and Read handle.
func SupportedFormats() []string {
	return []string{string(CSV), string(TSV), string(JSON), string(Parquet), string(Avro)}
}

// ParseFormat normalizes a user-supplied format name. Formats the
// platform recognizes but this client cannot produce get a typed
// unsupported-format error.
func ParseFormat(name string) (Format, error) {
	format := Format(strings.ToLower(strings.TrimSpace(name)))
	switch format {
	case CSV, TSV, JSON, Parquet, Avro:
		return format, nil
	}
	if recognizedOnly[format] {
		return "", hopserr.NewUnsupportedFormatError(string(format), SupportedFormats())
	}
	return "", hopserr.NewInvalidArgumentError(fmt.Errorf(
		"unknown training dataset format %q, supported formats are %s", name, strings.Join(SupportedFormats(), ", ")))
}

// WithSuffix appends the format's file suffix unless the path already
// carries it.
func WithSuffix(path string, format Format) string {
	suffix := "." + string(format)
	if strings.HasSuffix(path, suffix) {
		return path
	}
	return path + suffix
}

// Write materializes the frame to the store at path in the given
// format. Existing datasets are only replaced when overwrite is set.
func Write(ctx context.Context, store filestore.FileStore, path string, format Format, frame *dataframe.Frame, overwrite bool) error {
	key := WithSuffix(path, format)
	exists, err := store.Exists(ctx, key)
	if err != nil {
		return err
	}
	if exists && !overwrite {
		return hopserr.NewDatasetAlreadyExistsError(key)
	}
	data, err := encode(format, frame)
	if err != nil {
		return err
	}
	return store.Write(ctx, key, data)
}

// Read loads a dataset from the store into a frame.
func Read(ctx context.Context, store filestore.FileStore, path string, format Format) (*dataframe.Frame, error) {
	data, err := store.Read(ctx, WithSuffix(path, format))
	if err != nil {
		return nil, err
	}
	return decode(format, data)
}

func encode(format Format, frame *dataframe.Frame) ([]byte, error) {
	switch format {
	case CSV:
		return encodeCSV(frame, ',')
	case TSV:
		return encodeCSV(frame, '\t')
	case JSON:
		return encodeJSON(frame)
	case Parquet:
		return encodeParquet(frame)
	case Avro:
		return encodeAvro(frame)
	}
	return nil, hopserr.NewUnsupportedFormatError(string(format), SupportedFormats())
}

func decode(format Format, data []byte) (*dataframe.Frame, error) {
	switch format {
	case CSV:
		return decodeCSV(data, ',')
	case TSV:
		return decodeCSV(data, '\t')
	case JSON:
		return decodeJSON(data)
	case Parquet:
		return decodeParquet(data)
	case Avro:
		return decodeAvro(data)
	}
	return nil, hopserr.NewUnsupportedFormatError(string(format), SupportedFormats())
}

func rowAsRecord(names []string, row []interface{}) map[string]interface{} {
	record := make(map[string]interface{}, len(names))
	for i, name := range names {
		record[name] = row[i]
	}
	return record
}

func formatValue(value interface{}) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%v", value)
}
