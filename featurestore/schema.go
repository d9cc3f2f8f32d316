// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

package featurestore

import (
	"fmt"
	"strings"
	"time"

	"github.com/logicalclocks/hops-go/dataframe"
	"github.com/logicalclocks/hops-go/hopserr"
)

// FeaturesFromFrame derives the feature schema to register from a
// dataframe. An empty primaryKey defaults to the first column.
func FeaturesFromFrame(frame *dataframe.Frame, primaryKey string, partitionBy []string, descriptions map[string]string) ([]Feature, error) {
	columns := frame.Columns()
	if primaryKey == "" {
		primaryKey = columns[0].Name
	}
	if _, err := frame.Column(primaryKey); err != nil {
		return nil, hopserr.NewInvalidArgumentError(fmt.Errorf(
			"the primary key %s is not a column of the dataframe", primaryKey))
	}
	partitions := map[string]bool{}
	for _, name := range partitionBy {
		if _, err := frame.Column(name); err != nil {
			return nil, hopserr.NewInvalidArgumentError(fmt.Errorf(
				"the partition column %s is not a column of the dataframe", name))
		}
		partitions[name] = true
	}

	features := make([]Feature, len(columns))
	for i, col := range columns {
		features[i] = Feature{
			Name:        col.Name,
			Type:        strings.ToLower(dataframe.HiveType(col.Type)),
			Description: descriptions[col.Name],
			Primary:     col.Name == primaryKey,
			Partition:   partitions[col.Name],
		}
	}
	return features, nil
}

// CreateTableStatement renders the DDL for the table backing a
// featuregroup in the online store.
func CreateTableStatement(table string, features []Feature) string {
	parts := make([]string, 0, len(features)+1)
	var primary []string
	for _, feature := range features {
		parts = append(parts, fmt.Sprintf("`%s` %s", feature.Name, onlineColumnType(feature.Type)))
		if feature.Primary {
			primary = append(primary, fmt.Sprintf("`%s`", feature.Name))
		}
	}
	if len(primary) > 0 {
		parts = append(parts, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(primary, ", ")))
	}
	return fmt.Sprintf("CREATE TABLE `%s` (%s)", table, strings.Join(parts, ", "))
}

// onlineColumnType maps Hive feature types onto the MySQL types of the
// online store. STRING has no direct equivalent and becomes VARCHAR.
func onlineColumnType(hiveType string) string {
	upper := strings.ToUpper(hiveType)
	switch upper {
	case "STRING":
		return "VARCHAR(1000)"
	case "BINARY":
		return "VARBINARY(1000)"
	default:
		return upper
	}
}

func DropTableStatement(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS `%s`", table)
}

// InsertStatement renders a multi-row INSERT of the dataframe into the
// named table.
func InsertStatement(table string, frame *dataframe.Frame) (string, error) {
	if frame.NumRows() == 0 {
		return "", hopserr.NewInvalidArgumentError(fmt.Errorf("cannot insert an empty dataframe"))
	}
	names := frame.ColumnNames()
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = fmt.Sprintf("`%s`", name)
	}
	tuples := make([]string, 0, frame.NumRows())
	for _, row := range frame.Rows() {
		literals := make([]string, len(row))
		for i, value := range row {
			literal, err := sqlLiteral(value)
			if err != nil {
				return "", err
			}
			literals[i] = literal
		}
		tuples = append(tuples, fmt.Sprintf("(%s)", strings.Join(literals, ", ")))
	}
	return fmt.Sprintf("INSERT INTO `%s` (%s) VALUES %s",
		table, strings.Join(quoted, ", "), strings.Join(tuples, ", ")), nil
}

func sqlLiteral(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if v {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int, int16, int32, int64:
		return fmt.Sprintf("%d", v), nil
	case float32, float64:
		return fmt.Sprintf("%v", v), nil
	case string:
		return fmt.Sprintf("'%s'", strings.ReplaceAll(v, "'", "''")), nil
	case time.Time:
		return fmt.Sprintf("'%s'", v.UTC().Format("2006-01-02 15:04:05")), nil
	case []byte:
		return fmt.Sprintf("X'%x'", v), nil
	default:
		return "", hopserr.NewInvalidArgumentError(fmt.Errorf("cannot render %T as a SQL literal", value))
	}
}
