// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

package dataframe

import (
	"fmt"
	"strings"

	"github.com/logicalclocks/hops-go/hopserr"
)

// SparkToHiveType converts a Spark SQL dtype string to the Hive DDL
// type used when registering featuregroup schemas. Complex types are
// passed as the Spark JSON schema node.
func SparkToHiveType(dtype interface{}) (string, error) {
	switch t := dtype.(type) {
	case string:
		return scalarSparkToHive(t)
	case map[string]interface{}:
		return complexSparkToHive(t)
	default:
		return "", hopserr.NewInvalidArgumentError(fmt.Errorf("unsupported spark dtype: %v", dtype))
	}
}

func scalarSparkToHive(dtype string) (string, error) {
	lower := strings.ToLower(dtype)
	switch lower {
	case "long", "bigint":
		return "BIGINT", nil
	case "short", "integer", "int":
		return "INT", nil
	case "byte":
		return "CHAR", nil
	case "smallint":
		return "SMALLINT", nil
	case "string":
		return "STRING", nil
	case "double":
		return "DOUBLE", nil
	case "float":
		return "FLOAT", nil
	case "binary":
		return "BINARY", nil
	case "boolean":
		return "BOOLEAN", nil
	case "date":
		return "DATE", nil
	case "timestamp":
		return "TIMESTAMP", nil
	}
	// decimal travels with precision and scale, e.g. decimal(10,3)
	if strings.HasPrefix(lower, "decimal") {
		return strings.ToUpper(lower), nil
	}
	return "", hopserr.NewInvalidArgumentError(fmt.Errorf("unsupported spark dtype: %s", dtype))
}

func complexSparkToHive(node map[string]interface{}) (string, error) {
	kind, _ := node["type"].(string)
	switch kind {
	case "array":
		element, err := SparkToHiveType(node["elementType"])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("ARRAY<%s>", element), nil
	case "struct":
		fields, ok := node["fields"].([]interface{})
		if !ok {
			return "", hopserr.NewInvalidArgumentError(fmt.Errorf("struct dtype without fields"))
		}
		parts := make([]string, 0, len(fields))
		for _, raw := range fields {
			field, ok := raw.(map[string]interface{})
			if !ok {
				return "", hopserr.NewInvalidArgumentError(fmt.Errorf("malformed struct field: %v", raw))
			}
			name, _ := field["name"].(string)
			fieldType, err := SparkToHiveType(field["type"])
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("%s:%s", name, fieldType))
		}
		return fmt.Sprintf("STRUCT<%s>", strings.Join(parts, ",")), nil
	case "map":
		key, err := SparkToHiveType(node["keyType"])
		if err != nil {
			return "", err
		}
		value, err := SparkToHiveType(node["valueType"])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("MAP<%s,%s>", key, value), nil
	}
	return "", hopserr.NewInvalidArgumentError(fmt.Errorf("unsupported complex spark dtype: %s", kind))
}

// HiveType renders a column's Hive DDL type.
func HiveType(t ValueType) string {
	return strings.ToUpper(string(t))
}
