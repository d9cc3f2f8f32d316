// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

package featurestore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/logicalclocks/hops-go/dataframe"
	"github.com/logicalclocks/hops-go/hopserr"
	"github.com/logicalclocks/hops-go/logging"
)

// SQLRunner executes statements against a feature store database. The
// online store ships a MySQL-backed runner; tests swap in fakes.
type SQLRunner interface {
	// Run executes a query scoped to the given feature store database
	// and returns the result as a dataframe.
	Run(ctx context.Context, featurestore, query string) (*dataframe.Frame, error)
	// Exec executes a statement that returns no rows, such as an
	// INSERT into an online featuregroup table.
	Exec(ctx context.Context, featurestore, stmt string) error
	Close() error
}

// OnlineRunner runs statements against the online feature store, the
// MySQL Cluster database serving low latency feature lookups.
type OnlineRunner struct {
	db     *sql.DB
	logger logging.Logger
}

// NewOnlineRunner opens a connection pool against the online store DSN,
// e.g. user:pass@tcp(mysql.service.consul:3306)/.
func NewOnlineRunner(dsn string, logger logging.Logger) (*OnlineRunner, error) {
	if dsn == "" {
		return nil, hopserr.NewInvalidArgumentError(fmt.Errorf("the online feature store DSN is not set"))
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, hopserr.NewConnectionError(dsn, err)
	}
	if err := db.Ping(); err != nil {
		return nil, hopserr.NewConnectionError(dsn, err)
	}
	return &OnlineRunner{db: db, logger: logger}, nil
}

func (r *OnlineRunner) Close() error {
	return r.db.Close()
}

func (r *OnlineRunner) Run(ctx context.Context, featurestore, query string) (*dataframe.Frame, error) {
	r.logger.Debugw("Running feature store query", "featurestore", featurestore, "query", query)
	conn, err := r.scopedConn(ctx, featurestore)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, hopserr.NewExecutionError(query, err)
	}
	defer rows.Close()
	frame, err := scanFrame(rows)
	if err != nil {
		return nil, hopserr.NewExecutionError(query, err)
	}
	return frame, nil
}

func (r *OnlineRunner) Exec(ctx context.Context, featurestore, stmt string) error {
	r.logger.Debugw("Executing feature store statement", "featurestore", featurestore, "statement", stmt)
	conn, err := r.scopedConn(ctx, featurestore)
	if err != nil {
		return err
	}
	defer conn.Close()
	if _, err := conn.ExecContext(ctx, stmt); err != nil {
		return hopserr.NewExecutionError(stmt, err)
	}
	return nil
}

// scopedConn pins a single connection and selects the feature store's
// database on it, so unqualified table names resolve there. USE on the
// shared pool would leak the scope to other callers.
func (r *OnlineRunner) scopedConn(ctx context.Context, featurestore string) (*sql.Conn, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, hopserr.NewConnectionError(featurestore, err)
	}
	if featurestore != "" {
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("USE `%s`", featurestore)); err != nil {
			conn.Close()
			return nil, hopserr.NewExecutionError(fmt.Sprintf("USE `%s`", featurestore), err)
		}
	}
	return conn, nil
}

// scanFrame drains a result set into a dataframe, mapping database
// column types onto the Hive-aligned frame types.
func scanFrame(rows *sql.Rows) (*dataframe.Frame, error) {
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	columns := make([]dataframe.Column, len(columnTypes))
	for i, ct := range columnTypes {
		columns[i] = dataframe.Column{Name: ct.Name(), Type: sqlToFrameType(ct.DatabaseTypeName())}
	}

	frame, err := dataframe.New(columns, nil)
	if err != nil {
		return nil, err
	}
	values := make([]interface{}, len(columns))
	pointers := make([]interface{}, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		row := make([]interface{}, len(columns))
		for i, v := range values {
			row[i] = normalizeValue(v, columns[i].Type)
		}
		if err := frame.Append(row); err != nil {
			return nil, err
		}
	}
	return frame, rows.Err()
}

func sqlToFrameType(dbType string) dataframe.ValueType {
	switch strings.ToUpper(dbType) {
	case "TINYINT", "SMALLINT":
		return dataframe.SmallInt
	case "INT", "MEDIUMINT", "INTEGER":
		return dataframe.Int
	case "BIGINT":
		return dataframe.BigInt
	case "FLOAT":
		return dataframe.Float
	case "DOUBLE", "REAL":
		return dataframe.Double
	case "DECIMAL", "NUMERIC":
		return dataframe.Decimal
	case "BOOLEAN", "BOOL", "BIT":
		return dataframe.Bool
	case "DATE":
		return dataframe.Date
	case "DATETIME", "TIMESTAMP":
		return dataframe.Timestamp
	case "BLOB", "BINARY", "VARBINARY":
		return dataframe.Binary
	default:
		return dataframe.String
	}
}

// normalizeValue decodes driver values: the MySQL driver hands text
// protocol results back as []byte even for numeric columns.
func normalizeValue(v interface{}, t dataframe.ValueType) interface{} {
	raw, ok := v.([]byte)
	if !ok {
		return v
	}
	text := string(raw)
	switch t {
	case dataframe.Int, dataframe.BigInt, dataframe.SmallInt:
		var parsed int64
		if _, err := fmt.Sscanf(text, "%d", &parsed); err == nil {
			return parsed
		}
	case dataframe.Float, dataframe.Double, dataframe.Decimal:
		var parsed float64
		if _, err := fmt.Sscanf(text, "%g", &parsed); err == nil {
			return parsed
		}
	case dataframe.Binary:
		return raw
	}
	return text
}
