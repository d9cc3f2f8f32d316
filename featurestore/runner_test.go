// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

package featurestore

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logicalclocks/hops-go/dataframe"
	"github.com/logicalclocks/hops-go/hopserr"
	"github.com/logicalclocks/hops-go/logging"
)

func newMockRunner(t *testing.T) (*OnlineRunner, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	runner := &OnlineRunner{db: db, logger: logging.NewNop()}
	t.Cleanup(func() { runner.Close() })
	return runner, mock
}

func TestRunScopesToFeaturestore(t *testing.T) {
	runner, mock := newMockRunner(t)
	mock.ExpectExec("USE `demo_featurestore`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT team_budget FROM teams_features_1").WillReturnRows(
		sqlmock.NewRows([]string{"team_budget"}).AddRow(120.5).AddRow(95.0))

	frame, err := runner.Run(context.Background(), "demo_featurestore", "SELECT team_budget FROM teams_features_1")
	require.NoError(t, err)
	assert.Equal(t, 2, frame.NumRows())
	assert.Equal(t, []string{"team_budget"}, frame.ColumnNames())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunQueryError(t *testing.T) {
	runner, mock := newMockRunner(t)
	mock.ExpectExec("USE `demo_featurestore`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT nope").WillReturnError(assert.AnError)

	_, err := runner.Run(context.Background(), "demo_featurestore", "SELECT nope")
	var execErr *hopserr.ExecutionError
	require.ErrorAs(t, err, &execErr)
}

func TestExec(t *testing.T) {
	runner, mock := newMockRunner(t)
	mock.ExpectExec("USE `demo_featurestore`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO `teams_features_1`").WillReturnResult(sqlmock.NewResult(0, 3))

	err := runner.Exec(context.Background(), "demo_featurestore",
		"INSERT INTO `teams_features_1` (`team_id`) VALUES (1), (2), (3)")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, int64(42), normalizeValue([]byte("42"), dataframe.BigInt))
	assert.Equal(t, 1.5, normalizeValue([]byte("1.5"), dataframe.Double))
	assert.Equal(t, "arsenal", normalizeValue([]byte("arsenal"), dataframe.String))
	assert.Equal(t, []byte{0x1}, normalizeValue([]byte{0x1}, dataframe.Binary))
	assert.Equal(t, int64(7), normalizeValue(int64(7), dataframe.BigInt))
}
