// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

package featurestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logicalclocks/hops-go/dataframe"
)

func TestFeaturesFromFrameDefaultsPrimaryKey(t *testing.T) {
	features, err := FeaturesFromFrame(statsFrame(t), "", nil, nil)
	require.NoError(t, err)
	require.Len(t, features, 3)
	assert.True(t, features[0].Primary, "the first column is the default primary key")
	assert.False(t, features[1].Primary)
	assert.Equal(t, "bigint", features[0].Type)
	assert.Equal(t, "double", features[1].Type)
}

func TestFeaturesFromFrameExplicitPrimaryKey(t *testing.T) {
	features, err := FeaturesFromFrame(statsFrame(t), "team_name", nil, map[string]string{
		"team_name": "the name of the team",
	})
	require.NoError(t, err)
	assert.False(t, features[0].Primary)
	assert.True(t, features[2].Primary)
	assert.Equal(t, "the name of the team", features[2].Description)
}

func TestFeaturesFromFrameRejectsUnknownPrimaryKey(t *testing.T) {
	_, err := FeaturesFromFrame(statsFrame(t), "stadium", nil, nil)
	assert.Error(t, err)
}

func TestFeaturesFromFrameRejectsUnknownPartition(t *testing.T) {
	_, err := FeaturesFromFrame(statsFrame(t), "", []string{"stadium"}, nil)
	assert.Error(t, err)
}

func TestCreateTableStatement(t *testing.T) {
	features := []Feature{
		{Name: "team_id", Type: "bigint", Primary: true},
		{Name: "team_budget", Type: "double"},
		{Name: "team_name", Type: "string"},
	}
	assert.Equal(t,
		"CREATE TABLE `teams_features_1` (`team_id` BIGINT, `team_budget` DOUBLE, "+
			"`team_name` VARCHAR(1000), PRIMARY KEY (`team_id`))",
		CreateTableStatement("teams_features_1", features))
}

func TestInsertStatement(t *testing.T) {
	frame, err := dataframe.New(
		[]dataframe.Column{
			{Name: "team_id", Type: dataframe.BigInt},
			{Name: "team_name", Type: dataframe.String},
		},
		[][]interface{}{
			{int64(1), "o'connor fc"},
			{int64(2), nil},
		},
	)
	require.NoError(t, err)

	stmt, err := InsertStatement("teams_features_1", frame)
	require.NoError(t, err)
	assert.Equal(t,
		"INSERT INTO `teams_features_1` (`team_id`, `team_name`) "+
			"VALUES (1, 'o''connor fc'), (2, NULL)",
		stmt)
}

func TestInsertStatementEmptyFrame(t *testing.T) {
	frame, err := dataframe.New(
		[]dataframe.Column{{Name: "team_id", Type: dataframe.BigInt}}, nil)
	require.NoError(t, err)
	_, err = InsertStatement("teams_features_1", frame)
	assert.Error(t, err)
}
