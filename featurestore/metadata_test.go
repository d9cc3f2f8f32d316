// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

package featurestore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logicalclocks/hops-go/hopserr"
)

func TestParseMetadata(t *testing.T) {
	payload := `{
		"featurestore": {"featurestoreId": 67, "featurestoreName": "demo_featurestore", "projectName": "demo"},
		"featuregroups": [
			{"id": 1, "name": "games_features", "version": 1,
			 "features": [
				{"name": "home_team_id", "type": "bigint", "primary": true},
				{"name": "score", "type": "int"}
			 ]}
		],
		"trainingDatasets": [
			{"id": 3, "name": "predictions", "version": 1, "dataFormat": "csv",
			 "hdfsStorePath": "/Projects/demo/Training Datasets/predictions_1"}
		]
	}`
	raw := map[string]interface{}{}
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))

	meta, err := ParseMetadata(raw)
	require.NoError(t, err)
	assert.Equal(t, 67, meta.Featurestore.ID)
	require.Len(t, meta.Featuregroups, 1)
	assert.Equal(t, "games_features_1", meta.Featuregroups[0].TableName())
	assert.True(t, meta.Featuregroups[0].Features[0].Primary)
	require.Len(t, meta.TrainingDatasets, 1)
	assert.Equal(t, "/Projects/demo/Training Datasets/predictions_1", meta.TrainingDatasets[0].Path)
}

func TestFindFeaturegroupDefaultsToVersionOne(t *testing.T) {
	meta := footballMetadata()

	fg, err := meta.FindFeaturegroup("teams_features", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, fg.Version)

	fg, err = meta.FindFeaturegroup("teams_features", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, fg.Version)

	assert.Equal(t, 2, meta.LatestFeaturegroupVersion("teams_features"))
}

func TestFindFeaturegroupNotFound(t *testing.T) {
	meta := footballMetadata()
	_, err := meta.FindFeaturegroup("stadiums_features", 1)
	var notFound *hopserr.FeaturegroupNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.True(t, hopserr.IsNotFound(err))
}

func TestContainsFeaturegroup(t *testing.T) {
	meta := footballMetadata()
	assert.True(t, meta.ContainsFeaturegroup("teams_features", 2))
	assert.False(t, meta.ContainsFeaturegroup("teams_features", 3))
}

func TestFeaturegroupsContainingIsSorted(t *testing.T) {
	meta := footballMetadata()
	matches := meta.FeaturegroupsContaining("team_id")
	require.Len(t, matches, 4)
	assert.Equal(t, "attendances_features_1", matches[0].TableName())
	assert.Equal(t, "teams_features_2", matches[3].TableName())
}

func TestFindTrainingDatasetDefaultsToVersionOne(t *testing.T) {
	meta := footballMetadata()
	td, err := meta.FindTrainingDataset("team_position_prediction", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, td.Version)
	assert.Equal(t, "csv", td.DataFormat)

	assert.Equal(t, 2, meta.LatestTrainingDatasetVersion("team_position_prediction"))

	_, err = meta.FindTrainingDataset("unknown", 0)
	var notFound *hopserr.TrainingDatasetNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestAllFeatureNames(t *testing.T) {
	meta := footballMetadata()
	names := meta.AllFeatureNames()
	assert.Equal(t, []string{
		"average_attendance", "average_player_age", "team_budget", "team_id", "team_position",
	}, names)
}
