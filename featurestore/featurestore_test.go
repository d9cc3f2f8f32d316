// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

package featurestore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logicalclocks/hops-go/config"
	"github.com/logicalclocks/hops-go/dataframe"
	"github.com/logicalclocks/hops-go/dataset"
	"github.com/logicalclocks/hops-go/filestore"
	"github.com/logicalclocks/hops-go/logging"
	"github.com/logicalclocks/hops-go/rest"
)

// fakeRunner records statements and answers queries with a canned
// frame.
type fakeRunner struct {
	queries []string
	execs   []string
	frame   *dataframe.Frame
}

func (f *fakeRunner) Run(ctx context.Context, featurestore, query string) (*dataframe.Frame, error) {
	f.queries = append(f.queries, query)
	return f.frame, nil
}

func (f *fakeRunner) Exec(ctx context.Context, featurestore, stmt string) error {
	f.execs = append(f.execs, stmt)
	return nil
}

func (f *fakeRunner) Close() error { return nil }

type serverCalls struct {
	method string
	path   string
	body   []byte
}

func newTestClient(t *testing.T, runner SQLRunner, extra func(w http.ResponseWriter, r *http.Request, calls *[]serverCalls) bool) (*Client, *[]serverCalls) {
	t.Helper()
	calls := &[]serverCalls{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*calls = append(*calls, serverCalls{method: r.Method, path: r.URL.Path, body: body})
		if extra != nil && extra(w, r, calls) {
			return
		}
		if r.Method == http.MethodGet &&
			r.URL.Path == "/hopsworks-api/api/project/119/featurestores/demo_featurestore/metadata" {
			_ = json.NewEncoder(w).Encode(footballMetadata())
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	rc, err := rest.NewClient(config.Settings{
		RestEndpoint: server.URL,
		ProjectName:  "demo",
		ProjectID:    119,
		APIKey:       "key",
	}, rest.WithLogger(logging.NewNop()))
	require.NoError(t, err)

	opts := []Option{WithLogger(logging.NewNop())}
	if runner != nil {
		opts = append(opts, WithRunner(runner))
	}
	return NewClient(rc, opts...), calls
}

func TestProjectFeaturestore(t *testing.T) {
	client, _ := newTestClient(t, nil, nil)
	assert.Equal(t, "demo_featurestore", client.ProjectFeaturestore())
}

func TestMetadataFetch(t *testing.T) {
	client, _ := newTestClient(t, nil, nil)
	meta, err := client.Metadata(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 67, meta.Featurestore.ID)
	assert.Len(t, meta.Featuregroups, 4)
}

func TestGetFeaturegroupRunsSelectStar(t *testing.T) {
	runner := &fakeRunner{frame: statsFrame(t)}
	client, _ := newTestClient(t, runner, nil)

	frame, err := client.GetFeaturegroup(context.Background(), "", "teams_features", 1)
	require.NoError(t, err)
	assert.Equal(t, 4, frame.NumRows())
	require.Len(t, runner.queries, 1)
	assert.Equal(t, "SELECT * FROM teams_features_1", runner.queries[0])
}

func TestGetFeaturesPlansJoin(t *testing.T) {
	runner := &fakeRunner{frame: statsFrame(t)}
	client, _ := newTestClient(t, runner, nil)

	_, err := client.GetFeatures(context.Background(), "", FeatureQuery{
		Features: []string{"team_budget", "average_attendance"},
		Featuregroups: map[string]int{
			"teams_features":       1,
			"attendances_features": 1,
		},
	})
	require.NoError(t, err)
	require.Len(t, runner.queries, 1)
	assert.Equal(t,
		"SELECT team_budget, average_attendance FROM attendances_features_1 "+
			"JOIN teams_features_1 ON attendances_features_1.`team_id`=teams_features_1.`team_id`",
		runner.queries[0])
}

func TestGetFeatureResolvesSingleGroup(t *testing.T) {
	runner := &fakeRunner{frame: statsFrame(t)}
	client, _ := newTestClient(t, runner, nil)

	_, err := client.GetFeature(context.Background(), "", "average_attendance")
	require.NoError(t, err)
	require.Len(t, runner.queries, 1)
	assert.Equal(t, "SELECT average_attendance FROM attendances_features_1", runner.queries[0])
}

func TestCreateFeaturegroup(t *testing.T) {
	runner := &fakeRunner{}
	client, calls := newTestClient(t, runner, nil)

	err := client.CreateFeaturegroup(context.Background(), "", FeaturegroupSpec{
		Name:        "stadiums_features",
		Description: "stadium capacities",
	}, statsFrame(t))
	require.NoError(t, err)

	var registered bool
	for _, call := range *calls {
		if call.method == http.MethodPost &&
			call.path == "/hopsworks-api/api/project/119/featurestores/demo_featurestore/featuregroups" {
			registered = true
			// no statistics were requested, so none are serialized
			assert.NotContains(t, string(call.body), "statistics")
		}
	}
	assert.True(t, registered, "the featuregroup must be registered in the metastore")

	require.Len(t, runner.execs, 2)
	assert.Contains(t, runner.execs[0], "CREATE TABLE `stadiums_features_1`")
	assert.Contains(t, runner.execs[1], "INSERT INTO `stadiums_features_1`")
}

func TestInsertOverwriteRebuildsTable(t *testing.T) {
	runner := &fakeRunner{}
	client, calls := newTestClient(t, runner, nil)

	err := client.InsertIntoFeaturegroup(context.Background(), "", "teams_features", 1, statsFrame(t), Overwrite)
	require.NoError(t, err)

	var cleared bool
	for _, call := range *calls {
		if call.method == http.MethodPost &&
			call.path == "/hopsworks-api/api/project/119/featurestores/demo_featurestore/featuregroups/1/clear" {
			cleared = true
		}
	}
	assert.True(t, cleared)
	require.Len(t, runner.execs, 3)
	assert.Equal(t, "DROP TABLE IF EXISTS `teams_features_1`", runner.execs[0])
	assert.Contains(t, runner.execs[1], "CREATE TABLE `teams_features_1`")
	assert.Contains(t, runner.execs[2], "INSERT INTO `teams_features_1`")
}

func TestInsertRejectsUnknownMode(t *testing.T) {
	client, _ := newTestClient(t, &fakeRunner{}, nil)
	err := client.InsertIntoFeaturegroup(context.Background(), "", "teams_features", 1, statsFrame(t), "upsert")
	assert.Error(t, err)
}

func TestTrainingDatasetLifecycle(t *testing.T) {
	store, err := filestore.NewLocal(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	runner := &fakeRunner{}
	client, calls := newTestClient(t, runner, nil)
	client.store = store

	err = client.CreateTrainingDataset(context.Background(), "", TrainingDatasetSpec{
		Name:   "team_position_prediction",
		Format: dataset.CSV,
	}, statsFrame(t))
	require.NoError(t, err)

	var registered bool
	for _, call := range *calls {
		if call.method == http.MethodPost &&
			call.path == "/hopsworks-api/api/project/119/featurestores/demo_featurestore/trainingdatasets" {
			registered = true
		}
	}
	assert.True(t, registered)

	// the metadata fixture registers version 1 as csv, read it back
	frame, err := client.GetTrainingDataset(context.Background(), "", "team_position_prediction", 1)
	require.NoError(t, err)
	assert.Equal(t, 4, frame.NumRows())
}

func TestInsertIntoTrainingDatasetKeepsRegisteredFormat(t *testing.T) {
	store, err := filestore.NewLocal(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	client, _ := newTestClient(t, nil, nil)
	client.store = store
	ctx := context.Background()

	err = client.CreateTrainingDataset(ctx, "", TrainingDatasetSpec{
		Name:   "team_position_prediction",
		Format: dataset.CSV,
	}, statsFrame(t))
	require.NoError(t, err)

	replacement, err := dataframe.New(
		[]dataframe.Column{
			{Name: "team_id", Type: dataframe.BigInt},
			{Name: "team_budget", Type: dataframe.Double},
		},
		[][]interface{}{
			{int64(7), 70.0},
			{int64(8), 80.0},
		},
	)
	require.NoError(t, err)

	// version 1 is registered as csv, the rewrite must keep that format
	require.NoError(t, client.InsertIntoTrainingDataset(ctx, "", "team_position_prediction", 1, replacement))

	exists, err := store.Exists(ctx, "Training Datasets/team_position_prediction_1.csv")
	require.NoError(t, err)
	assert.True(t, exists)

	frame, err := client.GetTrainingDataset(ctx, "", "team_position_prediction", 1)
	require.NoError(t, err)
	require.Equal(t, 2, frame.NumRows())
	budgets, err := frame.Float64Column("team_budget")
	require.NoError(t, err)
	assert.Equal(t, []float64{70.0, 80.0}, budgets)
}

func TestGetTrainingDatasetPath(t *testing.T) {
	client, _ := newTestClient(t, nil, nil)
	path, err := client.GetTrainingDatasetPath(context.Background(), "", "team_position_prediction", 1)
	require.NoError(t, err)
	assert.Equal(t, "Training Datasets/team_position_prediction_1", path)
}
