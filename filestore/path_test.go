// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

package filestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePathHDFS(t *testing.T) {
	p, err := ParsePath("hdfs://10.0.2.15:8020/apps/hive/warehouse/demo_featurestore.db")
	require.NoError(t, err)
	assert.Equal(t, SchemeHDFS, p.Scheme)
	assert.Equal(t, "10.0.2.15:8020", p.Authority)
	assert.Equal(t, "apps/hive/warehouse/demo_featurestore.db", p.Key)
	assert.Equal(t, "hdfs://10.0.2.15:8020/apps/hive/warehouse/demo_featurestore.db", p.String())
}

func TestParsePathRelative(t *testing.T) {
	p, err := ParsePath("/Projects/demo/Training Datasets/predictions_1")
	require.NoError(t, err)
	assert.Equal(t, SchemeLocal, p.Scheme)
	assert.Equal(t, "Projects/demo/Training Datasets/predictions_1", p.Key)
}

func TestParsePathS3(t *testing.T) {
	p, err := ParsePath("s3://my-bucket/datasets/predictions_1.parquet")
	require.NoError(t, err)
	assert.Equal(t, SchemeS3, p.Scheme)
	assert.Equal(t, "my-bucket", p.Authority)
	assert.Equal(t, "datasets/predictions_1.parquet", p.Key)
}

func TestParsePathRejectsUnknownScheme(t *testing.T) {
	_, err := ParsePath("ftp://host/key")
	assert.Error(t, err)

	_, err = ParsePath("")
	assert.Error(t, err)
}

func TestProjectDatasetKey(t *testing.T) {
	assert.Equal(t,
		"Projects/demo/Training Datasets/predictions_1",
		ProjectDatasetKey("demo", "Training Datasets", "predictions_1"))
}
