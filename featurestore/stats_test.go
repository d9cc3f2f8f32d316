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

func statsFrame(t *testing.T) *dataframe.Frame {
	t.Helper()
	frame, err := dataframe.New(
		[]dataframe.Column{
			{Name: "team_id", Type: dataframe.BigInt},
			{Name: "team_budget", Type: dataframe.Double},
			{Name: "team_name", Type: dataframe.String},
		},
		[][]interface{}{
			{int64(1), 10.0, "a"},
			{int64(2), 20.0, "b"},
			{int64(3), 30.0, "c"},
			{int64(4), 40.0, "d"},
		},
	)
	require.NoError(t, err)
	return frame
}

func TestComputeStatisticsNothingSelected(t *testing.T) {
	stats, err := ComputeStatistics(statsFrame(t), StatisticsOptions{})
	require.NoError(t, err)
	assert.Nil(t, stats)
}

func TestDescriptiveStats(t *testing.T) {
	stats, err := ComputeStatistics(statsFrame(t), StatisticsOptions{Descriptive: true})
	require.NoError(t, err)
	require.NotNil(t, stats.DescriptiveStats)
	require.Len(t, stats.DescriptiveStats.Stats, 2)

	budget := stats.DescriptiveStats.Stats[1]
	assert.Equal(t, "team_budget", budget.FeatureName)
	assert.Equal(t,
		[]string{"count", "max", "mean", "median", "min", "stddev", "sum"},
		budget.sortedMetricNames())

	metrics := map[string]float64{}
	for _, metric := range budget.MetricValues {
		metrics[metric.Name] = metric.Value
	}
	assert.Equal(t, 25.0, metrics["mean"])
	assert.Equal(t, 10.0, metrics["min"])
	assert.Equal(t, 40.0, metrics["max"])
	assert.Equal(t, 4.0, metrics["count"])
}

func TestCorrelationMatrix(t *testing.T) {
	stats, err := ComputeStatistics(statsFrame(t), StatisticsOptions{Correlations: true})
	require.NoError(t, err)
	matrix := stats.CorrelationMatrix
	require.NotNil(t, matrix)
	require.Len(t, matrix.FeatureCorrelations, 2)

	// budget grows linearly with id, the correlation is exactly 1
	row := matrix.FeatureCorrelations[0]
	assert.Equal(t, "team_id", row.FeatureName)
	assert.InDelta(t, 1.0, row.CorrelationValues[0].Correlation, 1e-9)
	assert.InDelta(t, 1.0, row.CorrelationValues[1].Correlation, 1e-9)
}

func TestCorrelationMatrixNeedsTwoNumericColumns(t *testing.T) {
	frame, err := dataframe.New(
		[]dataframe.Column{
			{Name: "team_id", Type: dataframe.BigInt},
			{Name: "team_name", Type: dataframe.String},
		},
		[][]interface{}{{int64(1), "a"}},
	)
	require.NoError(t, err)

	_, err = ComputeStatistics(frame, StatisticsOptions{Correlations: true})
	assert.Error(t, err)
}

func TestHistograms(t *testing.T) {
	stats, err := ComputeStatistics(statsFrame(t), StatisticsOptions{Histograms: true})
	require.NoError(t, err)
	require.NotNil(t, stats.Histograms)
	require.Len(t, stats.Histograms.FeatureDistributions, 2)

	dist := stats.Histograms.FeatureDistributions[1]
	assert.Equal(t, "team_budget", dist.FeatureName)
	assert.Len(t, dist.Distribution, 20)

	total := 0
	for _, bin := range dist.Distribution {
		total += bin.Frequency
	}
	assert.Equal(t, 4, total)
}

func TestHistogramConstantColumn(t *testing.T) {
	bins := histogram([]float64{5, 5, 5}, 20)
	require.Len(t, bins, 1)
	assert.Equal(t, 3, bins[0].Frequency)
}

func TestClusterAnalysis(t *testing.T) {
	stats, err := ComputeStatistics(statsFrame(t), StatisticsOptions{ClusterAnalysis: true})
	require.NoError(t, err)
	analysis := stats.ClusterAnalysis
	require.NotNil(t, analysis)
	assert.Len(t, analysis.DataPoints, 4)
	assert.Len(t, analysis.Clusters, 4)
	for _, assignment := range analysis.Clusters {
		assert.GreaterOrEqual(t, assignment.Cluster, 0)
		assert.Less(t, assignment.Cluster, clusterCount)
	}
}

func TestKMeansSeparatesObviousClusters(t *testing.T) {
	points := [][2]float64{
		{0, 0}, {0.1, 0.1}, {100, 100}, {100.1, 100.2},
	}
	assignments := kmeans(points, 2)
	assert.Equal(t, assignments[0], assignments[1])
	assert.Equal(t, assignments[2], assignments[3])
	assert.NotEqual(t, assignments[0], assignments[2])
}
