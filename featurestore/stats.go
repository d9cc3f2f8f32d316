// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

package featurestore

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"github.com/logicalclocks/hops-go/dataframe"
	"github.com/logicalclocks/hops-go/hopserr"
)

const (
	// histogramBins is the fixed bin count of feature histograms.
	histogramBins = 20
	// maxCorrelationColumns caps the correlation matrix size, the
	// matrix grows quadratically in the number of columns.
	maxCorrelationColumns = 50
	// clusterCount is the k of the cluster analysis.
	clusterCount         = 5
	clusterMaxIterations = 100
)

// Statistics is the full statistics payload attached to featuregroups
// and training datasets in the metastore.
type Statistics struct {
	DescriptiveStats  *DescriptiveStats  `json:"descriptiveStatistics,omitempty"`
	CorrelationMatrix *CorrelationMatrix `json:"featureCorrelationMatrix,omitempty"`
	Histograms        *Histograms        `json:"featuresHistogram,omitempty"`
	ClusterAnalysis   *ClusterAnalysis   `json:"clusterAnalysis,omitempty"`
}

type DescriptiveStats struct {
	Stats []FeatureStats `json:"descriptiveStats"`
}

type FeatureStats struct {
	FeatureName  string        `json:"featureName"`
	MetricValues []MetricValue `json:"metricValues"`
}

type MetricValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type CorrelationMatrix struct {
	FeatureCorrelations []FeatureCorrelation `json:"featureCorrelations"`
}

type FeatureCorrelation struct {
	FeatureName       string             `json:"featureName"`
	CorrelationValues []CorrelationValue `json:"correlationValues"`
}

type CorrelationValue struct {
	FeatureName string  `json:"featureName"`
	Correlation float64 `json:"correlation"`
}

type Histograms struct {
	FeatureDistributions []FeatureDistribution `json:"featureDistributions"`
}

type FeatureDistribution struct {
	FeatureName  string         `json:"featureName"`
	Distribution []HistogramBin `json:"frequencyDistribution"`
}

type HistogramBin struct {
	Bin       string `json:"bin"`
	Frequency int    `json:"frequency"`
}

type ClusterAnalysis struct {
	DataPoints []DataPoint        `json:"dataPoints"`
	Clusters   []ClusterAssigment `json:"clusters"`
}

type DataPoint struct {
	Name            string  `json:"name"`
	FirstDimension  float64 `json:"firstDimension"`
	SecondDimension float64 `json:"secondDimension"`
}

type ClusterAssigment struct {
	DataPointName string `json:"datapointName"`
	Cluster       int    `json:"cluster"`
}

// StatisticsOptions selects which statistics to compute.
type StatisticsOptions struct {
	Descriptive     bool
	Correlations    bool
	Histograms      bool
	ClusterAnalysis bool
}

// AllStatistics enables every statistic.
func AllStatistics() StatisticsOptions {
	return StatisticsOptions{Descriptive: true, Correlations: true, Histograms: true, ClusterAnalysis: true}
}

// ComputeStatistics computes the selected statistics over the numeric
// columns of the frame. The four statistics are independent and run
// concurrently. With nothing selected the result is nil, so the DTOs
// embedding it serialize no statistics at all.
func ComputeStatistics(frame *dataframe.Frame, opts StatisticsOptions) (*Statistics, error) {
	if !opts.Descriptive && !opts.Correlations && !opts.Histograms && !opts.ClusterAnalysis {
		return nil, nil
	}
	result := &Statistics{}
	var group errgroup.Group
	if opts.Descriptive {
		group.Go(func() error {
			computed, err := computeDescriptiveStats(frame)
			if err != nil {
				return err
			}
			result.DescriptiveStats = computed
			return nil
		})
	}
	if opts.Correlations {
		group.Go(func() error {
			computed, err := computeCorrelationMatrix(frame)
			if err != nil {
				return err
			}
			result.CorrelationMatrix = computed
			return nil
		})
	}
	if opts.Histograms {
		group.Go(func() error {
			computed, err := computeHistograms(frame)
			if err != nil {
				return err
			}
			result.Histograms = computed
			return nil
		})
	}
	if opts.ClusterAnalysis {
		group.Go(func() error {
			computed, err := computeClusterAnalysis(frame)
			if err != nil {
				return err
			}
			result.ClusterAnalysis = computed
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func computeDescriptiveStats(frame *dataframe.Frame) (*DescriptiveStats, error) {
	result := &DescriptiveStats{}
	for _, name := range frame.NumericColumns() {
		values, err := frame.Float64Column(name)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			continue
		}
		data := stats.Float64Data(values)
		metrics := []MetricValue{}
		appendMetric := func(metric string, value float64, err error) {
			if err == nil && !math.IsNaN(value) {
				metrics = append(metrics, MetricValue{Name: metric, Value: value})
			}
		}
		mean, err := data.Mean()
		appendMetric("mean", mean, err)
		min, err := data.Min()
		appendMetric("min", min, err)
		max, err := data.Max()
		appendMetric("max", max, err)
		stddev, err := data.StandardDeviation()
		appendMetric("stddev", stddev, err)
		median, err := data.Median()
		appendMetric("median", median, err)
		sum, err := data.Sum()
		appendMetric("sum", sum, err)
		metrics = append(metrics, MetricValue{Name: "count", Value: float64(len(values))})
		result.Stats = append(result.Stats, FeatureStats{FeatureName: name, MetricValues: metrics})
	}
	return result, nil
}

// computeCorrelationMatrix builds the pairwise Pearson correlation of
// the numeric columns. At least two numeric columns are required, and
// very wide frames are rejected instead of producing a matrix nobody
// can render.
func computeCorrelationMatrix(frame *dataframe.Frame) (*CorrelationMatrix, error) {
	numeric := frame.NumericColumns()
	if len(numeric) < 2 {
		return nil, hopserr.NewInvalidArgumentError(fmt.Errorf(
			"the correlation matrix needs at least 2 numeric columns, the dataframe has %d", len(numeric)))
	}
	if len(numeric) > maxCorrelationColumns {
		return nil, hopserr.NewInvalidArgumentError(fmt.Errorf(
			"the dataframe has %d numeric columns, more than the %d supported by the correlation matrix",
			len(numeric), maxCorrelationColumns))
	}

	columns := make(map[string][]float64, len(numeric))
	for _, name := range numeric {
		values, err := frame.Float64Column(name)
		if err != nil {
			return nil, err
		}
		columns[name] = values
	}

	matrix := &CorrelationMatrix{}
	for _, first := range numeric {
		row := FeatureCorrelation{FeatureName: first}
		for _, second := range numeric {
			corr, err := stats.Pearson(columns[first], columns[second])
			if err != nil || math.IsNaN(corr) {
				corr = 0
			}
			row.CorrelationValues = append(row.CorrelationValues, CorrelationValue{
				FeatureName: second,
				Correlation: corr,
			})
		}
		matrix.FeatureCorrelations = append(matrix.FeatureCorrelations, row)
	}
	return matrix, nil
}

func computeHistograms(frame *dataframe.Frame) (*Histograms, error) {
	result := &Histograms{}
	for _, name := range frame.NumericColumns() {
		values, err := frame.Float64Column(name)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			continue
		}
		result.FeatureDistributions = append(result.FeatureDistributions, FeatureDistribution{
			FeatureName:  name,
			Distribution: histogram(values, histogramBins),
		})
	}
	return result, nil
}

func histogram(values []float64, bins int) []HistogramBin {
	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if min == max {
		return []HistogramBin{{Bin: fmt.Sprintf("%.2f", min), Frequency: len(values)}}
	}
	width := (max - min) / float64(bins)
	counts := make([]int, bins)
	for _, v := range values {
		idx := int((v - min) / width)
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}
	result := make([]HistogramBin, bins)
	for i, count := range counts {
		result[i] = HistogramBin{
			Bin:       fmt.Sprintf("%.2f", min+width*float64(i)),
			Frequency: count,
		}
	}
	return result
}

// computeClusterAnalysis projects the rows onto the first two numeric
// columns and assigns them to clusters with k-means.
func computeClusterAnalysis(frame *dataframe.Frame) (*ClusterAnalysis, error) {
	numeric := frame.NumericColumns()
	if len(numeric) < 2 {
		return nil, hopserr.NewInvalidArgumentError(fmt.Errorf(
			"the cluster analysis needs at least 2 numeric columns, the dataframe has %d", len(numeric)))
	}
	first, err := frame.Float64Column(numeric[0])
	if err != nil {
		return nil, err
	}
	second, err := frame.Float64Column(numeric[1])
	if err != nil {
		return nil, err
	}
	n := len(first)
	if len(second) < n {
		n = len(second)
	}
	if n == 0 {
		return &ClusterAnalysis{}, nil
	}

	points := make([][2]float64, n)
	for i := 0; i < n; i++ {
		points[i] = [2]float64{first[i], second[i]}
	}
	assignments := kmeans(points, clusterCount)

	analysis := &ClusterAnalysis{}
	for i, point := range points {
		name := fmt.Sprintf("%d", i)
		analysis.DataPoints = append(analysis.DataPoints, DataPoint{
			Name:            name,
			FirstDimension:  point[0],
			SecondDimension: point[1],
		})
		analysis.Clusters = append(analysis.Clusters, ClusterAssigment{
			DataPointName: name,
			Cluster:       assignments[i],
		})
	}
	return analysis, nil
}

// kmeans clusters 2-D points with Lloyd's algorithm. Centroids are
// seeded from the first k distinct points so the assignment is
// deterministic.
func kmeans(points [][2]float64, k int) []int {
	centroids := seedCentroids(points, k)
	k = len(centroids)
	assignments := make([]int, len(points))
	for iter := 0; iter < clusterMaxIterations; iter++ {
		changed := false
		for i, point := range points {
			best := 0
			bestDist := math.MaxFloat64
			for c, centroid := range centroids {
				dist := squaredDistance(point, centroid)
				if dist < bestDist {
					bestDist = dist
					best = c
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}
		sums := make([][2]float64, k)
		counts := make([]int, k)
		for i, point := range points {
			c := assignments[i]
			sums[c][0] += point[0]
			sums[c][1] += point[1]
			counts[c]++
		}
		for c := range centroids {
			if counts[c] > 0 {
				centroids[c] = [2]float64{sums[c][0] / float64(counts[c]), sums[c][1] / float64(counts[c])}
			}
		}
	}
	return assignments
}

func seedCentroids(points [][2]float64, k int) [][2]float64 {
	var centroids [][2]float64
	seen := map[[2]float64]bool{}
	for _, point := range points {
		if len(centroids) == k {
			break
		}
		if !seen[point] {
			seen[point] = true
			centroids = append(centroids, point)
		}
	}
	return centroids
}

func squaredDistance(a, b [2]float64) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	return dx*dx + dy*dy
}

// sortedMetricNames is used by tests to compare metric sets without
// depending on computation order.
func (fs FeatureStats) sortedMetricNames() []string {
	names := make([]string, len(fs.MetricValues))
	for i, metric := range fs.MetricValues {
		names[i] = metric.Name
	}
	sort.Strings(names)
	return names
}
