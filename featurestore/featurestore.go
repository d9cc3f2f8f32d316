// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

// Package featurestore is the feature store client: metadata lookups,
// the feature query planner, featuregroup management and training
// dataset materialization.
package featurestore

import (
	"context"
	"fmt"
	"strings"

	"github.com/logicalclocks/hops-go/config"
	"github.com/logicalclocks/hops-go/dataframe"
	"github.com/logicalclocks/hops-go/dataset"
	"github.com/logicalclocks/hops-go/filestore"
	"github.com/logicalclocks/hops-go/hopserr"
	"github.com/logicalclocks/hops-go/logging"
	"github.com/logicalclocks/hops-go/rest"
)

type Client struct {
	rest   *rest.Client
	runner SQLRunner
	store  filestore.FileStore
	logger logging.Logger
}

type Option func(*Client)

// WithRunner sets the SQL runner queries are executed on.
func WithRunner(runner SQLRunner) Option {
	return func(c *Client) { c.runner = runner }
}

// WithFileStore sets the file store training datasets are written to.
func WithFileStore(store filestore.FileStore) Option {
	return func(c *Client) { c.store = store }
}

func WithLogger(logger logging.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func NewClient(rc *rest.Client, opts ...Option) *Client {
	client := &Client{
		rest:   rc,
		logger: logging.NewLogger("featurestore").WithProject(rc.ProjectName()),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// ProjectFeaturestore is the name of the project's own feature store.
func (c *Client) ProjectFeaturestore() string {
	return strings.ToLower(c.rest.ProjectName()) + "_featurestore"
}

// Featurestores lists the feature stores accessible to the project,
// the project's own plus any shared with it.
func (c *Client) Featurestores(ctx context.Context) ([]Featurestore, error) {
	var stores []Featurestore
	path := c.rest.ProjectPath(config.FeaturestoresResource)
	if err := c.rest.Get(ctx, path, &stores); err != nil {
		return nil, err
	}
	return stores, nil
}

// Metadata fetches the full metadata of one feature store. An empty
// name selects the project's own store.
func (c *Client) Metadata(ctx context.Context, featurestore string) (*Metadata, error) {
	if featurestore == "" {
		featurestore = c.ProjectFeaturestore()
	}
	raw := map[string]interface{}{}
	path := c.rest.ProjectPath(config.FeaturestoresResource, featurestore, config.MetadataResource)
	if err := c.rest.Get(ctx, path, &raw); err != nil {
		return nil, err
	}
	return ParseMetadata(raw)
}

// SQL runs a raw query against the feature store database.
func (c *Client) SQL(ctx context.Context, featurestore, query string) (*dataframe.Frame, error) {
	runner, err := c.requireRunner()
	if err != nil {
		return nil, err
	}
	if featurestore == "" {
		featurestore = c.ProjectFeaturestore()
	}
	return runner.Run(ctx, featurestore, query)
}

// GetFeaturegroup reads the full contents of a featuregroup version.
func (c *Client) GetFeaturegroup(ctx context.Context, featurestore, name string, version int) (*dataframe.Frame, error) {
	meta, err := c.Metadata(ctx, featurestore)
	if err != nil {
		return nil, err
	}
	fg, err := meta.FindFeaturegroup(name, version)
	if err != nil {
		return nil, err
	}
	return c.SQL(ctx, featurestore, fmt.Sprintf("SELECT * FROM %s", fg.TableName()))
}

// GetFeature fetches a single feature, resolving the featuregroup it
// lives in from the metadata.
func (c *Client) GetFeature(ctx context.Context, featurestore, feature string) (*dataframe.Frame, error) {
	return c.GetFeatures(ctx, featurestore, FeatureQuery{Features: []string{feature}})
}

// GetFeatures plans and runs a query over one or more featuregroups.
func (c *Client) GetFeatures(ctx context.Context, featurestore string, query FeatureQuery) (*dataframe.Frame, error) {
	meta, err := c.Metadata(ctx, featurestore)
	if err != nil {
		return nil, err
	}
	plan, err := PlanQuery(meta, query)
	if err != nil {
		return nil, err
	}
	c.logger.Infow("Planned feature query", "sql", plan.SQL)
	return c.SQL(ctx, featurestore, plan.SQL)
}

// FeaturegroupSpec describes a featuregroup to create from a frame.
type FeaturegroupSpec struct {
	Name        string
	Version     int
	Description string
	// PrimaryKey defaults to the first column of the frame.
	PrimaryKey   string
	PartitionBy  []string
	Descriptions map[string]string
	Statistics   StatisticsOptions
}

type featuregroupDTO struct {
	Name             string      `json:"name"`
	Version          int         `json:"version"`
	Description      string      `json:"description"`
	Features         []Feature   `json:"features"`
	FeaturestoreName string      `json:"featurestoreName"`
	Statistics       *Statistics `json:"statistics,omitempty"`
}

// CreateFeaturegroup registers the featuregroup in the metastore,
// creates its backing table and inserts the frame.
func (c *Client) CreateFeaturegroup(ctx context.Context, featurestore string, spec FeaturegroupSpec, frame *dataframe.Frame) error {
	if spec.Name == "" {
		return hopserr.NewInvalidArgumentError(fmt.Errorf("the featuregroup name is required"))
	}
	if spec.Version == 0 {
		spec.Version = 1
	}
	if featurestore == "" {
		featurestore = c.ProjectFeaturestore()
	}
	features, err := FeaturesFromFrame(frame, spec.PrimaryKey, spec.PartitionBy, spec.Descriptions)
	if err != nil {
		return err
	}
	statistics, err := ComputeStatistics(frame, spec.Statistics)
	if err != nil {
		return err
	}

	dto := featuregroupDTO{
		Name:             spec.Name,
		Version:          spec.Version,
		Description:      spec.Description,
		Features:         features,
		FeaturestoreName: featurestore,
		Statistics:       statistics,
	}
	path := c.rest.ProjectPath(config.FeaturestoresResource, featurestore, config.FeaturegroupsResource)
	if err := c.rest.Post(ctx, path, dto, nil); err != nil {
		return err
	}

	runner, err := c.requireRunner()
	if err != nil {
		return err
	}
	fg := Featuregroup{Name: spec.Name, Version: spec.Version}
	if err := runner.Exec(ctx, featurestore, CreateTableStatement(fg.TableName(), features)); err != nil {
		return err
	}
	return c.insertFrame(ctx, featurestore, fg.TableName(), frame)
}

// InsertMode selects between appending to and replacing the contents
// of a featuregroup.
type InsertMode string

const (
	Append    InsertMode = "append"
	Overwrite InsertMode = "overwrite"
)

// InsertIntoFeaturegroup writes the frame into an existing
// featuregroup. Overwrite clears the previous contents first: the
// metastore is told to drop its statistics, and the backing table is
// rebuilt from the registered schema before the insert.
func (c *Client) InsertIntoFeaturegroup(ctx context.Context, featurestore, name string, version int, frame *dataframe.Frame, mode InsertMode) error {
	if mode != Append && mode != Overwrite {
		return hopserr.NewInvalidArgumentError(fmt.Errorf(
			"the write mode %s is not supported, use %s or %s", mode, Append, Overwrite))
	}
	if featurestore == "" {
		featurestore = c.ProjectFeaturestore()
	}
	meta, err := c.Metadata(ctx, featurestore)
	if err != nil {
		return err
	}
	fg, err := meta.FindFeaturegroup(name, version)
	if err != nil {
		return err
	}

	if mode == Overwrite {
		path := c.rest.ProjectPath(config.FeaturestoresResource, featurestore,
			config.FeaturegroupsResource, fmt.Sprintf("%d", fg.ID), config.FeaturegroupClearResource)
		if err := c.rest.Post(ctx, path, nil, nil); err != nil {
			return err
		}
		runner, err := c.requireRunner()
		if err != nil {
			return err
		}
		if err := runner.Exec(ctx, featurestore, DropTableStatement(fg.TableName())); err != nil {
			return err
		}
		if err := runner.Exec(ctx, featurestore, CreateTableStatement(fg.TableName(), fg.Features)); err != nil {
			return err
		}
	}
	return c.insertFrame(ctx, featurestore, fg.TableName(), frame)
}

func (c *Client) insertFrame(ctx context.Context, featurestore, table string, frame *dataframe.Frame) error {
	runner, err := c.requireRunner()
	if err != nil {
		return err
	}
	stmt, err := InsertStatement(table, frame)
	if err != nil {
		return err
	}
	return runner.Exec(ctx, featurestore, stmt)
}

// UpdateFeaturegroupStats recomputes the selected statistics from the
// featuregroup's current contents and pushes them to the metastore.
func (c *Client) UpdateFeaturegroupStats(ctx context.Context, featurestore, name string, version int, opts StatisticsOptions) error {
	if featurestore == "" {
		featurestore = c.ProjectFeaturestore()
	}
	meta, err := c.Metadata(ctx, featurestore)
	if err != nil {
		return err
	}
	fg, err := meta.FindFeaturegroup(name, version)
	if err != nil {
		return err
	}
	frame, err := c.SQL(ctx, featurestore, fmt.Sprintf("SELECT * FROM %s", fg.TableName()))
	if err != nil {
		return err
	}
	statistics, err := ComputeStatistics(frame, opts)
	if err != nil {
		return err
	}
	path := c.rest.ProjectPath(config.FeaturestoresResource, featurestore,
		config.FeaturegroupsResource, fmt.Sprintf("%d", fg.ID), config.UpdateStatsResource)
	return c.rest.Put(ctx, path, statistics, nil)
}

// UpdateTrainingDatasetStats recomputes the selected statistics from
// the materialized dataset and pushes them to the metastore.
func (c *Client) UpdateTrainingDatasetStats(ctx context.Context, featurestore, name string, version int, opts StatisticsOptions) error {
	if featurestore == "" {
		featurestore = c.ProjectFeaturestore()
	}
	meta, err := c.Metadata(ctx, featurestore)
	if err != nil {
		return err
	}
	td, err := meta.FindTrainingDataset(name, version)
	if err != nil {
		return err
	}
	frame, err := c.GetTrainingDataset(ctx, featurestore, td.Name, td.Version)
	if err != nil {
		return err
	}
	statistics, err := ComputeStatistics(frame, opts)
	if err != nil {
		return err
	}
	path := c.rest.ProjectPath(config.FeaturestoresResource, featurestore,
		config.TrainingDatasetsResource, fmt.Sprintf("%d", td.ID), config.UpdateStatsResource)
	return c.rest.Put(ctx, path, statistics, nil)
}

// TrainingDatasetSpec describes a training dataset to materialize.
type TrainingDatasetSpec struct {
	Name        string
	Version     int
	Description string
	Format      dataset.Format
	Overwrite   bool
	Statistics  StatisticsOptions
}

type trainingDatasetDTO struct {
	Name             string      `json:"name"`
	Version          int         `json:"version"`
	Description      string      `json:"description"`
	DataFormat       string      `json:"dataFormat"`
	Features         []Feature   `json:"features"`
	FeaturestoreName string      `json:"featurestoreName"`
	Statistics       *Statistics `json:"statistics,omitempty"`
}

// CreateTrainingDataset materializes the frame to the file store and
// registers the dataset in the metastore.
func (c *Client) CreateTrainingDataset(ctx context.Context, featurestore string, spec TrainingDatasetSpec, frame *dataframe.Frame) error {
	if spec.Name == "" {
		return hopserr.NewInvalidArgumentError(fmt.Errorf("the training dataset name is required"))
	}
	if spec.Version == 0 {
		spec.Version = 1
	}
	if spec.Format == "" {
		spec.Format = dataset.CSV
	}
	if featurestore == "" {
		featurestore = c.ProjectFeaturestore()
	}
	store, err := c.requireFileStore()
	if err != nil {
		return err
	}

	features, err := FeaturesFromFrame(frame, "", nil, nil)
	if err != nil {
		return err
	}
	statistics, err := ComputeStatistics(frame, spec.Statistics)
	if err != nil {
		return err
	}

	path := trainingDatasetPath(spec.Name, spec.Version)
	if err := dataset.Write(ctx, store, path, spec.Format, frame, spec.Overwrite); err != nil {
		return err
	}

	dto := trainingDatasetDTO{
		Name:             spec.Name,
		Version:          spec.Version,
		Description:      spec.Description,
		DataFormat:       string(spec.Format),
		Features:         features,
		FeaturestoreName: featurestore,
		Statistics:       statistics,
	}
	restPath := c.rest.ProjectPath(config.FeaturestoresResource, featurestore, config.TrainingDatasetsResource)
	return c.rest.Post(ctx, restPath, dto, nil)
}

// InsertIntoTrainingDataset rewrites an existing training dataset with
// the frame, keeping its registered format.
func (c *Client) InsertIntoTrainingDataset(ctx context.Context, featurestore, name string, version int, frame *dataframe.Frame) error {
	if featurestore == "" {
		featurestore = c.ProjectFeaturestore()
	}
	meta, err := c.Metadata(ctx, featurestore)
	if err != nil {
		return err
	}
	td, err := meta.FindTrainingDataset(name, version)
	if err != nil {
		return err
	}
	store, err := c.requireFileStore()
	if err != nil {
		return err
	}
	format, err := dataset.ParseFormat(td.DataFormat)
	if err != nil {
		return err
	}
	return dataset.Write(ctx, store, datasetKey(td), format, frame, true)
}

// GetTrainingDataset loads a materialized training dataset into a
// frame.
func (c *Client) GetTrainingDataset(ctx context.Context, featurestore, name string, version int) (*dataframe.Frame, error) {
	if featurestore == "" {
		featurestore = c.ProjectFeaturestore()
	}
	meta, err := c.Metadata(ctx, featurestore)
	if err != nil {
		return nil, err
	}
	td, err := meta.FindTrainingDataset(name, version)
	if err != nil {
		return nil, err
	}
	store, err := c.requireFileStore()
	if err != nil {
		return nil, err
	}
	format, err := dataset.ParseFormat(td.DataFormat)
	if err != nil {
		return nil, err
	}
	return dataset.Read(ctx, store, datasetKey(td), format)
}

// GetTrainingDatasetPath returns the registered storage path of a
// training dataset.
func (c *Client) GetTrainingDatasetPath(ctx context.Context, featurestore, name string, version int) (string, error) {
	if featurestore == "" {
		featurestore = c.ProjectFeaturestore()
	}
	meta, err := c.Metadata(ctx, featurestore)
	if err != nil {
		return "", err
	}
	td, err := meta.FindTrainingDataset(name, version)
	if err != nil {
		return "", err
	}
	if td.Path != "" {
		return td.Path, nil
	}
	return trainingDatasetPath(td.Name, td.Version), nil
}

func trainingDatasetPath(name string, version int) string {
	return fmt.Sprintf("%s/%s_%d", config.TrainingDatasetsDir, name, version)
}

// datasetKey resolves a registered dataset to a file store key. The
// metastore reports full hdfs:// URLs; those reduce to their key
// inside the store, everything else falls back to the conventional
// project layout.
func datasetKey(td *TrainingDataset) string {
	if td.Path != "" {
		if parsed, err := filestore.ParsePath(td.Path); err == nil && parsed.Key != "" {
			return parsed.Key
		}
	}
	return trainingDatasetPath(td.Name, td.Version)
}

func (c *Client) requireRunner() (SQLRunner, error) {
	if c.runner == nil {
		return nil, hopserr.NewInvalidArgumentError(fmt.Errorf(
			"no SQL runner configured, connect one with WithRunner or set %s", config.OnlineDSNEnv))
	}
	return c.runner, nil
}

func (c *Client) requireFileStore() (filestore.FileStore, error) {
	if c.store == nil {
		return nil, hopserr.NewInvalidArgumentError(fmt.Errorf(
			"no file store configured, connect one with WithFileStore"))
	}
	return c.store, nil
}
