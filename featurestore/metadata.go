// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

package featurestore

import (
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"

	"github.com/logicalclocks/hops-go/config"
	"github.com/logicalclocks/hops-go/hopserr"
)

// Feature is a single column of a featuregroup or training dataset as
// registered in the metastore.
type Feature struct {
	Name        string `json:"name" mapstructure:"name"`
	Type        string `json:"type" mapstructure:"type"`
	Description string `json:"description" mapstructure:"description"`
	Primary     bool   `json:"primary" mapstructure:"primary"`
	Partition   bool   `json:"partition" mapstructure:"partition"`
}

// Featuregroup is a versioned, Hive-backed group of features.
type Featuregroup struct {
	ID          int       `json:"id" mapstructure:"id"`
	Name        string    `json:"name" mapstructure:"name"`
	Version     int       `json:"version" mapstructure:"version"`
	Description string    `json:"description" mapstructure:"description"`
	Creator     string    `json:"creator" mapstructure:"creator"`
	Created     string    `json:"created" mapstructure:"created"`
	Features    []Feature `json:"features" mapstructure:"features"`
}

// TableName is the Hive table backing this featuregroup version.
func (fg *Featuregroup) TableName() string {
	return fmt.Sprintf("%s_%d", fg.Name, fg.Version)
}

func (fg *Featuregroup) HasFeature(name string) bool {
	for _, feature := range fg.Features {
		if feature.Name == name {
			return true
		}
	}
	return false
}

// TrainingDataset is a materialized, versioned dataset on HopsFS.
type TrainingDataset struct {
	ID          int       `json:"id" mapstructure:"id"`
	Name        string    `json:"name" mapstructure:"name"`
	Version     int       `json:"version" mapstructure:"version"`
	Description string    `json:"description" mapstructure:"description"`
	Creator     string    `json:"creator" mapstructure:"creator"`
	Created     string    `json:"created" mapstructure:"created"`
	DataFormat  string    `json:"dataFormat" mapstructure:"dataFormat"`
	Path        string    `json:"hdfsStorePath" mapstructure:"hdfsStorePath"`
	Features    []Feature `json:"features" mapstructure:"features"`
}

// Featurestore identifies one feature store, typically the project's
// own plus any shared with the project.
type Featurestore struct {
	ID          int    `json:"featurestoreId" mapstructure:"featurestoreId"`
	Name        string `json:"featurestoreName" mapstructure:"featurestoreName"`
	ProjectName string `json:"projectName" mapstructure:"projectName"`
	HiveDBName  string `json:"hiveDbName" mapstructure:"hiveDbName"`
}

// Metadata is the full metastore view of one feature store, fetched
// once per top-level operation.
type Metadata struct {
	Featurestore     Featurestore      `json:"featurestore" mapstructure:"featurestore"`
	Featuregroups    []Featuregroup    `json:"featuregroups" mapstructure:"featuregroups"`
	TrainingDatasets []TrainingDataset `json:"trainingDatasets" mapstructure:"trainingDatasets"`
}

// ParseMetadata decodes the raw JSON envelope of the metadata endpoint.
// The envelope is decoded weakly since the backend renders numeric ids
// inconsistently across versions.
func ParseMetadata(raw map[string]interface{}) (*Metadata, error) {
	var meta Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &meta,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, hopserr.NewInternalError(err)
	}
	if err := decoder.Decode(raw); err != nil {
		invalid := hopserr.NewInvalidArgumentError(err)
		invalid.SetMessage("could not parse the feature store metadata")
		return nil, invalid
	}
	return &meta, nil
}

// FindFeaturegroup returns the featuregroup with the given name and
// version. Version 0 selects version 1, the version the platform
// assigns when none is given at creation.
func (m *Metadata) FindFeaturegroup(name string, version int) (*Featuregroup, error) {
	if version == 0 {
		version = config.DefaultFeaturegroupVersion
	}
	for i := range m.Featuregroups {
		if m.Featuregroups[i].Name == name && m.Featuregroups[i].Version == version {
			return &m.Featuregroups[i], nil
		}
	}
	return nil, hopserr.NewFeaturegroupNotFoundError(name, version)
}

// FindFeaturegroupByTable resolves a Hive table name like
// teams_features_1 back to its featuregroup.
func (m *Metadata) FindFeaturegroupByTable(table string) (*Featuregroup, error) {
	for i := range m.Featuregroups {
		if m.Featuregroups[i].TableName() == table {
			return &m.Featuregroups[i], nil
		}
	}
	return nil, hopserr.NewFeaturegroupNotFoundError(table, 0)
}

// LatestFeaturegroupVersion is the highest registered version of the
// named featuregroup, 0 when unknown.
func (m *Metadata) LatestFeaturegroupVersion(name string) int {
	latest := 0
	for i := range m.Featuregroups {
		if m.Featuregroups[i].Name == name && m.Featuregroups[i].Version > latest {
			latest = m.Featuregroups[i].Version
		}
	}
	return latest
}

// ContainsFeaturegroup reports whether a featuregroup with the exact
// name and version is registered.
func (m *Metadata) ContainsFeaturegroup(name string, version int) bool {
	for i := range m.Featuregroups {
		if m.Featuregroups[i].Name == name && m.Featuregroups[i].Version == version {
			return true
		}
	}
	return false
}

// FeaturegroupsContaining lists every featuregroup that has a feature
// with the given name, sorted by table name for deterministic plans.
func (m *Metadata) FeaturegroupsContaining(feature string) []*Featuregroup {
	var matches []*Featuregroup
	for i := range m.Featuregroups {
		if m.Featuregroups[i].HasFeature(feature) {
			matches = append(matches, &m.Featuregroups[i])
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].TableName() < matches[j].TableName()
	})
	return matches
}

// FindTrainingDataset returns the training dataset with the given name
// and version. Version 0 selects version 1, matching FindFeaturegroup.
func (m *Metadata) FindTrainingDataset(name string, version int) (*TrainingDataset, error) {
	if version == 0 {
		version = config.DefaultTrainingDatasetVersion
	}
	for i := range m.TrainingDatasets {
		if m.TrainingDatasets[i].Name == name && m.TrainingDatasets[i].Version == version {
			return &m.TrainingDatasets[i], nil
		}
	}
	return nil, hopserr.NewTrainingDatasetNotFoundError(name, version)
}

func (m *Metadata) LatestTrainingDatasetVersion(name string) int {
	latest := 0
	for i := range m.TrainingDatasets {
		if m.TrainingDatasets[i].Name == name && m.TrainingDatasets[i].Version > latest {
			latest = m.TrainingDatasets[i].Version
		}
	}
	return latest
}

// AllFeatureNames lists every feature name registered in the store,
// deduplicated and sorted, used for not-found error messages.
func (m *Metadata) AllFeatureNames() []string {
	seen := map[string]bool{}
	var names []string
	for i := range m.Featuregroups {
		for _, feature := range m.Featuregroups[i].Features {
			if !seen[feature.Name] {
				seen[feature.Name] = true
				names = append(names, feature.Name)
			}
		}
	}
	sort.Strings(names)
	return names
}
