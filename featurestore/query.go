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
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/logicalclocks/hops-go/hopserr"
)

// FeatureQuery describes a set of features to fetch from the store.
// Feature names may be qualified as featuregroup.feature to break
// ambiguity. When Featuregroups is set, resolution is restricted to
// those groups; otherwise every group in the store is a candidate.
type FeatureQuery struct {
	Features      []string
	Featuregroups map[string]int
	JoinKey       string
}

// Plan is a resolved query: the SQL statement to run against the
// store's database plus the featuregroups it spans.
type Plan struct {
	SQL           string
	Featuregroups []*Featuregroup
}

// PlanQuery resolves the requested features against the metadata and
// builds the join statement. Featuregroups are joined on a single
// column shared by all of them, inferred when no JoinKey is given.
func PlanQuery(meta *Metadata, query FeatureQuery) (*Plan, error) {
	if len(query.Features) == 0 {
		return nil, hopserr.NewInvalidArgumentError(fmt.Errorf("no features requested"))
	}

	candidates, err := candidateFeaturegroups(meta, query)
	if err != nil {
		return nil, err
	}

	selected := map[string]*Featuregroup{}
	columns := make([]string, 0, len(query.Features))
	for _, feature := range query.Features {
		column, fg, err := resolveFeature(meta, candidates, feature)
		if err != nil {
			return nil, err
		}
		columns = append(columns, column)
		selected[fg.TableName()] = fg
	}

	featuregroups := make([]*Featuregroup, 0, len(selected))
	for _, fg := range selected {
		featuregroups = append(featuregroups, fg)
	}
	sort.Slice(featuregroups, func(i, j int) bool {
		return featuregroups[i].TableName() < featuregroups[j].TableName()
	})

	stmt, err := joinStatement(columns, featuregroups, query.JoinKey)
	if err != nil {
		return nil, err
	}
	return &Plan{SQL: stmt, Featuregroups: featuregroups}, nil
}

// candidateFeaturegroups narrows resolution to the groups named in the
// query, or all registered groups when the query names none.
func candidateFeaturegroups(meta *Metadata, query FeatureQuery) ([]*Featuregroup, error) {
	if len(query.Featuregroups) == 0 {
		all := make([]*Featuregroup, 0, len(meta.Featuregroups))
		for i := range meta.Featuregroups {
			all = append(all, &meta.Featuregroups[i])
		}
		return all, nil
	}
	candidates := make([]*Featuregroup, 0, len(query.Featuregroups))
	for name, version := range query.Featuregroups {
		fg, err := meta.FindFeaturegroup(name, version)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, fg)
	}
	return candidates, nil
}

// resolveFeature maps one requested feature to the column expression
// and the featuregroup providing it. A feature found in more than one
// candidate group must be qualified by the caller.
func resolveFeature(meta *Metadata, candidates []*Featuregroup, feature string) (string, *Featuregroup, error) {
	if table, name, ok := splitQualified(feature); ok {
		fg, err := meta.FindFeaturegroupByTable(table)
		if err != nil {
			return "", nil, err
		}
		if !fg.HasFeature(name) {
			return "", nil, hopserr.NewFeatureNotFoundError(feature, fg.featureNames())
		}
		return fmt.Sprintf("%s.%s", fg.TableName(), name), fg, nil
	}

	var matches []*Featuregroup
	for _, fg := range candidates {
		if fg.HasFeature(feature) {
			matches = append(matches, fg)
		}
	}
	switch len(matches) {
	case 0:
		return "", nil, hopserr.NewFeatureNotFoundError(feature, meta.AllFeatureNames())
	case 1:
		return feature, matches[0], nil
	}
	tables := make([]string, len(matches))
	for i, fg := range matches {
		tables[i] = fg.TableName()
	}
	sort.Strings(tables)
	return "", nil, hopserr.NewAmbiguousFeatureError(feature, tables)
}

// splitQualified splits featuregroup_1.feature into its table and
// feature halves.
func splitQualified(feature string) (table, name string, ok bool) {
	idx := strings.LastIndex(feature, ".")
	if idx <= 0 || idx == len(feature)-1 {
		return "", "", false
	}
	return feature[:idx], feature[idx+1:], true
}

// joinStatement renders the SELECT over the sorted featuregroups. The
// first group anchors the FROM clause and every other group is joined
// to it on the shared join column.
func joinStatement(columns []string, featuregroups []*Featuregroup, joinKey string) (string, error) {
	selectList := strings.Join(columns, ", ")
	if len(featuregroups) == 1 {
		return fmt.Sprintf("SELECT %s FROM %s", selectList, featuregroups[0].TableName()), nil
	}

	if joinKey == "" {
		inferred, err := InferJoinKey(featuregroups)
		if err != nil {
			return "", err
		}
		joinKey = inferred
	}

	anchor := featuregroups[0].TableName()
	joins := make([]string, 0, len(featuregroups)-1)
	conditions := make([]string, 0, len(featuregroups)-1)
	for _, fg := range featuregroups[1:] {
		joins = append(joins, fmt.Sprintf("JOIN %s", fg.TableName()))
		conditions = append(conditions, fmt.Sprintf("%s.`%s`=%s.`%s`", anchor, joinKey, fg.TableName(), joinKey))
	}
	return fmt.Sprintf("SELECT %s FROM %s %s ON %s",
		selectList, anchor, strings.Join(joins, " "), strings.Join(conditions, " AND ")), nil
}

// InferJoinKey picks the column every featuregroup shares, preferring
// the one marked primary in the most groups.
func InferJoinKey(featuregroups []*Featuregroup) (string, error) {
	if len(featuregroups) == 0 {
		return "", hopserr.NewInvalidArgumentError(fmt.Errorf("no featuregroups to join"))
	}
	common := mapset.NewSet(featuregroups[0].featureNames()...)
	for _, fg := range featuregroups[1:] {
		common = common.Intersect(mapset.NewSet(fg.featureNames()...))
	}
	if common.Cardinality() == 0 {
		tables := make([]string, len(featuregroups))
		for i, fg := range featuregroups {
			tables[i] = fg.TableName()
		}
		return "", hopserr.NewInvalidArgumentError(fmt.Errorf(
			"could not find any common column to join the featuregroups %s on, pass an explicit join key",
			strings.Join(tables, ", ")))
	}

	primaryCount := map[string]int{}
	for _, fg := range featuregroups {
		for _, feature := range fg.Features {
			if feature.Primary && common.Contains(feature.Name) {
				primaryCount[feature.Name]++
			}
		}
	}

	shared := common.ToSlice()
	sort.Strings(shared)
	best := shared[0]
	for _, name := range shared {
		if primaryCount[name] > primaryCount[best] {
			best = name
		}
	}
	return best, nil
}

func (fg *Featuregroup) featureNames() []string {
	names := make([]string, len(fg.Features))
	for i, feature := range fg.Features {
		names[i] = feature.Name
	}
	return names
}
