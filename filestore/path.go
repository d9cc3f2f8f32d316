// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

package filestore

import (
	"fmt"
	"strings"

	"github.com/logicalclocks/hops-go/config"
	"github.com/logicalclocks/hops-go/hopserr"
)

type Scheme string

const (
	SchemeHDFS  Scheme = "hdfs"
	SchemeS3    Scheme = "s3"
	SchemeFile  Scheme = "file"
	SchemeLocal Scheme = ""
)

// Path is a parsed dataset location. The metastore hands back full
// URLs like hdfs://namenode:8020/apps/hive/warehouse/...; plain paths
// are treated as store-relative keys.
type Path struct {
	Scheme    Scheme
	Authority string
	Key       string
}

// ParsePath splits a dataset location into scheme, authority and key.
func ParsePath(raw string) (Path, error) {
	if raw == "" {
		return Path{}, hopserr.NewInvalidArgumentError(fmt.Errorf("empty dataset path"))
	}
	idx := strings.Index(raw, "://")
	if idx < 0 {
		return Path{Scheme: SchemeLocal, Key: strings.TrimPrefix(raw, "/")}, nil
	}
	scheme := Scheme(strings.ToLower(raw[:idx]))
	rest := raw[idx+len("://"):]
	switch scheme {
	case SchemeHDFS, SchemeS3:
		authority, key, _ := strings.Cut(rest, "/")
		return Path{Scheme: scheme, Authority: authority, Key: key}, nil
	case SchemeFile:
		return Path{Scheme: scheme, Key: strings.TrimPrefix(rest, "/")}, nil
	}
	return Path{}, hopserr.NewInvalidArgumentError(fmt.Errorf("unsupported path scheme %q in %s", scheme, raw))
}

func (p Path) String() string {
	if p.Scheme == SchemeLocal {
		return p.Key
	}
	return fmt.Sprintf("%s://%s/%s", p.Scheme, p.Authority, p.Key)
}

// ProjectDatasetKey is the HopsFS key of a dataset inside a project,
// e.g. Projects/demo/Training Datasets/predictions_1.
func ProjectDatasetKey(project string, segments ...string) string {
	parts := append([]string{config.ProjectRootDir, project}, segments...)
	return strings.Join(parts, "/")
}
