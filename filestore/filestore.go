// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

// Package filestore abstracts over the filesystems training datasets
// are materialized to: HopsFS via its HDFS protocol, S3 for external
// buckets and the local filesystem for development.
package filestore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsv2cfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/colinmarc/hdfs/v2"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"

	"github.com/logicalclocks/hops-go/hopserr"
)

// FileStore reads and writes dataset files by key.
type FileStore interface {
	Write(ctx context.Context, key string, data []byte) error
	Read(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// List returns the keys under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// blobStore adapts a gocloud bucket to the FileStore interface. The
// local and S3 stores share it.
type blobStore struct {
	bucket *blob.Bucket
}

func (s *blobStore) Write(ctx context.Context, key string, data []byte) error {
	if err := s.bucket.WriteAll(ctx, key, data, nil); err != nil {
		return hopserr.NewConnectionError(key, err)
	}
	return nil
}

func (s *blobStore) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, hopserr.NewDatasetNotFoundError(key, err)
		}
		return nil, hopserr.NewConnectionError(key, err)
	}
	return data, nil
}

func (s *blobStore) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := s.bucket.Exists(ctx, key)
	if err != nil {
		return false, hopserr.NewConnectionError(key, err)
	}
	return exists, nil
}

func (s *blobStore) Delete(ctx context.Context, key string) error {
	if err := s.bucket.Delete(ctx, key); err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return hopserr.NewDatasetNotFoundError(key, err)
		}
		return hopserr.NewConnectionError(key, err)
	}
	return nil
}

func (s *blobStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			return keys, nil
		}
		if err != nil {
			return nil, hopserr.NewConnectionError(prefix, err)
		}
		if !obj.IsDir {
			keys = append(keys, obj.Key)
		}
	}
}

func (s *blobStore) Close() error {
	return s.bucket.Close()
}

// NewLocal opens a file store rooted at a local directory, creating it
// when missing.
func NewLocal(dir string) (FileStore, error) {
	bucket, err := fileblob.OpenBucket(dir, &fileblob.Options{CreateDir: true})
	if err != nil {
		return nil, hopserr.NewConnectionError(dir, err)
	}
	return &blobStore{bucket: bucket}, nil
}

// S3Config carries the credentials and location of an external bucket.
type S3Config struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// NewS3 opens a file store over an S3 bucket with static credentials.
func NewS3(ctx context.Context, cfg S3Config) (FileStore, error) {
	awsCfg, err := awsv2cfg.LoadDefaultConfig(ctx,
		awsv2cfg.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID:     cfg.AccessKey,
				SecretAccessKey: cfg.SecretKey,
			},
		}))
	if err != nil {
		return nil, hopserr.NewConnectionError(cfg.Bucket, err)
	}
	awsCfg.Region = cfg.Region
	client := s3v2.NewFromConfig(awsCfg)
	bucket, err := s3blob.OpenBucketV2(ctx, client, cfg.Bucket, nil)
	if err != nil {
		return nil, hopserr.NewConnectionError(cfg.Bucket, err)
	}
	return &blobStore{bucket: bucket}, nil
}

// HDFSStore talks directly to HopsFS namenodes.
type HDFSStore struct {
	client *hdfs.Client
}

// NewHDFS connects to the namenode at address, e.g. namenode:8020.
func NewHDFS(address, user string) (*HDFSStore, error) {
	client, err := hdfs.NewClient(hdfs.ClientOptions{
		Addresses: []string{address},
		User:      user,
	})
	if err != nil {
		return nil, hopserr.NewConnectionError(address, err)
	}
	return &HDFSStore{client: client}, nil
}

func absoluteKey(key string) string {
	if strings.HasPrefix(key, "/") {
		return key
	}
	return "/" + key
}

func (s *HDFSStore) Write(ctx context.Context, key string, data []byte) error {
	path := absoluteKey(key)
	if idx := strings.LastIndex(path, "/"); idx > 0 {
		if err := s.client.MkdirAll(path[:idx], 0o755); err != nil {
			return hopserr.NewConnectionError(path, err)
		}
	}
	// hdfs create fails on existing files, so replace explicitly
	if _, err := s.client.Stat(path); err == nil {
		if err := s.client.Remove(path); err != nil {
			return hopserr.NewConnectionError(path, err)
		}
	}
	file, err := s.client.Create(path)
	if err != nil {
		return hopserr.NewConnectionError(path, err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return hopserr.NewConnectionError(path, err)
	}
	if err := file.Close(); err != nil {
		return hopserr.NewConnectionError(path, err)
	}
	return nil
}

func (s *HDFSStore) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.ReadFile(absoluteKey(key))
	if err != nil {
		return nil, hopserr.NewDatasetNotFoundError(key, err)
	}
	return data, nil
}

func (s *HDFSStore) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := s.client.Stat(absoluteKey(key)); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *HDFSStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Remove(absoluteKey(key)); err != nil {
		return hopserr.NewDatasetNotFoundError(key, err)
	}
	return nil
}

func (s *HDFSStore) List(ctx context.Context, prefix string) ([]string, error) {
	dir := absoluteKey(prefix)
	infos, err := s.client.ReadDir(dir)
	if err != nil {
		return nil, hopserr.NewDatasetNotFoundError(prefix, err)
	}
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		if !info.IsDir() {
			keys = append(keys, fmt.Sprintf("%s/%s", strings.TrimSuffix(dir, "/"), info.Name()))
		}
	}
	return keys, nil
}

func (s *HDFSStore) Close() error {
	return s.client.Close()
}
