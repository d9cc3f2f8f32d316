// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

// Package serving manages model serving instances: creation, lifecycle
// and inference requests against the project's serving resource.
package serving

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/logicalclocks/hops-go/config"
	"github.com/logicalclocks/hops-go/hopserr"
	"github.com/logicalclocks/hops-go/kafka"
	"github.com/logicalclocks/hops-go/logging"
	"github.com/logicalclocks/hops-go/rest"
)

// Serving is a model being served in the project.
type Serving struct {
	ID                 int             `json:"id"`
	Name               string          `json:"name"`
	ArtifactPath       string          `json:"artifactPath"`
	ModelVersion       int             `json:"modelVersion"`
	ModelServer        string          `json:"modelServer"`
	ServingTool        string          `json:"servingTool"`
	Status             string          `json:"status"`
	Creator            string          `json:"creator"`
	Created            string          `json:"created"`
	RequestedInstances int             `json:"requestedInstances"`
	BatchingEnabled    bool            `json:"batchingEnabled,omitempty"`
	KafkaTopic         *kafka.TopicDTO `json:"kafkaTopicDTO,omitempty"`
}

// Spec is the user intent for CreateOrUpdate. Zero values are filled
// with the platform defaults by Defaults.
type Spec struct {
	Name         string
	ArtifactPath string
	ModelVersion int
	// ModelServer is inferred from the artifact when empty: python
	// scripts are served by Flask, everything else by TensorFlow
	// Serving.
	ModelServer     string
	KFServing       bool
	BatchingEnabled bool
	// TopicName is the inference log topic: CREATE provisions a new
	// topic, NONE disables logging, anything else reuses a topic.
	TopicName  string
	Partitions int
	Replicas   int
	Instances  int
}

var servingNamePattern = regexp.MustCompile("^[a-zA-Z0-9]+$")

func (s *Spec) Defaults() {
	if s.ModelVersion == 0 {
		s.ModelVersion = 1
	}
	if s.ModelServer == "" {
		if strings.HasSuffix(s.ArtifactPath, ".py") {
			s.ModelServer = config.ModelServerFlask
		} else {
			s.ModelServer = config.ModelServerTensorflow
		}
	}
	if s.TopicName == "" {
		s.TopicName = "CREATE"
	}
	if s.Partitions == 0 {
		s.Partitions = config.DefaultTopicPartitions
	}
	if s.Replicas == 0 {
		s.Replicas = config.DefaultTopicReplicas
	}
	if s.Instances == 0 {
		s.Instances = config.DefaultServingInstances
	}
}

// Validate applies the client-side checks before the request leaves
// the process; the backend validates again.
func (s *Spec) Validate() error {
	if s.Name == "" || len(s.Name) > 256 || !servingNamePattern.MatchString(s.Name) {
		return hopserr.NewInvalidArgumentError(fmt.Errorf(
			"the serving name cannot be empty, cannot exceed 256 characters and must match ^[a-zA-Z0-9]+$, got: %s", s.Name))
	}
	if s.ArtifactPath == "" {
		return hopserr.NewInvalidArgumentError(errors.New("the artifact path cannot be empty"))
	}
	valid := false
	for _, server := range config.ModelServers {
		if s.ModelServer == server {
			valid = true
		}
	}
	if !valid {
		return hopserr.NewInvalidArgumentError(fmt.Errorf(
			"the model server %s is not supported, supported model servers: %s",
			s.ModelServer, strings.Join(config.ModelServers, ",")))
	}
	if s.KFServing && s.ModelServer == config.ModelServerFlask {
		return hopserr.NewInvalidArgumentError(errors.New("Flask is not supported for KFServing deployments"))
	}
	if s.KFServing && s.BatchingEnabled {
		return hopserr.NewInvalidArgumentError(errors.New("request batching is not supported in KFServing deployments"))
	}
	if s.Instances < 1 {
		return hopserr.NewInvalidArgumentError(fmt.Errorf("the number of serving instances must be positive, got: %d", s.Instances))
	}
	return nil
}

// Client talks to the project serving resource.
type Client struct {
	rest   *rest.Client
	logger logging.Logger
}

func NewClient(rc *rest.Client) *Client {
	return &Client{
		rest:   rc,
		logger: logging.NewLogger("serving").WithProject(rc.ProjectName()),
	}
}

// List returns all servings in the project.
func (c *Client) List(ctx context.Context) ([]Serving, error) {
	var servings []Serving
	if err := c.rest.Get(ctx, c.rest.ProjectPath(config.ServingResource), &servings); err != nil {
		return nil, err
	}
	return servings, nil
}

// Get finds a serving by name. The serving resource has no by-name
// endpoint, so this is a linear search over the project list.
func (c *Client) Get(ctx context.Context, name string) (*Serving, error) {
	servings, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(servings))
	for i := range servings {
		if servings[i].Name == name {
			return &servings[i], nil
		}
		names = append(names, servings[i].Name)
	}
	return nil, hopserr.NewServingNotFoundError(name, names)
}

func (c *Client) Exists(ctx context.Context, name string) (bool, error) {
	_, err := c.Get(ctx, name)
	if err != nil {
		if hopserr.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *Client) Delete(ctx context.Context, name string) error {
	serving, err := c.Get(ctx, name)
	if err != nil {
		return err
	}
	c.logger.Infow("deleting serving", "name", name, "id", serving.ID)
	return c.rest.Delete(ctx, c.rest.ProjectPath(config.ServingResource, strconv.Itoa(serving.ID)))
}

func (c *Client) Start(ctx context.Context, name string) error {
	return c.startOrStop(ctx, name, config.ServingActionStart)
}

func (c *Client) Stop(ctx context.Context, name string) error {
	return c.startOrStop(ctx, name, config.ServingActionStop)
}

func (c *Client) startOrStop(ctx context.Context, name, action string) error {
	serving, err := c.Get(ctx, name)
	if err != nil {
		return err
	}
	c.logger.Infow("changing serving state", "name", name, "action", action)
	path := c.rest.ProjectPath(config.ServingResource, strconv.Itoa(serving.ID)) + "?action=" + action
	return c.rest.Post(ctx, path, nil, nil)
}

// CreateOrUpdate creates the serving when the name is unknown and
// updates the existing instance otherwise.
func (c *Client) CreateOrUpdate(ctx context.Context, spec Spec) error {
	spec.Defaults()
	if err := spec.Validate(); err != nil {
		return err
	}
	payload := map[string]interface{}{
		"name":               spec.Name,
		"artifactPath":       spec.ArtifactPath,
		"modelVersion":       spec.ModelVersion,
		"modelServer":        spec.ModelServer,
		"servingTool":        servingTool(spec.KFServing),
		"requestedInstances": spec.Instances,
		"kafkaTopicDTO": kafka.TopicDTO{
			Name:       spec.TopicName,
			Partitions: spec.Partitions,
			Replicas:   spec.Replicas,
		},
	}
	if spec.ModelServer == config.ModelServerTensorflow {
		payload["batchingEnabled"] = spec.BatchingEnabled
	}
	existing, err := c.Get(ctx, spec.Name)
	if err == nil {
		payload["id"] = existing.ID
	} else if !hopserr.IsNotFound(err) {
		return err
	}
	c.logger.Infow("creating or updating serving", "name", spec.Name, "artifact", spec.ArtifactPath)
	return c.rest.Put(ctx, c.rest.ProjectPath(config.ServingResource), payload, nil)
}

func servingTool(kfserving bool) string {
	if kfserving {
		return config.ServingToolKFServing
	}
	return config.ServingToolDefault
}

// Verb selects the inference endpoint of a deployed model.
type Verb string

const (
	Predict  Verb = ":predict"
	Classify Verb = ":classify"
	Regress  Verb = ":regress"
)

// Infer submits an inference request to a serving and returns the raw
// JSON response.
func (c *Client) Infer(ctx context.Context, name string, data interface{}, verb Verb) (json.RawMessage, error) {
	if verb == "" {
		verb = Predict
	}
	path := c.rest.ProjectPath(config.InferenceResource, config.ModelsResource, name) + string(verb)
	var out json.RawMessage
	if err := c.rest.Post(ctx, path, data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
