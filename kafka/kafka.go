// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

// Package kafka exposes the project Kafka setup: broker discovery, the
// default secure client configuration and the Avro schemas registered
// per topic.
package kafka

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"strings"

	"github.com/linkedin/goavro/v2"

	"github.com/logicalclocks/hops-go/config"
	"github.com/logicalclocks/hops-go/hopserr"
	"github.com/logicalclocks/hops-go/material"
	"github.com/logicalclocks/hops-go/rest"
)

// BrokerEndpoints returns the comma-separated broker endpoints for the
// project, with the INTERNAL:// listener prefix stripped.
func BrokerEndpoints() string {
	return strings.ReplaceAll(os.Getenv(config.KafkaBrokersEnv), "INTERNAL://", "")
}

func BrokerEndpointsList() []string {
	endpoints := BrokerEndpoints()
	if endpoints == "" {
		return nil
	}
	return strings.Split(endpoints, ",")
}

// DefaultConfig is the property map for a secure producer against the
// project brokers, mirroring the configuration handed to JVM clients.
func DefaultConfig(m *material.Material) map[string]string {
	return map[string]string{
		config.KafkaBootstrapServers:      BrokerEndpoints(),
		config.KafkaKeySerializer:         "org.apache.kafka.common.serialization.StringSerializer",
		config.KafkaValueSerializer:       "org.apache.kafka.common.serialization.ByteArraySerializer",
		config.KafkaSecurityProtocol:      "SSL",
		config.KafkaSSLTruststoreLocation: m.TrustStorePath(),
		config.KafkaSSLTruststorePassword: m.Password(),
		config.KafkaSSLKeystoreLocation:   m.KeyStorePath(),
		config.KafkaSSLKeystorePassword:   m.Password(),
		config.KafkaSSLKeyPassword:        m.Password(),
	}
}

// TopicDTO is the Kafka topic description attached to servings and
// returned by the topic resources.
type TopicDTO struct {
	Name          string `json:"name"`
	SchemaVersion int    `json:"schemaVersion,omitempty"`
	Partitions    int    `json:"numOfPartitions,omitempty"`
	Replicas      int    `json:"numOfReplicas,omitempty"`
}

type schemaRequest struct {
	TopicName   string `json:"topicName"`
	Version     int    `json:"version"`
	KeyStorePwd string `json:"keyStorePwd,omitempty"`
	KeyStore    string `json:"keyStore,omitempty"`
}

type schemaResponse struct {
	Contents string `json:"contents"`
	Version  int    `json:"version"`
}

// GetSchema fetches the Avro schema registered for a topic at a given
// version and verifies it compiles. The appservice endpoint
// authenticates with the project keystore, so the material is attached
// when available.
func GetSchema(ctx context.Context, client *rest.Client, m *material.Material, topic string, version int) (string, error) {
	if topic == "" {
		return "", hopserr.NewInvalidArgumentError(errors.New("the topic name cannot be empty"))
	}
	if version <= 0 {
		version = config.DefaultSchemaVersion
	}
	request := schemaRequest{TopicName: topic, Version: version}
	if m != nil {
		request.KeyStorePwd = m.Password()
		if raw, err := os.ReadFile(m.KeyStorePath()); err == nil {
			request.KeyStore = base64.StdEncoding.EncodeToString(raw)
		}
	}
	var response schemaResponse
	path := client.AppservicePath(config.SchemaResource)
	if err := client.Post(ctx, path, request, &response); err != nil {
		return "", err
	}
	if _, err := goavro.NewCodec(response.Contents); err != nil {
		execErr := hopserr.NewExecutionError(topic, err)
		execErr.SetMessage("the schema registered for the topic is not valid Avro")
		return "", execErr
	}
	return response.Contents, nil
}
