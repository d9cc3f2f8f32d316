// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

package config

// Environment variables set by the platform inside jobs, notebooks and
// serving containers. External clients set the HOPSWORKS_* subset.
const (
	KafkaBrokersEnv      = "KAFKA_BROKERS"
	ElasticEndpointEnv   = "ELASTIC_ENDPOINT"
	RestEndpointEnv      = "REST_ENDPOINT"
	ProjectNameEnv       = "HOPSWORKS_PROJECT_NAME"
	ProjectIDEnv         = "HOPSWORKS_PROJECT_ID"
	APIKeyEnv            = "HOPSWORKS_API_KEY"
	JWTEnv               = "HOPSWORKS_JWT"
	RestRetriesEnv       = "HOPSWORKS_REST_RETRIES"
	MaterialDirectoryEnv = "MATERIAL_DIRECTORY"
	OnlineDSNEnv         = "FEATURESTORE_ONLINE_DSN"
	KafkaVersionEnv      = "KAFKA_VERSION"
	LivyVersionEnv       = "LIVY_VERSION"
	SparkVersionEnv      = "SPARK_VERSION"
	TensorflowVersionEnv = "TENSORFLOW_VERSION"
)

// REST path segments of the Hopsworks API.
const (
	RestResource              = "hopsworks-api/api"
	ProjectResource           = "project"
	AppserviceResource        = "appservice"
	SchemaResource            = "schema"
	ServingResource           = "serving"
	InferenceResource         = "inference"
	ModelsResource            = "models"
	FeaturestoresResource     = "featurestores"
	FeaturegroupsResource     = "featuregroups"
	TrainingDatasetsResource  = "trainingdatasets"
	FeaturegroupClearResource = "clear"
	UpdateStatsResource       = "updatestats"
	MetadataResource          = "metadata"
)

// Project directory layout on HopsFS.
const (
	ProjectRootDir      = "Projects"
	ProjectStagingDir   = "Resources"
	TrainingDatasetsDir = "Training Datasets"
)

// Kafka client property keys, shared with the Java/Python clients.
const (
	KafkaBootstrapServers      = "bootstrap.servers"
	KafkaKeySerializer         = "key.serializer"
	KafkaValueSerializer       = "value.serializer"
	KafkaKeyDeserializer       = "key.deserializer"
	KafkaValueDeserializer     = "value.deserializer"
	KafkaGroupID               = "group.id"
	KafkaEnableAutoCommit      = "enable.auto.commit"
	KafkaAutoCommitIntervalMs  = "auto.commit.interval.ms"
	KafkaSessionTimeoutMs      = "session.timeout.ms"
	KafkaAutoOffsetReset       = "auto.offset.reset"
	KafkaSecurityProtocol      = "security.protocol"
	KafkaSSLTruststoreLocation = "ssl.truststore.location"
	KafkaSSLTruststorePassword = "ssl.truststore.password"
	KafkaSSLKeystoreLocation   = "ssl.keystore.location"
	KafkaSSLKeystorePassword   = "ssl.keystore.password"
	KafkaSSLKeyPassword        = "ssl.key.password"
)

// File names of the TLS material the platform provisions per project
// user. The keystore/truststore pair is the JKS material handed to JVM
// clients; the PEM set is derived for everything else.
const (
	KeystoreFile       = "k_certificate"
	TruststoreFile     = "t_certificate"
	MaterialPasswdFile = "material_passwd"
	ClientCertPEM      = "client.pem"
	ClientKeyPEM       = "client_key.pem"
	ClientCAPEM        = "client_ca.pem"
	DomainCATruststore = "domain_ca_truststore"
)

// Model serving enums understood by the serving resource.
const (
	ModelServerTensorflow = "TENSORFLOW_SERVING"
	ModelServerFlask      = "FLASK"

	ServingToolDefault   = "DEFAULT"
	ServingToolKFServing = "KFSERVING"

	ServingActionStart = "start"
	ServingActionStop  = "stop"
)

var ModelServers = []string{ModelServerTensorflow, ModelServerFlask}

// Defaults applied by the client when the caller does not specify.
const (
	DefaultSchemaVersion          = 1
	DefaultFeaturegroupVersion    = 1
	DefaultTrainingDatasetVersion = 1
	DefaultServingInstances       = 1
	DefaultTopicPartitions        = 1
	DefaultTopicReplicas          = 1
	DefaultRestRetries            = 3
)
