// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

// Package config resolves client settings from the environment the
// platform injects into jobs and notebooks, or from a .env file when
// running outside the cluster.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// GetEnv takes an environment variable key and returns the value if it
// exists, otherwise the fallback.
func GetEnv(key, fallback string) string {
	value, has := os.LookupEnv(key)
	if !has {
		return fallback
	}
	return value
}

func GetEnvInt(key string, fallback int) int {
	value, has := os.LookupEnv(key)
	if !has {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func GetEnvBool(key string, fallback bool) bool {
	value, has := os.LookupEnv(key)
	if !has {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// Settings is everything the REST and feature store clients need to
// talk to a Hopsworks installation.
type Settings struct {
	// RestEndpoint is scheme://host:port of the Hopsworks head node.
	RestEndpoint string
	ProjectName  string
	ProjectID    int
	// APIKey authenticates external clients. JWT is preferred inside
	// the cluster where the platform materializes a token per job.
	APIKey string
	JWT    string
	// MaterialDir holds the per-user TLS material. Defaults to the
	// working directory, which is where the platform stages it for
	// executors.
	MaterialDir string
	// OnlineDSN is the MySQL DSN of the online feature store.
	OnlineDSN string
	Retries   int
}

// FromEnv loads Settings from the process environment. A .env file in
// the working directory is honored if present so that local runs can
// mirror cluster jobs.
func FromEnv() Settings {
	_ = godotenv.Load()
	cwd, _ := os.Getwd()
	return Settings{
		RestEndpoint: strings.TrimSuffix(GetEnv(RestEndpointEnv, ""), "/"),
		ProjectName:  GetEnv(ProjectNameEnv, ""),
		ProjectID:    GetEnvInt(ProjectIDEnv, 0),
		APIKey:       GetEnv(APIKeyEnv, ""),
		JWT:          GetEnv(JWTEnv, ""),
		MaterialDir:  GetEnv(MaterialDirectoryEnv, cwd),
		OnlineDSN:    GetEnv(OnlineDSNEnv, ""),
		Retries:      GetEnvInt(RestRetriesEnv, DefaultRestRetries),
	}
}
