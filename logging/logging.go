// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

package logging

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Logger struct {
	*zap.SugaredLogger
}

type RequestID string

func NewRequestID() RequestID {
	return RequestID(uuid.New().String())
}

func (logger Logger) WithRequestID(id RequestID) Logger {
	return Logger{
		logger.With("request-id", id),
	}
}

// WithProject tags every entry with the project the client is scoped
// to. Feature store loggers additionally carry the store name.
func (logger Logger) WithProject(project string) Logger {
	return Logger{
		logger.With("project", project),
	}
}

func (logger Logger) WithFeaturestore(featurestore string) Logger {
	return Logger{
		logger.With("featurestore", featurestore),
	}
}

func (logger Logger) WithResource(resourceType, name string, version int) Logger {
	return Logger{
		logger.With("resource-type", resourceType, "name", name, "version", version),
	}
}

func NewLogger(service string) Logger {
	baseLogger, err := zap.NewDevelopment(
		zap.AddStacktrace(zap.ErrorLevel),
	)
	if err != nil {
		panic(err)
	}
	logger := baseLogger.Sugar().Named(service)
	return Logger{
		logger,
	}
}

// NewNop returns a logger that discards everything, for tests and for
// callers that wire their own logging.
func NewNop() Logger {
	return Logger{zap.NewNop().Sugar()}
}
