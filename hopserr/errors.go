// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

// Package hopserr defines the typed errors raised by the client. Every
// failure class gets its own type so callers can branch with errors.As,
// and every error carries the HTTP status it maps to plus a detail map.
package hopserr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	REST_API_ERROR             = "REST API Error"
	CONNECTION_ERROR           = "Connection Error"
	EXECUTION_ERROR            = "Execution Error"
	FEATURE_NOT_FOUND          = "Feature Not Found"
	AMBIGUOUS_FEATURE          = "Ambiguous Feature"
	FEATUREGROUP_NOT_FOUND     = "Featuregroup Not Found"
	TRAINING_DATASET_NOT_FOUND = "Training Dataset Not Found"
	SERVING_NOT_FOUND          = "Serving Not Found"
	DATASET_NOT_FOUND          = "Dataset Not Found"
	DATASET_ALREADY_EXISTS     = "Dataset Already Exists"
	UNSUPPORTED_FORMAT         = "Unsupported Format"
	INVALID_ARGUMENT           = "Invalid Argument"
	INTERNAL_ERROR             = "Internal Error"
)

// Error is implemented by all typed errors in this package.
type Error interface {
	error
	StatusCode() int
	GetType() string
	AddDetail(key, value string)
}

type InternalError struct {
	GenericError
}

func NewInternalError(err error) *InternalError {
	if err == nil {
		err = fmt.Errorf("internal error")
	}
	return &InternalError{newGenericError(err, INTERNAL_ERROR, http.StatusInternalServerError)}
}

type InvalidArgumentError struct {
	GenericError
}

func NewInvalidArgumentError(err error) *InvalidArgumentError {
	if err == nil {
		err = fmt.Errorf("invalid argument")
	}
	return &InvalidArgumentError{newGenericError(err, INVALID_ARGUMENT, http.StatusBadRequest)}
}

type ConnectionError struct {
	GenericError
}

func NewConnectionError(endpoint string, err error) *ConnectionError {
	if err == nil {
		err = fmt.Errorf("connection error")
	}
	connErr := &ConnectionError{newGenericError(err, CONNECTION_ERROR, http.StatusBadGateway)}
	connErr.AddDetail("endpoint", endpoint)
	return connErr
}

type ExecutionError struct {
	GenericError
}

func NewExecutionError(query string, err error) *ExecutionError {
	if err == nil {
		err = fmt.Errorf("execution error")
	}
	execErr := &ExecutionError{newGenericError(err, EXECUTION_ERROR, http.StatusInternalServerError)}
	execErr.AddDetail("query", query)
	return execErr
}

type FeatureNotFoundError struct {
	GenericError
}

func NewFeatureNotFoundError(feature string, available []string) *FeatureNotFoundError {
	err := fmt.Errorf("could not find the feature %s in the metadata of any featuregroup", feature)
	notFound := &FeatureNotFoundError{newGenericError(err, FEATURE_NOT_FOUND, http.StatusNotFound)}
	notFound.AddDetail("feature", feature)
	notFound.AddDetail("available_features", strings.Join(available, ","))
	return notFound
}

type AmbiguousFeatureError struct {
	GenericError
}

func NewAmbiguousFeatureError(feature string, featuregroups []string) *AmbiguousFeatureError {
	err := fmt.Errorf(
		"the feature %s exists in more than one featuregroup (%s), specify the featuregroup to resolve it",
		feature, strings.Join(featuregroups, ","))
	ambiguous := &AmbiguousFeatureError{newGenericError(err, AMBIGUOUS_FEATURE, http.StatusBadRequest)}
	ambiguous.AddDetail("feature", feature)
	ambiguous.AddDetail("featuregroups", strings.Join(featuregroups, ","))
	return ambiguous
}

type FeaturegroupNotFoundError struct {
	GenericError
}

func NewFeaturegroupNotFoundError(name string, version int) *FeaturegroupNotFoundError {
	err := fmt.Errorf("could not find featuregroup %s with version %d in the feature store metadata", name, version)
	notFound := &FeaturegroupNotFoundError{newGenericError(err, FEATUREGROUP_NOT_FOUND, http.StatusNotFound)}
	notFound.AddDetail("featuregroup", name)
	notFound.AddDetail("version", fmt.Sprintf("%d", version))
	return notFound
}

type TrainingDatasetNotFoundError struct {
	GenericError
}

func NewTrainingDatasetNotFoundError(name string, version int) *TrainingDatasetNotFoundError {
	err := fmt.Errorf("could not find training dataset %s with version %d in the feature store metadata", name, version)
	notFound := &TrainingDatasetNotFoundError{newGenericError(err, TRAINING_DATASET_NOT_FOUND, http.StatusNotFound)}
	notFound.AddDetail("training_dataset", name)
	notFound.AddDetail("version", fmt.Sprintf("%d", version))
	return notFound
}

type ServingNotFoundError struct {
	GenericError
}

func NewServingNotFoundError(name string, available []string) *ServingNotFoundError {
	err := fmt.Errorf("no serving with name %s could be found among the available servings: %s",
		name, strings.Join(available, ","))
	notFound := &ServingNotFoundError{newGenericError(err, SERVING_NOT_FOUND, http.StatusNotFound)}
	notFound.AddDetail("serving", name)
	return notFound
}

type DatasetNotFoundError struct {
	GenericError
}

func NewDatasetNotFoundError(path string, err error) *DatasetNotFoundError {
	if err == nil {
		err = fmt.Errorf("dataset not found: %s", path)
	}
	notFound := &DatasetNotFoundError{newGenericError(err, DATASET_NOT_FOUND, http.StatusNotFound)}
	notFound.AddDetail("path", path)
	return notFound
}

type DatasetAlreadyExistsError struct {
	GenericError
}

func NewDatasetAlreadyExistsError(path string) *DatasetAlreadyExistsError {
	err := fmt.Errorf("dataset already exists at %s and overwrite is disabled", path)
	exists := &DatasetAlreadyExistsError{newGenericError(err, DATASET_ALREADY_EXISTS, http.StatusConflict)}
	exists.AddDetail("path", path)
	return exists
}

type UnsupportedFormatError struct {
	GenericError
}

func NewUnsupportedFormatError(format string, supported []string) *UnsupportedFormatError {
	err := fmt.Errorf(
		"the format %s is produced by an external toolchain and is not materialized by this client, supported formats: %s",
		format, strings.Join(supported, ","))
	unsupported := &UnsupportedFormatError{newGenericError(err, UNSUPPORTED_FORMAT, http.StatusBadRequest)}
	unsupported.AddDetail("format", format)
	unsupported.AddDetail("supported_formats", strings.Join(supported, ","))
	return unsupported
}

// IsNotFound reports whether err is one of the not-found classes.
func IsNotFound(err error) bool {
	var fg *FeaturegroupNotFoundError
	var td *TrainingDatasetNotFoundError
	var f *FeatureNotFoundError
	var s *ServingNotFoundError
	var d *DatasetNotFoundError
	var rest *RestAPIError
	if errors.As(err, &rest) {
		return rest.Status == http.StatusNotFound
	}
	return errors.As(err, &fg) || errors.As(err, &td) || errors.As(err, &f) ||
		errors.As(err, &s) || errors.As(err, &d)
}
