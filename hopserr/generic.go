// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

package hopserr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// GenericError is the base every typed error embeds. It carries the
// message, the error class, the HTTP status the class maps to, an
// eris-wrapped cause for stack traces, and a detail map surfaced to
// the caller.
type GenericError struct {
	msg       string
	errorType string
	status    int
	err       error
	details   map[string]string
}

func newGenericError(err error, errorType string, status int) GenericError {
	if err == nil {
		err = fmt.Errorf("initial error")
	}
	msg := err.Error()
	return GenericError{
		msg:       msg,
		errorType: errorType,
		status:    status,
		err:       eris.New(msg),
		details:   map[string]string{},
	}
}

// Error renders the message followed by the details in key order, so
// the text is stable no matter when details were added.
func (e *GenericError) Error() string {
	if len(e.details) == 0 {
		return e.msg
	}
	keys := make([]string, 0, len(e.details))
	for key := range e.details {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, key := range keys {
		pairs[i] = key + "=" + e.details[key]
	}
	return e.msg + " (" + strings.Join(pairs, ", ") + ")"
}

// StatusCode is the HTTP status the error class maps to.
func (e *GenericError) StatusCode() int {
	return e.status
}

// GetType names the error class.
func (e *GenericError) GetType() string {
	return e.errorType
}

type JSONStackTrace map[string]interface{}

// Stack returns the eris stack trace of the original cause.
func (e *GenericError) Stack() JSONStackTrace {
	return eris.ToJSON(e.err, true)
}

func (e *GenericError) Details() map[string]string {
	return e.details
}

// AddDetail records a key/value pair. Keys are normalized to
// lower_snake_case.
func (e *GenericError) AddDetail(key, value string) {
	key = strings.ToLower(strings.ReplaceAll(key, " ", "_"))
	e.details[key] = value
}

// SetMessage prefixes the message with caller context.
func (e *GenericError) SetMessage(msg string) {
	e.msg = msg + ": " + e.msg
}
