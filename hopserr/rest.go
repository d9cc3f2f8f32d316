// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

package hopserr

import (
	"encoding/json"
	"fmt"
)

// ErrorDTO is the error body returned by the Hopsworks REST API.
type ErrorDTO struct {
	ErrorCode int    `json:"errorCode"`
	ErrorMsg  string `json:"errorMsg"`
	UserMsg   string `json:"usrMsg"`
}

// RestAPIError is raised when a call to the Hopsworks REST API returns
// a non-2xx status. It carries everything needed to debug the call:
// method, url, HTTP status and the server's error DTO.
type RestAPIError struct {
	Method    string
	URL       string
	Status    int
	ErrorCode int
	ErrorMsg  string
	UserMsg   string
	GenericError
}

// NewRestAPIError builds a RestAPIError from a response body, parsing
// the Hopsworks error DTO when the body contains one.
func NewRestAPIError(method, url string, status int, body []byte) *RestAPIError {
	var dto ErrorDTO
	// A body that is not the error DTO (HTML error pages, empty
	// bodies) leaves the DTO fields zeroed.
	_ = json.Unmarshal(body, &dto)
	err := fmt.Errorf(
		"request %s %s failed, server response: HTTP code: %d, error code: %d, error msg: %s, user msg: %s",
		method, url, status, dto.ErrorCode, dto.ErrorMsg, dto.UserMsg)
	restErr := &RestAPIError{
		Method:       method,
		URL:          url,
		Status:       status,
		ErrorCode:    dto.ErrorCode,
		ErrorMsg:     dto.ErrorMsg,
		UserMsg:      dto.UserMsg,
		GenericError: newGenericError(err, REST_API_ERROR, status),
	}
	restErr.AddDetail("method", method)
	restErr.AddDetail("url", url)
	return restErr
}
