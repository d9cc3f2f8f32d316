// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

// Package rest is the HTTP core shared by every resource client. It
// owns URL construction, authentication headers, TLS, retries and the
// translation of error bodies into typed errors.
package rest

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/logicalclocks/hops-go/config"
	"github.com/logicalclocks/hops-go/hopserr"
	"github.com/logicalclocks/hops-go/logging"
)

// Credentials sets the Authorization header on outgoing requests.
type Credentials interface {
	apply(req *http.Request)
}

// APIKey authenticates external clients against the REST API.
type APIKey string

func (k APIKey) apply(req *http.Request) {
	req.Header.Set("Authorization", "ApiKey "+string(k))
}

// BearerToken is the JWT the platform materializes for jobs running
// inside the cluster.
type BearerToken string

func (t BearerToken) apply(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+string(t))
}

type Client struct {
	endpoint    string
	projectID   int
	projectName string
	creds       Credentials
	http        *http.Client
	retries     uint
	logger      logging.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *Client) {
		c.http = &http.Client{
			Transport: &http.Transport{TLSClientConfig: cfg},
			Timeout:   60 * time.Second,
		}
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithRetries(n uint) Option {
	return func(c *Client) { c.retries = n }
}

// NewClient builds a project-scoped REST client from settings. The
// credential is the API key when set, else the materialized JWT.
func NewClient(settings config.Settings, opts ...Option) (*Client, error) {
	if settings.RestEndpoint == "" {
		return nil, hopserr.NewInvalidArgumentError(
			errors.New("the REST endpoint is not set, export " + config.RestEndpointEnv))
	}
	var creds Credentials
	switch {
	case settings.APIKey != "":
		creds = APIKey(settings.APIKey)
	case settings.JWT != "":
		creds = BearerToken(settings.JWT)
	default:
		return nil, hopserr.NewInvalidArgumentError(
			errors.New("no credentials found, set " + config.APIKeyEnv + " or " + config.JWTEnv))
	}
	client := &Client{
		endpoint:    strings.TrimSuffix(settings.RestEndpoint, "/"),
		projectID:   settings.ProjectID,
		projectName: settings.ProjectName,
		creds:       creds,
		http:        &http.Client{Timeout: 60 * time.Second},
		retries:     uint(settings.Retries),
		logger:      logging.NewLogger("rest").WithProject(settings.ProjectName),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

func (c *Client) Endpoint() string    { return c.endpoint }
func (c *Client) ProjectID() int      { return c.projectID }
func (c *Client) ProjectName() string { return c.projectName }

// ProjectPath builds /hopsworks-api/api/project/<id>/<segments...>.
func (c *Client) ProjectPath(segments ...string) string {
	parts := []string{config.RestResource, config.ProjectResource, strconv.Itoa(c.projectID)}
	return joinPath(append(parts, segments...))
}

// AppservicePath builds /hopsworks-api/api/appservice/<segments...>.
func (c *Client) AppservicePath(segments ...string) string {
	parts := []string{config.RestResource, config.AppserviceResource}
	return joinPath(append(parts, segments...))
}

// joinPath escapes each path element individually. Segments may carry
// embedded slashes (RestResource is hopsworks-api/api); those must
// stay path separators on the wire, so segments are split before
// escaping.
func joinPath(segments []string) string {
	var escaped []string
	for _, segment := range segments {
		for _, part := range strings.Split(segment, "/") {
			escaped = append(escaped, url.PathEscape(part))
		}
	}
	return "/" + strings.Join(escaped, "/")
}

func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Do sends a JSON request and decodes the JSON response into out when
// out is non-nil. Non-2xx responses become RestAPIErrors; 429 and 5xx
// are retried with exponential backoff before giving up.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return hopserr.NewInvalidArgumentError(err)
		}
	}
	fullURL := c.endpoint + path
	requestID := logging.NewRequestID()
	logger := c.logger.WithRequestID(requestID)
	logger.Debugw("sending request", "method", method, "url", fullURL)

	var respBody []byte
	err := retry.Do(
		func() error {
			var reqBody io.Reader
			if payload != nil {
				reqBody = bytes.NewReader(payload)
			}
			req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
			if err != nil {
				return retry.Unrecoverable(hopserr.NewInvalidArgumentError(err))
			}
			req.Header.Set("Content-Type", "application/json")
			c.creds.apply(req)

			resp, err := c.http.Do(req)
			if err != nil {
				return hopserr.NewConnectionError(c.endpoint, err)
			}
			defer resp.Body.Close()
			respBody, err = io.ReadAll(resp.Body)
			if err != nil {
				return hopserr.NewConnectionError(c.endpoint, err)
			}
			if resp.StatusCode >= 300 {
				restErr := hopserr.NewRestAPIError(method, fullURL, resp.StatusCode, respBody)
				if !retryableStatus(resp.StatusCode) {
					return retry.Unrecoverable(restErr)
				}
				return restErr
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.retries+1),
		retry.Delay(250*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Debugw("retrying request", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		logger.Warnw("request failed", "method", method, "url", fullURL, "error", err)
		return err
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			restErr := hopserr.NewRestAPIError(method, fullURL, http.StatusOK, respBody)
			restErr.SetMessage("could not decode the response body")
			return restErr
		}
	}
	return nil
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
