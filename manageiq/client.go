/**
 * Copyright 2018 Atos
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you may not
 * use this file except in compliance with the License. You may obtain a copy of
 * the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
 * WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
 * License for the specific language governing permissions and limitations under
 * the License.
 */

package manageiq

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"strings"
	"time"

	"manageiq-vmdb/model"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	resty "gopkg.in/resty.v1"
)

const (
	TimeoutProperty = "manageiq.timeout"
	DebugProperty   = "manageiq.debug"

	TimeoutDefault = 0 * time.Second
	DebugDefault   = false

	AuthTokenHeader = "X-Auth-Token"
	GroupHeader     = "X-MIQ-Group"
)

// APIError is returned when the API answers with a status outside the 2xx range or with a body that can't be understood.
type APIError struct {
	Code    int    `json:"-"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Klass   string `json:"klass"`
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("ManageIQ API error %d (%s): %s", e.Code, e.Kind, e.Message)
	}
	return fmt.Sprintf("ManageIQ API error %d: %s", e.Code, e.Message)
}

// TransportError is returned when the request couldn't reach the API or its response couldn't be read
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("Error connecting to %s: %s", e.URL, e.Err.Error())
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type errorBody struct {
	Error *APIError `json:"error"`
}

// Client talks to the REST API of a single ManageIQ appliance
type Client struct {
	httpClient *resty.Client
	apiURL     string
	logger     *log.Entry
}

func loadCABundle(path string) (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}

	pem, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Error reading CA bundle %s: %w", path, err)
	}

	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("No valid certificates found in CA bundle %s", path)
	}

	return pool, nil
}

// Options are the client settings that don't depend on the connection
type Options struct {
	Timeout time.Duration
	Debug   bool
}

// SetDefaults registers the defaults of the client properties. It must be called once at startup.
func SetDefaults() {
	viper.SetDefault(TimeoutProperty, TimeoutDefault)
	viper.SetDefault(DebugProperty, DebugDefault)
}

// ConfiguredOptions reads the client settings from the configuration
func ConfiguredOptions() Options {
	return Options{
		Timeout: viper.GetDuration(TimeoutProperty),
		Debug:   viper.GetBool(DebugProperty),
	}
}

// NewClient creates a client for the appliance described by the connection. No request is made until Get or Post are called.
func NewClient(conn model.ConnectionInfo, opts Options, logger *log.Entry) (*Client, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: !conn.VerifySSL,
	}

	if conn.CABundlePath != "" {
		pool, err := loadCABundle(conn.CABundlePath)
		if err != nil {
			logger.WithError(err).Error("Error loading CA bundle")
			return nil, err
		}
		tlsConfig.RootCAs = pool
	}

	apiURL := conn.APIURL()
	httpClient := resty.New().
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(20)).
		SetHostURL(apiURL).
		SetTLSClientConfig(tlsConfig).
		SetHeader("Accept", "application/json").
		SetTimeout(opts.Timeout)

	if opts.Debug {
		httpClient = httpClient.SetDebug(true).SetLogger(logger.WriterLevel(log.DebugLevel))
	}

	if conn.AuthType() == model.TokenAuthType {
		httpClient.SetHeader(AuthTokenHeader, conn.Token)
	} else {
		httpClient.SetBasicAuth(conn.Username, conn.Password)
	}

	if conn.Group != "" {
		httpClient.SetHeader(GroupHeader, conn.Group)
	}

	return &Client{
		httpClient: httpClient,
		apiURL:     apiURL,
		logger:     logger.WithField("api", apiURL),
	}, nil
}

// URL returns the absolute URL of a path relative to the API root
func (c *Client) URL(path string) string {
	return c.apiURL + "/" + strings.TrimPrefix(path, "/")
}

func parseError(response *resty.Response) error {
	var body errorBody
	err := json.Unmarshal(response.Body(), &body)
	if err == nil && body.Error != nil && body.Error.Message != "" {
		body.Error.Code = response.StatusCode()
		return body.Error
	}

	message := strings.TrimSpace(response.String())
	if message == "" {
		message = response.Status()
	}

	return &APIError{
		Code:    response.StatusCode(),
		Message: message,
	}
}

func decode(response *resty.Response) (map[string]interface{}, error) {
	raw := bytes.TrimSpace(response.Body())
	if len(raw) == 0 {
		return map[string]interface{}{}, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var result map[string]interface{}
	if err := decoder.Decode(&result); err != nil || result == nil {
		message := "malformed JSON response"
		if err != nil {
			message = fmt.Sprintf("malformed JSON response: %s", err.Error())
		}
		return nil, &APIError{
			Code:    response.StatusCode(),
			Kind:    "malformed_response",
			Message: message,
		}
	}

	return result, nil
}

func (c *Client) execute(ctx context.Context, method, path string, body interface{}) (map[string]interface{}, error) {
	logger := c.logger.WithField("method", method).WithField("path", path)

	request := c.httpClient.R().SetContext(ctx)
	if body != nil {
		request = request.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	logger.Debug("Calling ManageIQ API")
	response, err := request.Execute(method, strings.TrimPrefix(path, "/"))
	if err != nil {
		logger.WithError(err).Error("Error calling ManageIQ API")
		return nil, &TransportError{URL: c.URL(path), Err: err}
	}

	if !response.IsSuccess() {
		apiErr := parseError(response)
		logger.WithError(apiErr).Errorf("ManageIQ API returned status %d", response.StatusCode())
		return nil, apiErr
	}

	logger.Debugf("ManageIQ API returned status %d", response.StatusCode())
	return decode(response)
}

// Get returns the representation of the resource at the given path
func (c *Client) Get(ctx context.Context, path string) (map[string]interface{}, error) {
	return c.execute(ctx, resty.MethodGet, path, nil)
}

// Post sends the body to the resource at the given path and returns the decoded response
func (c *Client) Post(ctx context.Context, path string, body interface{}) (map[string]interface{}, error) {
	return c.execute(ctx, resty.MethodPost, path, body)
}
