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

package vmdb

import (
	"context"
	"fmt"

	"manageiq-vmdb/model"

	log "github.com/sirupsen/logrus"
)

const (
	actionsField = "actions"
	nameField    = "name"
	successField = "success"
	messageField = "message"
)

// APIClient is the subset of the ManageIQ client used to resolve and mutate objects
type APIClient interface {
	Get(ctx context.Context, path string) (map[string]interface{}, error)
	Post(ctx context.Context, path string, body interface{}) (map[string]interface{}, error)
}

// ClientFactory creates the API client for a connection. It's only called once the request has been validated.
type ClientFactory func(conn model.ConnectionInfo) (APIClient, error)

// Vmdb fetches and mutates VMDB objects through the API
type Vmdb struct {
	Client APIClient
	Logger *log.Entry
}

// New creates a resolver bound to a client
func New(client APIClient, logger *log.Entry) *Vmdb {
	return &Vmdb{
		Client: client,
		Logger: logger,
	}
}

// ValidateConnection checks that the connection has an URL and either a token or a username and password
func ValidateConnection(conn model.ConnectionInfo) error {
	if conn.URL != "" && ((conn.Username != "" && conn.Password != "") || conn.Token != "") {
		return nil
	}

	missing := map[string]string{
		"url":      conn.URL,
		"username": conn.Username,
		"password": conn.Password,
	}
	for _, arg := range []string{"url", "username", "password"} {
		if missing[arg] == "" {
			return validationErrorf("missing required argument: manageiq_connection[%s]", arg)
		}
	}

	return nil
}

// Validate checks the argument combination of a request
func Validate(req model.VmdbRequest) error {
	if req.Reference.IsEmpty() {
		return validationErrorf("one of the following is required: vmdb, href")
	}

	if req.Reference.Href != "" && req.Reference.Object != nil {
		return validationErrorf("parameters are mutually exclusive: vmdb|href")
	}

	if req.Reference.Object != nil {
		if _, err := ResolveSelfLink(req.Reference.Object); err != nil {
			return err
		}
	}

	if req.Action != nil {
		if req.Action.Name == "" {
			return validationErrorf("action name can't be empty")
		}
		if req.Action.Data == nil {
			return validationErrorf("missing parameter(s) required by 'action': data")
		}
	}

	return ValidateConnection(req.Connection)
}

// Invoke validates the request, creates a client for its connection and executes it
func Invoke(ctx context.Context, logger *log.Entry, req model.VmdbRequest, newClient ClientFactory) (model.Result, error) {
	if err := Validate(req); err != nil {
		logger.WithError(err).Error("Invalid request")
		return model.Result{}, err
	}

	client, err := newClient(req.Connection)
	if err != nil {
		logger.WithError(err).Error("Error creating ManageIQ client")
		return model.Result{}, err
	}

	return New(client, logger).Execute(ctx, req)
}

// Execute resolves the reference of the request and either fetches it or applies the requested action
func (v *Vmdb) Execute(ctx context.Context, req model.VmdbRequest) (model.Result, error) {
	path, err := ResolvePath(req.Reference)
	if err != nil {
		return model.Result{}, err
	}

	if req.Action == nil {
		return v.GetObject(ctx, path)
	}

	return v.ApplyAction(ctx, path, *req.Action, req.CheckMode)
}

// GetObject returns the current representation of the resource. It never reports a change.
func (v *Vmdb) GetObject(ctx context.Context, path string) (model.Result, error) {
	logger := v.Logger.WithField("path", path)
	logger.Info("Getting VMDB object")

	object, err := v.Client.Get(ctx, path)
	if err != nil {
		logger.WithError(err).Error("Error getting VMDB object")
		return model.Result{}, err
	}

	return model.Result{
		Changed: false,
		Object:  object,
	}, nil
}

// ActionAvailable returns true if the action is advertised in the actions list of the object
func ActionAvailable(object map[string]interface{}, action string) bool {
	actions, ok := object[actionsField].([]interface{})
	if !ok {
		return false
	}

	for _, raw := range actions {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if name, _ := entry[nameField].(string); name == action {
			return true
		}
	}

	return false
}

// ApplyAction checks that the resource exists and advertises the action, then posts it. In check mode nothing is posted and a change is predicted.
func (v *Vmdb) ApplyAction(ctx context.Context, path string, action model.ActionRequest, checkMode bool) (model.Result, error) {
	logger := v.Logger.WithField("path", path).WithField("action", action.Name)

	current, err := v.Client.Get(ctx, path)
	if err != nil {
		logger.WithError(err).Error("Error getting VMDB object before applying action")
		return model.Result{}, err
	}

	if !ActionAvailable(current, action.Name) {
		err := fmt.Errorf("%w: %s is not available for %s", ErrActionNotFound, action.Name, path)
		logger.WithError(err).Error("Can't apply action")
		return model.Result{}, err
	}

	if checkMode {
		logger.Info("Check mode enabled. Action won't be applied")
		return model.Result{
			Changed: true,
			Object:  current,
		}, nil
	}

	logger.Info("Applying action")
	response, err := v.Client.Post(ctx, path, action.Body())
	if err != nil {
		logger.WithError(err).Error("Error applying action")
		return model.Result{}, err
	}

	if success, ok := response[successField].(bool); ok && !success {
		message, _ := response[messageField].(string)
		if message == "" {
			message = fmt.Sprintf("Action %s failed on %s", action.Name, path)
		}
		logger.Errorf("ManageIQ reported failure applying action: %s", message)
		return model.Result{}, &ActionError{
			Action:  action.Name,
			Path:    path,
			Message: message,
		}
	}

	logger.Info("Action applied")
	return model.Result{
		Changed: true,
		Object:  response,
	}, nil
}
