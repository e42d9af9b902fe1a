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

package model

import (
	"strings"
)

const (
	BasicAuthType = "basic"
	TokenAuthType = "token"

	// RawSlugMarker prefixes an href that must be used verbatim as the resource path
	RawSlugMarker = "href_slug::"

	// APIPrefix is the path of the ManageIQ REST API relative to the appliance URL
	APIPrefix = "/api"

	// ActionField is the key of the action name in the body of an action request
	ActionField = "action"

	// ChangedField is the key of the changed flag in a result
	ChangedField = "changed"
)

// ConnectionInfo describes how to reach and authenticate against a ManageIQ appliance. It's built fresh for every invocation and never saved.
// swagger:model
type ConnectionInfo struct {
	// Base URL of the appliance, without the /api suffix
	// required:true
	// example: https://miq.example.com
	URL string `json:"url"`
	// Username for basic authentication. Required unless a token is given.
	Username string `json:"username"`
	// Password for basic authentication. Required unless a token is given.
	Password string `json:"-"`
	// Authentication token. When present it's used instead of username and password.
	Token string `json:"-"`
	// Group to run the request as. Sent in the X-MIQ-Group header.
	Group string `json:"group,omitempty"`
	// Whether to validate the TLS certificate of the appliance
	VerifySSL bool `json:"verify_ssl"`
	// Path to a PEM bundle with extra certificate authorities to trust
	CABundlePath string `json:"ca_bundle_path,omitempty"`
}

// AuthType returns the authentication scheme that will be used with this connection
func (c ConnectionInfo) AuthType() string {
	if c.Token != "" {
		return TokenAuthType
	}
	return BasicAuthType
}

// APIURL returns the root of the REST API for this connection
func (c ConnectionInfo) APIURL() string {
	return strings.TrimSuffix(c.URL, "/") + APIPrefix
}

// ObjectReference identifies a VMDB object. Only one of Href or Object must be set.
// swagger:model
type ObjectReference struct {
	// Path of the resource relative to the API root, optionally prefixed by the raw slug marker
	// example: href_slug::services/80
	Href string `json:"href,omitempty"`
	// A representation previously returned by the API. Its href field is used to locate it.
	Object map[string]interface{} `json:"vmdb,omitempty"`
}

// IsEmpty returns true if no reference has been set
func (r ObjectReference) IsEmpty() bool {
	return r.Href == "" && r.Object == nil
}

// ActionRequest is a named operation to run on a resource with its payload
// swagger:model
type ActionRequest struct {
	// Name of the action as advertised by the resource
	// required:true
	// example: add_provider_vms
	Name string `json:"action"`
	// Payload of the action. It's merged at the top level of the request body.
	// required:true
	Data map[string]interface{} `json:"data"`
}

// Body builds the JSON body to post for this action. The action name takes precedence over a payload key with the same name.
func (a ActionRequest) Body() map[string]interface{} {
	body := make(map[string]interface{}, len(a.Data)+1)
	for k, v := range a.Data {
		body[k] = v
	}
	body[ActionField] = a.Name
	return body
}

// VmdbRequest is a single invocation of the module
// swagger:model
type VmdbRequest struct {
	Connection ConnectionInfo  `json:"manageiq_connection"`
	Reference  ObjectReference `json:"reference"`
	// Optional action to apply. If nil the object is only fetched.
	Action *ActionRequest `json:"action,omitempty"`
	// When true, actions are validated but not posted
	CheckMode bool `json:"check_mode"`
}

// Operation returns a short name of what the request does, used for logging and metrics
func (r VmdbRequest) Operation() string {
	if r.Action != nil {
		return "action"
	}
	return "get"
}

// Result is the outcome of an invocation
// swagger:model
type Result struct {
	// True if a mutating action was applied
	Changed bool `json:"changed"`
	// Representation returned by the API
	Object map[string]interface{} `json:"object"`
}

// Flatten returns the result as the module reports it: the resource fields at the top level plus the changed flag
func (r Result) Flatten() map[string]interface{} {
	flat := make(map[string]interface{}, len(r.Object)+1)
	for k, v := range r.Object {
		flat[k] = v
	}
	flat[ChangedField] = r.Changed
	return flat
}

// Frontend is the interface that must be implemented for any frontend that will serve an API around the module
type Frontend interface {
	Run(addr string) error
}
