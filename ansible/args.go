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

package ansible

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"sort"
	"strings"

	"manageiq-vmdb/model"
	"manageiq-vmdb/vmdb"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const (
	ModuleName = "manageiq_vmdb"

	URLProperty      = "manageiq.url"
	UsernameProperty = "manageiq.username"
	PasswordProperty = "manageiq.password"
	TokenProperty    = "manageiq.token"

	HrefParam       = "href"
	VmdbParam       = "vmdb"
	ActionParam     = "action"
	DataParam       = "data"
	ConnectionParam = "manageiq_connection"

	checkModeParam = "_ansible_check_mode"
	noLogParam     = "_ansible_no_log"
	internalPrefix = "_ansible_"
	wrappedArgsKey = "ANSIBLE_MODULE_ARGS"
)

var moduleParams = map[string]bool{
	HrefParam:       true,
	VmdbParam:       true,
	ActionParam:     true,
	DataParam:       true,
	ConnectionParam: true,
}

var connectionOptions = map[string]bool{
	"url":                true,
	"username":           true,
	"password":           true,
	"token":              true,
	"automate_workspace": true,
	"group":              true,
	"X_MIQ_Group":        true,
	"verify_ssl":         true,
	"validate_certs":     true,
	"ca_bundle_path":     true,
}

// BindEnvironment makes the MIQ_* environment variables the defaults of the connection options
func BindEnvironment() {
	viper.BindEnv(URLProperty, "MIQ_URL")
	viper.BindEnv(UsernameProperty, "MIQ_USERNAME")
	viper.BindEnv(PasswordProperty, "MIQ_PASSWORD")
	viper.BindEnv(TokenProperty, "MIQ_TOKEN")
}

// ModuleArgs holds the arguments of a module invocation as passed by Ansible
type ModuleArgs struct {
	Params    map[string]interface{}
	CheckMode bool
	NoLog     bool
}

func argumentErrorf(format string, args ...interface{}) error {
	return &vmdb.ValidationError{Message: fmt.Sprintf(format, args...)}
}

// LoadArgsFile reads the arguments file that Ansible passes to binary modules
func LoadArgsFile(path string) (ModuleArgs, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return ModuleArgs{}, fmt.Errorf("Error reading module arguments from %s: %w", path, err)
	}
	return ParseArgs(raw)
}

// ParseArgs decodes a JSON object of module arguments. Internal _ansible_ keys are extracted and removed from the parameters.
func ParseArgs(raw []byte) (ModuleArgs, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var params map[string]interface{}
	if err := decoder.Decode(&params); err != nil {
		return ModuleArgs{}, argumentErrorf("Invalid module arguments: %s", err.Error())
	}

	if wrapped, ok := params[wrappedArgsKey].(map[string]interface{}); ok && len(params) == 1 {
		params = wrapped
	}

	return NewModuleArgs(params)
}

// NewModuleArgs builds the arguments from an already decoded object
func NewModuleArgs(params map[string]interface{}) (ModuleArgs, error) {
	args := ModuleArgs{
		Params: make(map[string]interface{}, len(params)),
	}

	for k, v := range params {
		if !strings.HasPrefix(k, internalPrefix) {
			args.Params[k] = v
			continue
		}

		var err error
		switch k {
		case checkModeParam:
			args.CheckMode, err = toBool(v)
		case noLogParam:
			args.NoLog, err = toBool(v)
		}
		if err != nil {
			return args, argumentErrorf("Invalid value for %s: %s", k, err.Error())
		}
	}

	return args, nil
}

func toBool(value interface{}) (bool, error) {
	if n, ok := value.(json.Number); ok {
		value = n.String()
	}

	if s, ok := value.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "yes", "y", "on":
			return true, nil
		case "no", "n", "off":
			return false, nil
		}
	}

	return cast.ToBoolE(value)
}

func unsupported(params map[string]interface{}, supported map[string]bool) []string {
	var result []string
	for k := range params {
		if !supported[k] {
			result = append(result, k)
		}
	}
	sort.Strings(result)
	return result
}

type options map[string]interface{}

func (o options) str(key, def string) (string, error) {
	value, ok := o[key]
	if !ok || value == nil {
		return def, nil
	}

	result, err := cast.ToStringE(value)
	if err != nil {
		return "", argumentErrorf("argument %s is of type %T and we were unable to convert to str", key, value)
	}
	return result, nil
}

func (o options) dict(key string) (map[string]interface{}, error) {
	value, ok := o[key]
	if !ok || value == nil {
		return nil, nil
	}

	result, err := cast.ToStringMapE(value)
	if err != nil {
		return nil, argumentErrorf("argument %s is of type %T and we were unable to convert to dict", key, value)
	}
	return result, nil
}

func (o options) boolean(key string, def bool) (bool, error) {
	value, ok := o[key]
	if !ok || value == nil {
		return def, nil
	}

	result, err := toBool(value)
	if err != nil {
		return def, argumentErrorf("argument %s is of type %T and we were unable to convert to bool", key, value)
	}
	return result, nil
}

func (o options) firstString(keys []string, def string) (string, error) {
	for _, key := range keys {
		value, err := o.str(key, "")
		if err != nil || value != "" {
			return value, err
		}
	}
	return def, nil
}

func connectionFromOptions(opts options) (model.ConnectionInfo, error) {
	var conn model.ConnectionInfo
	var err error

	if extra := unsupported(opts, connectionOptions); len(extra) > 0 {
		return conn, argumentErrorf("Unsupported parameters for (%s) module: %s found in %s", ModuleName, strings.Join(extra, ", "), ConnectionParam)
	}

	if conn.URL, err = opts.str("url", viper.GetString(URLProperty)); err != nil {
		return conn, err
	}
	if conn.Username, err = opts.str("username", viper.GetString(UsernameProperty)); err != nil {
		return conn, err
	}
	if conn.Password, err = opts.str("password", viper.GetString(PasswordProperty)); err != nil {
		return conn, err
	}
	if conn.Token, err = opts.str("token", viper.GetString(TokenProperty)); err != nil {
		return conn, err
	}
	if conn.Group, err = opts.firstString([]string{"group", "X_MIQ_Group"}, ""); err != nil {
		return conn, err
	}
	if conn.CABundlePath, err = opts.str("ca_bundle_path", ""); err != nil {
		return conn, err
	}

	verifyKey := "verify_ssl"
	if opts[verifyKey] == nil {
		verifyKey = "validate_certs"
	}
	if conn.VerifySSL, err = opts.boolean(verifyKey, true); err != nil {
		return conn, err
	}

	return conn, nil
}

// Request converts the module arguments into a request, applying types, aliases and environment defaults
func (a ModuleArgs) Request() (model.VmdbRequest, error) {
	var req model.VmdbRequest
	params := options(a.Params)

	if extra := unsupported(a.Params, moduleParams); len(extra) > 0 {
		return req, argumentErrorf("Unsupported parameters for (%s) module: %s", ModuleName, strings.Join(extra, ", "))
	}

	connection, err := params.dict(ConnectionParam)
	if err != nil {
		return req, err
	}
	if connection == nil {
		return req, argumentErrorf("missing required arguments: %s", ConnectionParam)
	}

	req.Connection, err = connectionFromOptions(options(connection))
	if err != nil {
		return req, err
	}

	if req.Reference.Href, err = params.str(HrefParam, ""); err != nil {
		return req, err
	}
	if req.Reference.Object, err = params.dict(VmdbParam); err != nil {
		return req, err
	}

	action, err := params.str(ActionParam, "")
	if err != nil {
		return req, err
	}

	data, err := params.dict(DataParam)
	if err != nil {
		return req, err
	}

	if action != "" {
		req.Action = &model.ActionRequest{
			Name: action,
			Data: data,
		}
	}

	req.CheckMode = a.CheckMode
	return req, nil
}
