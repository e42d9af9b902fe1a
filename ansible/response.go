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
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"manageiq-vmdb/manageiq"
	"manageiq-vmdb/model"
	"manageiq-vmdb/utils"

	"gopkg.in/yaml.v2"
)

const (
	JSONFormat = "json"
	YAMLFormat = "yaml"

	failedField     = "failed"
	msgField        = "msg"
	statusField     = "status"
	invocationField = "invocation"
	moduleArgsField = "module_args"
)

// Response is the document printed by the module once it finishes
type Response map[string]interface{}

func (a ModuleArgs) invocation() map[string]interface{} {
	return map[string]interface{}{
		moduleArgsField: utils.Redact(a.Params),
	}
}

// ExitResponse builds the response of a successful invocation
func ExitResponse(result model.Result, args ModuleArgs) Response {
	response := Response(result.Flatten())
	if !args.NoLog {
		response[invocationField] = args.invocation()
	}
	return response
}

// FailResponse builds the response of a failed invocation. API errors also report the HTTP status.
func FailResponse(err error, args ModuleArgs) Response {
	response := Response{
		failedField:        true,
		model.ChangedField: false,
		msgField:           err.Error(),
	}

	var apiErr *manageiq.APIError
	if errors.As(err, &apiErr) {
		response[statusField] = apiErr.Code
	}

	if !args.NoLog && args.Params != nil {
		response[invocationField] = args.invocation()
	}
	return response
}

// Failed returns true if the response reports a failure
func (r Response) Failed() bool {
	failed, _ := r[failedField].(bool)
	return failed
}

// Write prints the response in the given format followed by a new line
func (r Response) Write(w io.Writer, format string) error {
	switch format {
	case "", JSONFormat:
		return json.NewEncoder(w).Encode(map[string]interface{}(r))
	case YAMLFormat:
		out, err := yaml.Marshal(plain(map[string]interface{}(r)))
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	default:
		return fmt.Errorf("Unsupported output format %s", format)
	}
}

// plain replaces json.Number values so that YAML renders them as numbers instead of strings
func plain(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for k, item := range v {
			result[k] = plain(item)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = plain(item)
		}
		return result
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	default:
		return v
	}
}
