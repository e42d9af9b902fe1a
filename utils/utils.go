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

package utils

import (
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
)

const (
	configFolderName = ".manageiq-vmdb"

	// NoLogValue replaces the value of secret parameters in anything that is logged or returned
	NoLogValue = "VALUE_SPECIFIED_IN_NO_LOG_PARAMETER"
)

// SecretParameters are the connection options that must never be logged
var SecretParameters = []string{"password", "token"}

// ConfigurationFolder returns the folder where the configuration file is looked up
func ConfigurationFolder() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFolderName), nil
}

// Redact returns a deep copy of the parameters where every secret parameter, at any level, is replaced by NoLogValue
func Redact(params map[string]interface{}) map[string]interface{} {
	if params == nil {
		return nil
	}

	result := make(map[string]interface{}, len(params))
	for k, v := range params {
		if isSecret(k) && v != nil {
			result[k] = NoLogValue
			continue
		}
		result[k] = redactValue(v)
	}
	return result
}

func redactValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return Redact(v)
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = redactValue(item)
		}
		return result
	default:
		return v
	}
}

func isSecret(key string) bool {
	for _, secret := range SecretParameters {
		if key == secret {
			return true
		}
	}
	return false
}
