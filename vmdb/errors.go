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
	"errors"
	"fmt"

	"manageiq-vmdb/manageiq"
)

const (
	SuccessKind        = "success"
	ValidationKind     = "validation_error"
	APIErrorKind       = "api_error"
	TransportErrorKind = "transport_error"
)

// ErrActionNotFound is returned when the requested action isn't advertised by the resource
var ErrActionNotFound = errors.New("Action not found")

// ValidationError is returned when the arguments of an invocation are inconsistent. It's always detected before any request is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ActionError is returned when the API accepted an action request but reported it as unsuccessful
type ActionError struct {
	Action  string
	Path    string
	Message string
}

func (e *ActionError) Error() string {
	return e.Message
}

// ErrorKind classifies an error returned by this package
func ErrorKind(err error) string {
	if err == nil {
		return SuccessKind
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return ValidationKind
	}

	var transportErr *manageiq.TransportError
	if errors.As(err, &transportErr) {
		return TransportErrorKind
	}

	return APIErrorKind
}
