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
	"context"
	"io"

	"manageiq-vmdb/vmdb"

	log "github.com/sirupsen/logrus"
)

// Module runs the manageiq_vmdb module as an Ansible binary module
type Module struct {
	NewClient vmdb.ClientFactory
	Output    io.Writer
	Format    string
	Logger    *log.Entry
}

func (m *Module) write(response Response) int {
	if err := response.Write(m.Output, m.Format); err != nil {
		m.Logger.WithError(err).Error("Error writing module response")
		return 1
	}
	if response.Failed() {
		return 1
	}
	return 0
}

// Run executes the invocation described by the arguments file and writes its response. It returns the process exit code.
func (m *Module) Run(ctx context.Context, argsPath string) int {
	args, err := LoadArgsFile(argsPath)
	if err != nil {
		m.Logger.WithError(err).Error("Error loading module arguments")
		return m.write(FailResponse(err, args))
	}

	return m.write(m.Execute(ctx, args))
}

// Execute runs an invocation from already parsed arguments
func (m *Module) Execute(ctx context.Context, args ModuleArgs) Response {
	req, err := args.Request()
	if err != nil {
		m.Logger.WithError(err).Error("Invalid module arguments")
		return FailResponse(err, args)
	}

	logger := m.Logger.WithField("operation", req.Operation())
	if req.CheckMode {
		logger = logger.WithField("check_mode", true)
	}

	result, err := vmdb.Invoke(ctx, logger, req, m.NewClient)
	if err != nil {
		return FailResponse(err, args)
	}

	if !args.NoLog {
		logger.WithField("changed", result.Changed).Debug("Module finished")
	}
	return ExitResponse(result, args)
}
