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
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"manageiq-vmdb/ansible"
	"manageiq-vmdb/manageiq"
	"manageiq-vmdb/model"
	"manageiq-vmdb/restfrontend"
	"manageiq-vmdb/utils"
	"manageiq-vmdb/vmdb"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	LogLevelProperty     = "log.level"
	FrontendPortProperty = "frontend.port"

	ModuleLogLevelDefault = "warning"
	ServeLogLevelDefault  = "info"
	FrontendPortDefault   = "8080"

	serveCommand = "serve"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  %s [-o json|yaml] <args-file>   run as an Ansible module\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s serve [-port <port>]         serve the module over HTTP\n", os.Args[0])
}

func readConfiguration() {
	viper.SetDefault(FrontendPortProperty, FrontendPortDefault)
	manageiq.SetDefaults()

	configFolder, err := utils.ConfigurationFolder()
	if err != nil {
		log.WithError(err).Warn("Error getting configuration folder")
	} else {
		viper.AddConfigPath(configFolder)
	}
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.WithError(err).Warn("Error reading configuration file")
		}
	}

	ansible.BindEnvironment()
}

func configureLogging(defaultLevel string) {
	viper.SetDefault(LogLevelProperty, defaultLevel)
	log.SetOutput(os.Stderr)

	level, err := log.ParseLevel(viper.GetString(LogLevelProperty))
	if err != nil {
		log.WithError(err).Warnf("Invalid log level. Using %s", defaultLevel)
		level, _ = log.ParseLevel(defaultLevel)
	}
	log.SetLevel(level)
}

func clientFactory(logger *log.Entry) vmdb.ClientFactory {
	opts := manageiq.ConfiguredOptions()
	return func(conn model.ConnectionInfo) (vmdb.APIClient, error) {
		return manageiq.NewClient(conn, opts, logger)
	}
}

func runModule(args []string) int {
	flags := flag.NewFlagSet(ansible.ModuleName, flag.ContinueOnError)
	flags.Usage = usage
	format := flags.String("o", ansible.JSONFormat, "output format: json or yaml")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if flags.NArg() != 1 {
		usage()
		return 2
	}

	configureLogging(ModuleLogLevelDefault)
	logger := log.WithField("module", ansible.ModuleName)

	module := &ansible.Module{
		NewClient: clientFactory(logger),
		Output:    os.Stdout,
		Format:    *format,
		Logger:    logger,
	}

	return module.Run(context.Background(), flags.Arg(0))
}

func runServer(args []string) int {
	flags := flag.NewFlagSet(serveCommand, flag.ContinueOnError)
	flags.Usage = usage
	port := flags.String("port", "", "port to listen on")
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if *port != "" {
		viper.Set(FrontendPortProperty, *port)
	}

	configureLogging(ServeLogLevelDefault)
	logger := log.WithField("frontend", "rest")

	var frontend model.Frontend = restfrontend.New(clientFactory(logger))
	addr := ":" + viper.GetString(FrontendPortProperty)
	logger.Infof("Listening on %s", addr)
	if err := frontend.Run(addr); err != nil {
		logger.WithError(err).Error("Error running frontend")
		return 1
	}
	return 0
}

func main() {
	readConfiguration()

	if len(os.Args) > 1 && os.Args[1] == serveCommand {
		os.Exit(runServer(os.Args[2:]))
	}

	os.Exit(runModule(os.Args[1:]))
}
