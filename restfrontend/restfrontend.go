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
package restfrontend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"manageiq-vmdb/ansible"
	"manageiq-vmdb/manageiq"
	"manageiq-vmdb/metrics"
	"manageiq-vmdb/model"
	"manageiq-vmdb/vmdb"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const requestIDHeader = "X-Request-ID"

type App struct {
	Router    *mux.Router
	NewClient vmdb.ClientFactory
}

func New(newClient vmdb.ClientFactory) *App {
	result := App{
		Router:    mux.NewRouter(),
		NewClient: newClient,
	}
	result.initializeRoutes()
	return &result
}

func (a App) Run(addr string) error {
	return http.ListenAndServe(addr, a.Router)
}

func (a *App) initializeRoutes() {
	a.Router.HandleFunc("/vmdb", a.InvokeVmdb).Methods(http.MethodPost)
	a.Router.HandleFunc("/health", a.Health).Methods(http.MethodGet)
	a.Router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

func (a *App) ReadBody(r *http.Request, result interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(result); err != nil {
		log.WithError(err).Error("Error deserializing module arguments")
		return fmt.Errorf("Invalid payload: %s", err.Error())
	}
	return nil
}

func statusFor(err error) int {
	switch vmdb.ErrorKind(err) {
	case vmdb.ValidationKind:
		return http.StatusBadRequest
	case vmdb.TransportErrorKind:
		return http.StatusBadGateway
	}

	if errors.Is(err, vmdb.ErrActionNotFound) {
		return http.StatusUnprocessableEntity
	}

	var actionErr *vmdb.ActionError
	if errors.As(err, &actionErr) {
		return http.StatusUnprocessableEntity
	}

	var apiErr *manageiq.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return http.StatusNotFound
	}

	return http.StatusBadGateway
}

func (a *App) InvokeVmdb(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	start := time.Now()

	requestID := r.Header.Get(requestIDHeader)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	w.Header().Set(requestIDHeader, requestID)
	logger := log.WithField("request", requestID)

	var params map[string]interface{}
	if err := a.ReadBody(r, &params); err != nil {
		metrics.ObserveRequest("unknown", vmdb.ValidationKind, time.Since(start))
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	args, err := ansible.NewModuleArgs(params)
	var req model.VmdbRequest
	if err == nil {
		req, err = args.Request()
	}
	if err != nil {
		logger.WithError(err).Error("Invalid module arguments")
		metrics.ObserveRequest("unknown", vmdb.ErrorKind(err), time.Since(start))
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	logger = logger.WithField("operation", req.Operation())
	result, err := vmdb.Invoke(r.Context(), logger, req, a.NewClient)
	metrics.ObserveRequest(req.Operation(), vmdb.ErrorKind(err), time.Since(start))
	if err != nil {
		RespondWithJSON(w, statusFor(err), ansible.FailResponse(err, args))
		return
	}

	RespondWithJSON(w, http.StatusOK, ansible.ExitResponse(result, args))
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]string{"error": message})
}

func Respond(w http.ResponseWriter, code int, payload []byte, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(code)
	w.Write(payload)
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	Respond(w, code, response, "application/json")
}
