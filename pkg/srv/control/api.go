/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

// go-odmr API
//
// RESTful API to configure and run ODMR measurements.
//
//	Consumes:
//	- application/json
//
//	Produces:
//	- application/json
package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"jinr.ru/greenlab/go-odmr/pkg/config"
	"jinr.ru/greenlab/go-odmr/pkg/device"
	"jinr.ru/greenlab/go-odmr/pkg/log"
	"jinr.ru/greenlab/go-odmr/pkg/scheduler"
	"jinr.ru/greenlab/go-odmr/pkg/sequence"
	"jinr.ru/greenlab/go-odmr/pkg/srv"
	"jinr.ru/greenlab/go-odmr/pkg/srv/control/ifc"
	"jinr.ru/greenlab/go-odmr/pkg/store"
	"jinr.ru/greenlab/go-odmr/pkg/waveform"
)

type ConfigureRequest struct {
	Kind   waveform.Kind   `json:"kind"`
	Params waveform.Params `json:"params"`
}

type PointRequest struct {
	Value float64 `json:"value"`
	Power float64 `json:"power"`
}

type PointResponse struct {
	Counts []float64 `json:"counts"`
}

// MWSetup changes only what is set.
type MWSetup struct {
	Frequency *float64 `json:"frequency,omitempty"`
	Power     *float64 `json:"power,omitempty"`
}

type RegulateRequest struct {
	Duration float64 `json:"duration"`
}

type SequenceView struct {
	Channels sequence.ChannelMap `json:"channels"`
	Trains   [][]int64           `json:"trains"`
	Period   int64               `json:"period"`
	Chart    string              `json:"chart"`
}

func NewSequenceView(set *sequence.Set) (*SequenceView, error) {
	n := set.Normalized()
	period, err := n.Period()
	if err != nil {
		return nil, err
	}
	return &SequenceView{
		Channels: n.Channels,
		Trains:   n.Lists(),
		Period:   period,
		Chart:    sequence.Render(n, sequence.DefaultRenderCols),
	}, nil
}

type ApiServer struct {
	context.Context
	*config.Config
	*mux.Router
	ctrl ifc.ControlServer
}

var _ ifc.ApiServer = &ApiServer{}

func NewApiServer(ctx context.Context, cfg *config.Config, ctrl ifc.ControlServer) *ApiServer {
	s := &ApiServer{
		Context: ctx,
		Config:  cfg,
		ctrl:    ctrl,
	}
	s.configureRouter()
	return s
}

// Handler is the router wrapped with access logging and panic recovery.
func (s *ApiServer) Handler() http.Handler {
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(log.Logger()),
		handlers.PrintRecoveryStack(true),
	)
	return handlers.LoggingHandler(log.Logger().Writer(), recovery(s.Router))
}

func (s *ApiServer) Run() error {
	log.Info("Starting API server: address: %s", s.Config.Api.Address())
	httpServer := &http.Server{
		Handler: s.Handler(),
		Addr:    s.Config.Api.Address(),
	}
	return httpServer.ListenAndServe()
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	subRouter := s.Router.PathPrefix(ApiPrefix).Subrouter()
	subRouter.HandleFunc("/configure", s.handleConfigure()).Methods("POST")
	subRouter.HandleFunc("/sweep/{action:start|stop}", s.handleSweep()).Methods("POST")
	subRouter.HandleFunc("/point", s.handlePoint()).Methods("POST")
	subRouter.HandleFunc("/state", s.handleState()).Methods("GET")
	subRouter.HandleFunc("/sequence", s.handleSequence()).Methods("GET")
	subRouter.HandleFunc("/mw", s.handleMW()).Methods("POST")
	subRouter.HandleFunc("/channel/{role}/{state:on|off}", s.handleChannel()).Methods("POST")
	subRouter.HandleFunc("/pipulse", s.handlePiPulseGet()).Methods("GET")
	subRouter.HandleFunc("/pipulse", s.handlePiPulseSet()).Methods("POST")
	subRouter.HandleFunc("/pipulse/regulate", s.handlePiPulseRegulate()).Methods("POST")
	subRouter.HandleFunc("/runs", s.handleRuns()).Methods("GET")
	subRouter.HandleFunc("/runs/{id}", s.handleRun()).Methods("GET")
}

// statusCode maps an error to the HTTP status returned to clients.
func statusCode(err error) int {
	switch {
	case errors.As(err, &waveform.ErrConfiguration{}),
		errors.As(err, &waveform.ErrUnknownKind{}),
		errors.As(err, &sequence.ErrInvalidSequence{}),
		errors.As(err, &sequence.ErrUnknownRole{}):
		return http.StatusBadRequest
	case errors.As(err, &scheduler.ErrInvalidState{}),
		errors.As(err, &scheduler.ErrAlreadyClosed{}),
		errors.As(err, &srv.ErrSweepRunning{}),
		errors.As(err, &device.ErrNoSequence{}):
		return http.StatusConflict
	case errors.As(err, &store.ErrNotFound{}):
		return http.StatusNotFound
	case errors.As(err, &device.ErrDeviceTimeout{}):
		return http.StatusGatewayTimeout
	case errors.As(err, &device.ErrDeviceConnection{}):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func fail(w http.ResponseWriter, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		log.Error("Request failed: %s", err)
	}
	http.Error(w, err.Error(), code)
}

func reply(w http.ResponseWriter, v interface{}) {
	replyStatus(w, http.StatusOK, v)
}

func replyStatus(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Encoding response: %s", err)
	}
}

func (s *ApiServer) handleConfigure() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := &ConfigureRequest{Params: waveform.DefaultParams()}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Debug("Handling configure request: kind: %s params: %+v", req.Kind, req.Params)
		if err := s.ctrl.Configure(r.Context(), req.Kind, req.Params); err != nil {
			fail(w, err)
			return
		}
		reply(w, s.ctrl.State())
	}
}

func (s *ApiServer) handleSweep() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		log.Debug("Handling sweep request: action: %s", vars["action"])
		switch vars["action"] {
		case ActionStart:
			req := &ifc.SweepRequest{}
			if err := json.NewDecoder(r.Body).Decode(req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			started, err := s.ctrl.StartSweep(*req)
			if err != nil {
				fail(w, err)
				return
			}
			replyStatus(w, http.StatusAccepted, started)
		case ActionStop:
			if err := s.ctrl.StopSweep(r.Context()); err != nil {
				fail(w, err)
				return
			}
			reply(w, s.ctrl.State())
		default:
			err := srv.ErrUnknownOperation{What: "sweep action must be one of start/stop"}
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
}

func (s *ApiServer) handlePoint() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := &PointRequest{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		counts, err := s.ctrl.RunPoint(r.Context(), req.Value, req.Power)
		if err != nil {
			fail(w, err)
			return
		}
		reply(w, &PointResponse{Counts: counts})
	}
}

func (s *ApiServer) handleState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply(w, s.ctrl.State())
	}
}

func (s *ApiServer) handleSequence() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		set, err := s.ctrl.Sequence()
		if err != nil {
			fail(w, err)
			return
		}
		view, err := NewSequenceView(set)
		if err != nil {
			fail(w, err)
			return
		}
		reply(w, view)
	}
}

func (s *ApiServer) handleMW() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setup := &MWSetup{}
		if err := json.NewDecoder(r.Body).Decode(setup); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if setup.Frequency != nil {
			if err := s.ctrl.SetFrequency(r.Context(), *setup.Frequency); err != nil {
				fail(w, err)
				return
			}
		}
		if setup.Power != nil {
			if err := s.ctrl.SetPower(r.Context(), *setup.Power); err != nil {
				fail(w, err)
				return
			}
		}
		reply(w, s.ctrl.State())
	}
}

func (s *ApiServer) handleChannel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		log.Debug("Handling channel request: role: %s state: %s", vars["role"], vars["state"])
		err := s.ctrl.SetChannel(r.Context(), sequence.Role(vars["role"]), vars["state"] == StateOn)
		if err != nil {
			fail(w, err)
			return
		}
		reply(w, s.ctrl.State())
	}
}

func (s *ApiServer) handlePiPulseGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply(w, s.ctrl.PiPulse())
	}
}

func (s *ApiServer) handlePiPulseSet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pi := waveform.PiPulse{}
		if err := json.NewDecoder(r.Body).Decode(&pi); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.ctrl.SetPiPulse(r.Context(), pi); err != nil {
			fail(w, err)
			return
		}
		reply(w, s.ctrl.PiPulse())
	}
}

func (s *ApiServer) handlePiPulseRegulate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := &RegulateRequest{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		pi, err := s.ctrl.RegulatePi(r.Context(), req.Duration)
		if err != nil {
			fail(w, err)
			return
		}
		reply(w, pi)
	}
}

func (s *ApiServer) handleRuns() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runs, err := s.ctrl.Runs()
		if err != nil {
			fail(w, err)
			return
		}
		if runs == nil {
			runs = []store.Run{}
		}
		reply(w, runs)
	}
}

func (s *ApiServer) handleRun() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := s.ctrl.GetRun(mux.Vars(r)["id"])
		if err != nil {
			fail(w, err)
			return
		}
		reply(w, run)
	}
}
