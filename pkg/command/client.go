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

package command

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/imroc/req"
	"github.com/pkg/errors"

	"jinr.ru/greenlab/go-odmr/pkg/config"
	"jinr.ru/greenlab/go-odmr/pkg/scheduler"
	"jinr.ru/greenlab/go-odmr/pkg/srv/control"
	"jinr.ru/greenlab/go-odmr/pkg/srv/control/ifc"
	"jinr.ru/greenlab/go-odmr/pkg/store"
	"jinr.ru/greenlab/go-odmr/pkg/waveform"
)

// ErrApi is a non 2xx answer of the server.
type ErrApi struct {
	Status  int
	Message string
}

func (e ErrApi) Error() string {
	return fmt.Sprintf("%s: %s", http.StatusText(e.Status), e.Message)
}

type ApiClient struct {
	*config.Config
	ApiPrefix string
}

func NewApiClient(cfg *config.Config) *ApiClient {
	return NewApiClientFor(cfg, fmt.Sprintf("http://%s%s", cfg.Api.Address(), control.ApiPrefix))
}

// NewApiClientFor talks to the API under prefix.
func NewApiClientFor(cfg *config.Config, prefix string) *ApiClient {
	return &ApiClient{
		Config:    cfg,
		ApiPrefix: strings.TrimRight(prefix, "/"),
	}
}

func (c *ApiClient) url(format string, a ...interface{}) string {
	return c.ApiPrefix + fmt.Sprintf(format, a...)
}

// check turns a failed answer into ErrApi and decodes a good one into v.
func check(r *req.Resp, err error, v interface{}) error {
	if err != nil {
		return err
	}
	code := r.Response().StatusCode
	if code < 200 || code >= 300 {
		return ErrApi{Status: code, Message: strings.TrimSpace(r.String())}
	}
	if v == nil {
		return nil
	}
	return errors.Wrap(r.ToJSON(v), "decoding response")
}

func (c *ApiClient) Configure(kind waveform.Kind, p waveform.Params) (*ifc.State, error) {
	state := &ifc.State{}
	r, err := req.Post(c.url("/configure"), req.BodyJSON(&control.ConfigureRequest{Kind: kind, Params: p}))
	if err := check(r, err, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (c *ApiClient) SweepStart(sweep ifc.SweepRequest) (*ifc.SweepStarted, error) {
	started := &ifc.SweepStarted{}
	r, err := req.Post(c.url("/sweep/%s", control.ActionStart), req.BodyJSON(&sweep))
	if err := check(r, err, started); err != nil {
		return nil, err
	}
	return started, nil
}

func (c *ApiClient) SweepStop() (*ifc.State, error) {
	state := &ifc.State{}
	r, err := req.Post(c.url("/sweep/%s", control.ActionStop))
	if err := check(r, err, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (c *ApiClient) Point(value, power float64) ([]float64, error) {
	resp := &control.PointResponse{}
	r, err := req.Post(c.url("/point"), req.BodyJSON(&control.PointRequest{Value: value, Power: power}))
	if err := check(r, err, resp); err != nil {
		return nil, err
	}
	return resp.Counts, nil
}

func (c *ApiClient) State() (*ifc.State, error) {
	state := &ifc.State{}
	r, err := req.Get(c.url("/state"))
	if err := check(r, err, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (c *ApiClient) Sequence() (*control.SequenceView, error) {
	view := &control.SequenceView{}
	r, err := req.Get(c.url("/sequence"))
	if err := check(r, err, view); err != nil {
		return nil, err
	}
	return view, nil
}

func (c *ApiClient) MW(setup control.MWSetup) (*ifc.State, error) {
	state := &ifc.State{}
	r, err := req.Post(c.url("/mw"), req.BodyJSON(&setup))
	if err := check(r, err, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (c *ApiClient) Channel(role string, on bool) error {
	state := control.StateOff
	if on {
		state = control.StateOn
	}
	r, err := req.Post(c.url("/channel/%s/%s", role, state))
	return check(r, err, nil)
}

func (c *ApiClient) PiPulse() (*waveform.PiPulse, error) {
	pi := &waveform.PiPulse{}
	r, err := req.Get(c.url("/pipulse"))
	if err := check(r, err, pi); err != nil {
		return nil, err
	}
	return pi, nil
}

func (c *ApiClient) SetPiPulse(pi waveform.PiPulse) (*waveform.PiPulse, error) {
	back := &waveform.PiPulse{}
	r, err := req.Post(c.url("/pipulse"), req.BodyJSON(&pi))
	if err := check(r, err, back); err != nil {
		return nil, err
	}
	return back, nil
}

func (c *ApiClient) RegulatePi(duration float64) (*waveform.PiPulse, error) {
	pi := &waveform.PiPulse{}
	r, err := req.Post(c.url("/pipulse/regulate"), req.BodyJSON(&control.RegulateRequest{Duration: duration}))
	if err := check(r, err, pi); err != nil {
		return nil, err
	}
	return pi, nil
}

func (c *ApiClient) Runs() ([]store.Run, error) {
	var runs []store.Run
	r, err := req.Get(c.url("/runs"))
	if err := check(r, err, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func (c *ApiClient) Run(id string) (*store.Run, error) {
	run := &store.Run{}
	r, err := req.Get(c.url("/runs/%s", id))
	if err := check(r, err, run); err != nil {
		return nil, err
	}
	return run, nil
}

// Axis is a helper for CLI flags.
func Axis(start, stop, step float64, count int, list []float64) scheduler.AxisSpec {
	switch {
	case len(list) > 0:
		return scheduler.AxisSpec{Mode: scheduler.AxisModeList, List: list}
	case count > 0:
		return scheduler.AxisSpec{Mode: scheduler.AxisModeCount, Start: start, Stop: stop, Count: count}
	}
	return scheduler.AxisSpec{Mode: scheduler.AxisModeRange, Start: start, Stop: stop, Step: step}
}
