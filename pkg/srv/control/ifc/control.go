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

package ifc

import (
	"context"

	"jinr.ru/greenlab/go-odmr/pkg/scheduler"
	"jinr.ru/greenlab/go-odmr/pkg/sequence"
	"jinr.ru/greenlab/go-odmr/pkg/store"
	"jinr.ru/greenlab/go-odmr/pkg/waveform"
)

// SweepRequest starts a named sweep. WithRef overrides the configured
// default when set.
type SweepRequest struct {
	Name    string             `json:"name"`
	Axis    scheduler.AxisSpec `json:"axis"`
	WithRef *bool              `json:"with_ref,omitempty"`
}

// SweepStarted is returned once a sweep has been launched.
type SweepStarted struct {
	Name     string  `json:"name"`
	Points   int     `json:"points"`
	Estimate float64 `json:"estimate"`
}

// State is the server view for clients.
type State struct {
	scheduler.Status
	Sweep     string     `json:"sweep,omitempty"`
	LastRun   *store.Run `json:"last_run,omitempty"`
	Simulated bool       `json:"simulated"`
}

type ControlServer interface {
	Run() error
	Close() error

	Configure(ctx context.Context, kind waveform.Kind, p waveform.Params) error
	StartSweep(req SweepRequest) (*SweepStarted, error)
	StopSweep(ctx context.Context) error
	RunPoint(ctx context.Context, value, power float64) ([]float64, error)
	State() State
	Sequence() (*sequence.Set, error)

	SetFrequency(ctx context.Context, hz float64) error
	SetPower(ctx context.Context, dbm float64) error
	SetChannel(ctx context.Context, role sequence.Role, on bool) error

	PiPulse() waveform.PiPulse
	SetPiPulse(ctx context.Context, pi waveform.PiPulse) error
	RegulatePi(ctx context.Context, duration float64) (waveform.PiPulse, error)

	Runs() ([]store.Run, error)
	GetRun(id string) (*store.Run, error)
}

type ApiServer interface {
	Run() error
}
