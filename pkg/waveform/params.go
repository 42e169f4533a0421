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

package waveform

import (
	"jinr.ru/greenlab/go-odmr/pkg/sequence"
)

// Kind selects the experiment and with it the sequence topology.
type Kind string

const (
	KindCW         Kind = "cw"
	KindPulsed     Kind = "pulsed"
	KindRamsey     Kind = "ramsey"
	KindRabi       Kind = "rabi"
	KindHahnEcho   Kind = "hahn-echo"
	KindNOrderDD   Kind = "dd"
	KindRelaxation Kind = "relaxation"
)

// Kinds returns all experiment kinds.
func Kinds() []Kind {
	return []Kind{KindCW, KindPulsed, KindRamsey, KindRabi, KindHahnEcho, KindNOrderDD, KindRelaxation}
}

// Domain is what the sweep axis of an experiment scans.
type Domain string

const (
	// FrequencyDomain experiments scan the MW frequency in Hz with a fixed sequence.
	FrequencyDomain Domain = "frequency"
	// TimeDomain experiments scan one duration in ns and rebuild the sequence per point.
	TimeDomain Domain = "time"
)

// Names of the timing parameters, used in errors and as sweep targets.
const (
	ParamN            = "n"
	ParamPeriod       = "period"
	ParamTInit        = "t_init"
	ParamInterInitMW  = "inter_init_mw"
	ParamTMW          = "t_mw"
	ParamTPi          = "t_pi"
	ParamTFree        = "t_free"
	ParamInterMWRead  = "inter_mw_read"
	ParamTReadSig     = "t_read_sig"
	ParamInterReadout = "inter_readout"
	ParamTReadRef     = "t_read_ref"
	ParamInterPeriod  = "inter_period"
	ParamOrder        = "order"
	ParamFrequency    = "frequency"
)

// Params are the timing parameters of one experiment. All durations
// are in ns. Each strategy reads the subset it needs.
type Params struct {
	N            int   `json:"n"`
	Period       int64 `json:"period,omitempty"`
	TInit        int64 `json:"t_init,omitempty"`
	InterInitMW  int64 `json:"inter_init_mw,omitempty"`
	TMW          int64 `json:"t_mw,omitempty"`
	TPi          int64 `json:"t_pi,omitempty"`
	TFree        int64 `json:"t_free,omitempty"`
	InterMWRead  int64 `json:"inter_mw_read,omitempty"`
	TReadSig     int64 `json:"t_read_sig,omitempty"`
	InterReadout int64 `json:"inter_readout,omitempty"`
	TReadRef     int64 `json:"t_read_ref,omitempty"`
	InterPeriod  int64 `json:"inter_period,omitempty"`
	Order        int   `json:"order,omitempty"`
	DualReadout  bool  `json:"dual_readout,omitempty"`
	LockIn       bool  `json:"lock_in,omitempty"`
}

// DefaultParams are typical values for an NV center setup.
func DefaultParams() Params {
	return Params{
		N:            100000,
		Period:       200000,
		TInit:        5000,
		InterInitMW:  1000,
		TMW:          800,
		TPi:          100,
		TFree:        1000,
		InterMWRead:  100,
		TReadSig:     400,
		InterReadout: 200,
		TReadRef:     400,
		InterPeriod:  200,
		Order:        1,
	}
}

// durations lists the named durations for negativity checks.
func (p Params) durations() []struct {
	name  string
	value int64
} {
	return []struct {
		name  string
		value int64
	}{
		{ParamPeriod, p.Period},
		{ParamTInit, p.TInit},
		{ParamInterInitMW, p.InterInitMW},
		{ParamTMW, p.TMW},
		{ParamTPi, p.TPi},
		{ParamTFree, p.TFree},
		{ParamInterMWRead, p.InterMWRead},
		{ParamTReadSig, p.TReadSig},
		{ParamInterReadout, p.InterReadout},
		{ParamTReadRef, p.TReadRef},
		{ParamInterPeriod, p.InterPeriod},
	}
}

// With returns a copy of the params where the named duration is set.
func (p Params) With(param string, value int64) (Params, error) {
	switch param {
	case ParamPeriod:
		p.Period = value
	case ParamTInit:
		p.TInit = value
	case ParamInterInitMW:
		p.InterInitMW = value
	case ParamTMW:
		p.TMW = value
	case ParamTPi:
		p.TPi = value
	case ParamTFree:
		p.TFree = value
	case ParamInterMWRead:
		p.InterMWRead = value
	case ParamTReadSig:
		p.TReadSig = value
	case ParamInterReadout:
		p.InterReadout = value
	case ParamTReadRef:
		p.TReadRef = value
	case ParamInterPeriod:
		p.InterPeriod = value
	default:
		return p, ErrConfiguration{Param: param, Value: value, What: "not a duration parameter"}
	}
	return p, nil
}

func (p Params) checkCommon() error {
	if p.N < 1 {
		return ErrConfiguration{Param: ParamN, Value: p.N, What: "repetition count must be at least 1"}
	}
	for _, d := range p.durations() {
		if d.value < 0 {
			return ErrConfiguration{Param: d.name, Value: d.value, What: "duration must not be negative"}
		}
	}
	return nil
}

// Layout tells the builder where each role is wired and which roles
// are driven TTL-low-active.
type Layout struct {
	Channels  sequence.ChannelMap    `json:"channels"`
	LowActive map[sequence.Role]bool `json:"low_active,omitempty"`
}

func DefaultLayout() Layout {
	return Layout{
		Channels:  sequence.DefaultChannelMap(),
		LowActive: map[sequence.Role]bool{},
	}
}

// IsLowActive ...
func (l Layout) IsLowActive(r sequence.Role) bool {
	return l.LowActive != nil && l.LowActive[r]
}

// Inactive returns the train that keeps the role inactive over the
// period, taking its polarity into account.
func (l Layout) Inactive(r sequence.Role, period int64) sequence.PulseTrain {
	if l.IsLowActive(r) {
		return sequence.On(period)
	}
	return sequence.Off()
}

// Active returns the train that keeps the role active over the period.
func (l Layout) Active(r sequence.Role, period int64) sequence.PulseTrain {
	if l.IsLowActive(r) {
		return sequence.FlipIn(sequence.On(period), period)
	}
	return sequence.On(period)
}

// DurationParams are the names accepted by With.
func DurationParams() []string {
	var names []string
	for _, d := range (Params{}).durations() {
		names = append(names, d.name)
	}
	return names
}
