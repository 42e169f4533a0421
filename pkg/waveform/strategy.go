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

// Strategy turns Params into the timeline of one experiment kind.
type Strategy interface {
	Kind() Kind
	Domain() Domain
	// SweepParam is the duration scanned by a time-domain sweep, or
	// ParamFrequency for frequency-domain experiments.
	SweepParam() string
	// NeedsPi reports whether the timeline uses the calibrated π pulse.
	NeedsPi() bool
	// Roles are the roles the timeline drives and which must be wired.
	Roles(p Params) []sequence.Role
	Check(p Params) error
	Timeline(p Params) Timeline
}

// New returns the strategy for an experiment kind.
func New(kind Kind) (Strategy, error) {
	switch kind {
	case KindCW:
		return cw{}, nil
	case KindPulsed:
		return pulsed{}, nil
	case KindRabi:
		return rabi{}, nil
	case KindRamsey:
		return ramsey{}, nil
	case KindHahnEcho:
		return dd{hahn: true}, nil
	case KindNOrderDD:
		return dd{}, nil
	case KindRelaxation:
		return relaxation{}, nil
	}
	return nil, ErrUnknownKind{Kind: string(kind)}
}

// WithSweepValue returns params with the swept duration set to v.
func WithSweepValue(s Strategy, p Params, v int64) (Params, error) {
	if s.Domain() != TimeDomain {
		return p, ErrConfiguration{Param: s.SweepParam(), Value: v, What: "sequence does not depend on the swept value"}
	}
	if v < 0 {
		return p, ErrConfiguration{Param: s.SweepParam(), Value: v, What: "duration must not be negative"}
	}
	return p.With(s.SweepParam(), v)
}

var (
	laserOnly  = []sequence.Role{sequence.RoleLaser}
	mwOnly     = []sequence.Role{sequence.RoleMW}
	readWindow = []sequence.Role{sequence.RoleLaser, sequence.RoleTagger}
)

// cw keeps laser and MW on for the whole period; in lock-in mode the
// MW is chopped at half the period and the sync channel follows it.
type cw struct{}

func (cw) Kind() Kind         { return KindCW }
func (cw) Domain() Domain     { return FrequencyDomain }
func (cw) SweepParam() string { return ParamFrequency }
func (cw) NeedsPi() bool      { return false }

func (cw) Roles(p Params) []sequence.Role {
	if p.LockIn {
		return []sequence.Role{sequence.RoleLaser, sequence.RoleMW, sequence.RoleSync}
	}
	return []sequence.Role{sequence.RoleLaser, sequence.RoleMW}
}

func (cw) Check(p Params) error {
	if err := p.checkCommon(); err != nil {
		return err
	}
	if p.Period == 0 {
		return ErrConfiguration{Param: ParamPeriod, Value: p.Period, What: "period must be positive"}
	}
	return nil
}

func (cw) Timeline(p Params) Timeline {
	if p.LockIn {
		return Timeline{
			{"mw-on", p.Period, []sequence.Role{sequence.RoleLaser, sequence.RoleMW, sequence.RoleSync}},
			{"mw-off", p.Period, laserOnly},
		}
	}
	return Timeline{
		{"cw", p.Period, []sequence.Role{sequence.RoleLaser, sequence.RoleMW}},
	}
}

// checkPulsed holds the rules shared by every laser-MW-readout kind.
func checkPulsed(p Params) error {
	if err := p.checkCommon(); err != nil {
		return err
	}
	if p.LockIn {
		return ErrConfiguration{Param: "lock_in", Value: true, What: "lock-in detection needs a cw sequence"}
	}
	if p.TInit == 0 {
		return ErrConfiguration{Param: ParamTInit, Value: p.TInit, Role: sequence.RoleLaser, What: "laser initialization must be positive"}
	}
	if p.TReadSig == 0 {
		return ErrConfiguration{Param: ParamTReadSig, Value: p.TReadSig, Role: sequence.RoleTagger, What: "readout window must be positive"}
	}
	if p.DualReadout && p.TReadRef == 0 {
		return ErrConfiguration{Param: ParamTReadRef, Value: p.TReadRef, Role: sequence.RoleTagger, What: "dual readout needs a reference window"}
	}
	return nil
}

func checkPi(p Params, half bool) error {
	if p.TPi <= 0 {
		return ErrConfiguration{Param: ParamTPi, Value: p.TPi, Role: sequence.RoleMW, What: "π pulse is not calibrated"}
	}
	if half && p.TPi < 2 {
		return ErrConfiguration{Param: ParamTPi, Value: p.TPi, Role: sequence.RoleMW, What: "π/2 pulse would be zero wide"}
	}
	return nil
}

func pulsedRoles(Params) []sequence.Role {
	return []sequence.Role{sequence.RoleLaser, sequence.RoleMW, sequence.RoleTagger}
}

// pulsedTimeline wraps the MW block with laser initialization and the
// readout window(s).
func pulsedTimeline(p Params, mw ...Slot) Timeline {
	tl := Timeline{
		{"init", p.TInit, laserOnly},
		{"inter-init-mw", p.InterInitMW, nil},
	}
	tl = append(tl, mw...)
	tl = append(tl,
		Slot{"inter-mw-read", p.InterMWRead, nil},
		Slot{"read-sig", p.TReadSig, readWindow},
	)
	if p.DualReadout {
		tl = append(tl,
			Slot{"inter-readout", p.InterReadout, laserOnly},
			Slot{"read-ref", p.TReadRef, readWindow},
		)
	}
	return append(tl, Slot{"inter-period", p.InterPeriod, nil})
}

// pulsed is pulsed ODMR: one MW pulse of fixed width per period while
// the frequency is scanned.
type pulsed struct{}

func (pulsed) Kind() Kind                     { return KindPulsed }
func (pulsed) Domain() Domain                 { return FrequencyDomain }
func (pulsed) SweepParam() string             { return ParamFrequency }
func (pulsed) NeedsPi() bool                  { return false }
func (pulsed) Roles(p Params) []sequence.Role { return pulsedRoles(p) }

func (pulsed) Check(p Params) error {
	if err := checkPulsed(p); err != nil {
		return err
	}
	if p.TMW == 0 {
		return ErrConfiguration{Param: ParamTMW, Value: p.TMW, Role: sequence.RoleMW, What: "MW pulse must be positive"}
	}
	return nil
}

func (pulsed) Timeline(p Params) Timeline {
	return pulsedTimeline(p, Slot{"mw", p.TMW, mwOnly})
}

// rabi scans the MW pulse width.
type rabi struct{}

func (rabi) Kind() Kind                     { return KindRabi }
func (rabi) Domain() Domain                 { return TimeDomain }
func (rabi) SweepParam() string             { return ParamTMW }
func (rabi) NeedsPi() bool                  { return false }
func (rabi) Roles(p Params) []sequence.Role { return pulsedRoles(p) }
func (rabi) Check(p Params) error           { return checkPulsed(p) }

func (rabi) Timeline(p Params) Timeline {
	return pulsedTimeline(p, Slot{"mw", p.TMW, mwOnly})
}

// ramsey scans the free precession between two π/2 pulses.
type ramsey struct{}

func (ramsey) Kind() Kind                     { return KindRamsey }
func (ramsey) Domain() Domain                 { return TimeDomain }
func (ramsey) SweepParam() string             { return ParamTFree }
func (ramsey) NeedsPi() bool                  { return true }
func (ramsey) Roles(p Params) []sequence.Role { return pulsedRoles(p) }

func (ramsey) Check(p Params) error {
	if err := checkPulsed(p); err != nil {
		return err
	}
	return checkPi(p, true)
}

func (ramsey) Timeline(p Params) Timeline {
	half := p.TPi / 2
	return pulsedTimeline(p,
		Slot{"pi/2", half, mwOnly},
		Slot{"free", p.TFree, nil},
		Slot{"pi/2", half, mwOnly},
	)
}

// dd is CPMG-style dynamical decoupling of the given order:
// π/2, then order times (τ/2, π, τ/2), then π/2. Hahn echo is order 1.
type dd struct {
	hahn bool
}

func (s dd) Kind() Kind {
	if s.hahn {
		return KindHahnEcho
	}
	return KindNOrderDD
}

func (dd) Domain() Domain                 { return TimeDomain }
func (dd) SweepParam() string             { return ParamTFree }
func (dd) NeedsPi() bool                  { return true }
func (dd) Roles(p Params) []sequence.Role { return pulsedRoles(p) }

func (s dd) order(p Params) int {
	if s.hahn {
		return 1
	}
	return p.Order
}

func (s dd) Check(p Params) error {
	if err := checkPulsed(p); err != nil {
		return err
	}
	if n := s.order(p); n < 1 {
		return ErrConfiguration{Param: ParamOrder, Value: n, Role: sequence.RoleMW, What: "decoupling order must be at least 1"}
	}
	return checkPi(p, true)
}

func (s dd) Timeline(p Params) Timeline {
	half := p.TPi / 2
	first := p.TFree / 2
	second := p.TFree - first
	mw := []Slot{{"pi/2", half, mwOnly}}
	for i := 0; i < s.order(p); i++ {
		mw = append(mw,
			Slot{"free", first, nil},
			Slot{"pi", p.TPi, mwOnly},
			Slot{"free", second, nil},
		)
	}
	mw = append(mw, Slot{"pi/2", half, mwOnly})
	return pulsedTimeline(p, mw...)
}

// relaxation is T1 relaxometry: a π pulse, then a scanned wait before
// readout.
type relaxation struct{}

func (relaxation) Kind() Kind                     { return KindRelaxation }
func (relaxation) Domain() Domain                 { return TimeDomain }
func (relaxation) SweepParam() string             { return ParamTFree }
func (relaxation) NeedsPi() bool                  { return true }
func (relaxation) Roles(p Params) []sequence.Role { return pulsedRoles(p) }

func (relaxation) Check(p Params) error {
	if err := checkPulsed(p); err != nil {
		return err
	}
	return checkPi(p, false)
}

func (relaxation) Timeline(p Params) Timeline {
	return pulsedTimeline(p,
		Slot{"pi", p.TPi, mwOnly},
		Slot{"free", p.TFree, nil},
	)
}
