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

// Slot is one step of a sequence period during which a fixed set of
// roles is active.
type Slot struct {
	Name     string
	Duration int64
	Active   []sequence.Role
}

func (s Slot) has(r sequence.Role) bool {
	for _, a := range s.Active {
		if a == r {
			return true
		}
	}
	return false
}

// Timeline is an ordered list of slots covering exactly one period.
// Every role's train is derived from the same slots so all trains
// share the period by construction.
type Timeline []Slot

// Period ...
func (tl Timeline) Period() int64 {
	var t int64
	for _, s := range tl {
		t += s.Duration
	}
	return t
}

// Train run-length merges the slots into the role's pulse train.
func (tl Timeline) Train(r sequence.Role) sequence.PulseTrain {
	p := sequence.PulseTrain{}
	high := true
	var acc int64
	for _, s := range tl {
		if s.Duration == 0 {
			continue
		}
		if s.has(r) == high {
			acc += s.Duration
			continue
		}
		p = append(p, acc)
		high = !high
		acc = s.Duration
	}
	p = append(p, acc)
	return sequence.Normalize(p)
}

// Interval is a half-open time range [Start, End) in ns.
type Interval struct {
	Start, End int64
}

// Intervals returns the merged ranges during which the role is active.
func (tl Timeline) Intervals(r sequence.Role) []Interval {
	var out []Interval
	var t int64
	for _, s := range tl {
		if s.Duration > 0 && s.has(r) {
			if n := len(out); n > 0 && out[n-1].End == t {
				out[n-1].End = t + s.Duration
			} else {
				out = append(out, Interval{t, t + s.Duration})
			}
		}
		t += s.Duration
	}
	return out
}

func overlaps(a, b []Interval) (Interval, bool) {
	for _, x := range a {
		for _, y := range b {
			if x.Start < y.End && y.Start < x.End {
				return x, true
			}
		}
	}
	return Interval{}, false
}

func covered(a, b []Interval) (Interval, bool) {
	for _, x := range a {
		inside := false
		for _, y := range b {
			if y.Start <= x.Start && x.End <= y.End {
				inside = true
				break
			}
		}
		if !inside {
			return x, false
		}
	}
	return Interval{}, true
}

// checkTopology enforces the ordering the physics needs: readout only
// while the laser is on, and in pulsed experiments no MW while the
// spin is being polarized or read.
func checkTopology(tl Timeline, pulsed bool) error {
	laser := tl.Intervals(sequence.RoleLaser)
	tagger := tl.Intervals(sequence.RoleTagger)
	mw := tl.Intervals(sequence.RoleMW)

	if x, ok := covered(tagger, laser); !ok {
		return ErrConfiguration{
			Role:  sequence.RoleTagger,
			Param: "window",
			Value: x,
			What:  "readout window outside the laser window",
		}
	}
	if !pulsed {
		return nil
	}
	if x, ok := overlaps(mw, tagger); ok {
		return ErrConfiguration{
			Role:  sequence.RoleMW,
			Param: "window",
			Value: x,
			What:  "MW pulse overlaps a readout window",
		}
	}
	if x, ok := overlaps(mw, laser); ok {
		return ErrConfiguration{
			Role:  sequence.RoleMW,
			Param: "window",
			Value: x,
			What:  "MW pulse overlaps the laser",
		}
	}
	return nil
}
