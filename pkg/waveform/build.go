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

// Package waveform builds the ASG programming of an experiment from
// its timing parameters.
package waveform

import (
	"jinr.ru/greenlab/go-odmr/pkg/sequence"
)

// Build checks the params, lays out one period and returns the
// per-channel trains. Low-active roles are flipped. The APD channel,
// if wired, is kept active for the whole period.
//
// Build is pure: nothing is sent to a device.
func Build(s Strategy, p Params, layout Layout) (*sequence.Set, error) {
	if err := s.Check(p); err != nil {
		return nil, err
	}
	tl := s.Timeline(p)
	if err := checkTopology(tl, s.Kind() != KindCW); err != nil {
		return nil, err
	}

	set, err := sequence.NewSet(layout.Channels)
	if err != nil {
		return nil, ErrConfiguration{Param: "channels", Value: layout.Channels, What: err.Error()}
	}

	period := tl.Period()
	put := func(r sequence.Role, train sequence.PulseTrain) {
		if layout.IsLowActive(r) {
			train = sequence.FlipIn(train, period)
		}
		// the role is known to be wired
		_ = set.Put(r, train)
	}

	for _, r := range s.Roles(p) {
		if !set.Has(r) {
			return nil, ErrConfiguration{Role: r, What: "no channel assigned"}
		}
		put(r, tl.Train(r))
	}
	if set.Has(sequence.RoleAPD) {
		put(sequence.RoleAPD, sequence.On(period))
	}
	return set, nil
}

// BuildKind is Build for a kind name.
func BuildKind(kind Kind, p Params, layout Layout) (*sequence.Set, error) {
	s, err := New(kind)
	if err != nil {
		return nil, err
	}
	return Build(s, p, layout)
}
