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

// Package result holds the raw data of a sweep and reduces it to
// counts or contrast.
package result

import (
	"fmt"
	"strings"
)

// Acquisition is the raw data of a sweep: for every axis point the
// counter bins of the signal and, if taken, the reference condition.
type Acquisition struct {
	Axis      []float64   `json:"axis"`
	Signal    [][]float64 `json:"signal"`
	Reference [][]float64 `json:"reference,omitempty"`
}

// Append records one completed point.
func (a *Acquisition) Append(x float64, signal, reference []float64) {
	a.Axis = append(a.Axis, x)
	a.Signal = append(a.Signal, signal)
	if reference != nil {
		a.Reference = append(a.Reference, reference)
	}
}

// Points is the number of completed points.
func (a *Acquisition) Points() int {
	return len(a.Axis)
}

// HasReference ...
func (a *Acquisition) HasReference() bool {
	return len(a.Reference) > 0
}

// Reset drops everything recorded.
func (a *Acquisition) Reset() {
	a.Axis = nil
	a.Signal = nil
	a.Reference = nil
}

// IndexConvention tells which interleaved bins of a dual readout are
// the signal window.
type IndexConvention string

const (
	SignalEven IndexConvention = "even"
	SignalOdd  IndexConvention = "odd"
)

// ParseIndexConvention ...
func ParseIndexConvention(s string) (IndexConvention, error) {
	switch c := IndexConvention(strings.ToLower(strings.TrimSpace(s))); c {
	case SignalEven, SignalOdd:
		return c, nil
	case "":
		return SignalEven, nil
	}
	return "", fmt.Errorf("unknown signal index convention: %q (even|odd)", s)
}

// Split separates interleaved bins into signal and reference.
func (c IndexConvention) Split(bins []float64) (signal, reference []float64) {
	for i, v := range bins {
		even := i%2 == 0
		if even == (c != SignalOdd) {
			signal = append(signal, v)
		} else {
			reference = append(reference, v)
		}
	}
	return signal, reference
}
