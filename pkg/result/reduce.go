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

package result

import (
	"math"
)

// Counts are per-point means.
type Counts struct {
	Axis      []float64 `json:"axis"`
	Counts    []float64 `json:"counts"`
	CountsRef []float64 `json:"counts_ref,omitempty"`
}

// Contrast is the per-point normalized signal/reference difference.
type Contrast struct {
	Axis     []float64 `json:"axis"`
	Contrast []float64 `json:"contrast"`
}

func sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}

// mean of an empty list is 0.
func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return sum(v) / float64(len(v))
}

func copyAxis(a *Acquisition) []float64 {
	return append([]float64(nil), a.Axis...)
}

// ReduceCounts averages the bins of every point. Reference means are
// returned when a reference was taken.
func ReduceCounts(a *Acquisition) Counts {
	c := Counts{Axis: copyAxis(a), Counts: make([]float64, len(a.Signal))}
	for i, bins := range a.Signal {
		c.Counts[i] = mean(bins)
	}
	if a.HasReference() {
		c.CountsRef = make([]float64, len(a.Reference))
		for i, bins := range a.Reference {
			c.CountsRef[i] = mean(bins)
		}
	}
	return c
}

// ReduceDualCounts averages the signal and reference windows of a
// dual readout separately.
func ReduceDualCounts(a *Acquisition, conv IndexConvention) Counts {
	c := Counts{
		Axis:      copyAxis(a),
		Counts:    make([]float64, len(a.Signal)),
		CountsRef: make([]float64, len(a.Signal)),
	}
	for i, bins := range a.Signal {
		sig, ref := conv.Split(bins)
		c.Counts[i] = mean(sig)
		c.CountsRef[i] = mean(ref)
	}
	return c
}

// contrast is |sig-ref|/max(sig,ref) on magnitudes, so signed lock-in
// readings stay in [0, 1] too. It is 0 when both are 0.
func contrast(sig, ref float64) float64 {
	sig, ref = math.Abs(sig), math.Abs(ref)
	d := math.Max(sig, ref)
	if d <= 0 {
		return 0
	}
	return math.Abs(sig-ref) / d
}

// ReduceContrast computes the contrast of every point. With a
// reference acquisition the signal and reference lists are compared,
// otherwise the interleaved windows of a dual readout.
func ReduceContrast(a *Acquisition, conv IndexConvention) Contrast {
	c := Contrast{Axis: copyAxis(a), Contrast: make([]float64, len(a.Signal))}
	for i, bins := range a.Signal {
		var sig, ref float64
		if a.HasReference() && i < len(a.Reference) {
			sig, ref = sum(bins), sum(a.Reference[i])
		} else {
			s, r := conv.Split(bins)
			sig, ref = sum(s), sum(r)
		}
		c.Contrast[i] = contrast(sig, ref)
	}
	return c
}
