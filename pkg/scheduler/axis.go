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

package scheduler

import (
	"math"

	"github.com/shopspring/decimal"
)

// MaxAxisPoints bounds generated axes.
const MaxAxisPoints = 100000

const (
	AxisModeRange  = "range"
	AxisModeCount  = "count"
	AxisModeCenter = "center"
	AxisModeList   = "list"
)

// AxisSpec describes the swept values. Frequencies are in Hz,
// durations in ns.
type AxisSpec struct {
	Mode   string    `json:"mode"`
	Start  float64   `json:"start,omitempty"`
	Stop   float64   `json:"stop,omitempty"`
	Step   float64   `json:"step,omitempty"`
	Center float64   `json:"center,omitempty"`
	Span   float64   `json:"span,omitempty"`
	Count  int       `json:"count,omitempty"`
	List   []float64 `json:"list,omitempty"`
}

// Values expands the axis into its scan points.
func (a AxisSpec) Values() ([]float64, error) {
	switch a.Mode {
	case AxisModeRange, "":
		return AxisRange(a.Start, a.Stop, a.Step)
	case AxisModeCount:
		return AxisCount(a.Start, a.Stop, a.Count)
	case AxisModeCenter:
		return AxisCenterSpan(a.Center, a.Span, a.Step)
	case AxisModeList:
		return AxisList(a.List)
	}
	return nil, ErrConfiguration{Param: "axis", Value: a.Mode, What: "unknown axis mode"}
}

// AxisRange returns start, start+step, ... up to stop included. The
// steps are summed in decimal so that e.g. 2.87 GHz is hit exactly.
func AxisRange(start, stop, step float64) ([]float64, error) {
	if err := checkFinite(start, stop, step); err != nil {
		return nil, err
	}
	if step <= 0 {
		return nil, ErrConfiguration{Param: "step", Value: step, What: "step must be positive"}
	}
	if stop < start {
		return nil, ErrConfiguration{Param: "stop", Value: stop, What: "stop is below start"}
	}
	dStart := decimal.NewFromFloat(start)
	dStep := decimal.NewFromFloat(step)
	limit := decimal.NewFromFloat(stop).Add(dStep.Div(decimal.NewFromInt(2)))
	n := stepsBelow(limit, dStart, dStep)
	if n > MaxAxisPoints {
		return nil, ErrConfiguration{Param: "step", Value: step, What: "too many points"}
	}
	out := make([]float64, 0, n)
	for i := int64(0); ; i++ {
		v := dStart.Add(dStep.Mul(decimal.NewFromInt(i)))
		if !v.LessThan(limit) {
			break
		}
		f, _ := v.Float64()
		out = append(out, f)
	}
	return out, nil
}

// stepsBelow is the number of steps below limit.
func stepsBelow(limit, start, step decimal.Decimal) int64 {
	return limit.Sub(start).Div(step).Ceil().IntPart()
}

// AxisCount returns n evenly spaced values from start to stop.
func AxisCount(start, stop float64, n int) ([]float64, error) {
	if err := checkFinite(start, stop); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, ErrConfiguration{Param: "count", Value: n, What: "axis needs at least one point"}
	}
	if n > MaxAxisPoints {
		return nil, ErrConfiguration{Param: "count", Value: n, What: "too many points"}
	}
	if stop < start {
		return nil, ErrConfiguration{Param: "stop", Value: stop, What: "stop is below start"}
	}
	if n == 1 {
		return []float64{start}, nil
	}
	dStart := decimal.NewFromFloat(start)
	dStep := decimal.NewFromFloat(stop).Sub(dStart).Div(decimal.NewFromInt(int64(n - 1)))
	out := make([]float64, n)
	for i := range out {
		f, _ := dStart.Add(dStep.Mul(decimal.NewFromInt(int64(i)))).Float64()
		out[i] = f
	}
	out[n-1] = stop
	return out, nil
}

// AxisCenterSpan returns the range center±span/2 with the given step.
func AxisCenterSpan(center, span, step float64) ([]float64, error) {
	if err := checkFinite(center, span); err != nil {
		return nil, err
	}
	if span < 0 {
		return nil, ErrConfiguration{Param: "span", Value: span, What: "span must not be negative"}
	}
	half := decimal.NewFromFloat(span).Div(decimal.NewFromInt(2))
	c := decimal.NewFromFloat(center)
	start, _ := c.Sub(half).Float64()
	stop, _ := c.Add(half).Float64()
	return AxisRange(start, stop, step)
}

// AxisList takes the values as given; the order is the sweep order.
func AxisList(values []float64) ([]float64, error) {
	if len(values) == 0 {
		return nil, ErrConfiguration{Param: "axis", Value: values, What: "axis is empty"}
	}
	if len(values) > MaxAxisPoints {
		return nil, ErrConfiguration{Param: "axis", Value: len(values), What: "too many points"}
	}
	if err := checkFinite(values...); err != nil {
		return nil, err
	}
	out := make([]float64, len(values))
	copy(out, values)
	return out, nil
}

func checkFinite(values ...float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrConfiguration{Param: "axis", Value: v, What: "value is not finite"}
		}
	}
	return nil
}
