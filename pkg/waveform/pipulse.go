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
	"fmt"
	"math"
)

// PiPulse is a calibrated spin flip: at the given MW frequency and
// power a pulse of Duration ns turns the spin by π.
type PiPulse struct {
	Frequency float64 `json:"frequency"`
	Power     float64 `json:"power"`
	Duration  float64 `json:"duration"`
}

// IsZero reports whether no calibration has been set.
func (c PiPulse) IsZero() bool {
	return c.Duration == 0
}

// Nanoseconds is the π duration rounded to whole ns.
func (c PiPulse) Nanoseconds() int64 {
	return int64(math.Round(c.Duration))
}

// HalfNanoseconds is the π/2 duration rounded to whole ns.
func (c PiPulse) HalfNanoseconds() int64 {
	return int64(math.Round(c.Duration / 2))
}

func (c PiPulse) String() string {
	return fmt.Sprintf("π %.1f ns at %.4f GHz, %.2f dBm", c.Duration, c.Frequency/1e9, c.Power)
}

// AtPower rescales the duration for a new MW power. The Rabi
// frequency goes with the field amplitude, so the duration scales
// with sqrt(P_old/P_new).
func (c PiPulse) AtPower(power float64) (PiPulse, error) {
	if c.IsZero() {
		return c, ErrConfiguration{Param: ParamTPi, Value: c.Duration, What: "no π pulse calibration to regulate"}
	}
	c.Duration = c.Duration * math.Sqrt(math.Pow(10, (c.Power-power)/10))
	c.Power = power
	return c, nil
}

// AtDuration returns the MW power that gives a π pulse of the
// requested duration.
func (c PiPulse) AtDuration(duration float64) (PiPulse, error) {
	if c.IsZero() {
		return c, ErrConfiguration{Param: ParamTPi, Value: c.Duration, What: "no π pulse calibration to regulate"}
	}
	if duration <= 0 {
		return c, ErrConfiguration{Param: ParamTPi, Value: duration, What: "duration must be positive"}
	}
	ratio := c.Duration / duration
	c.Power = MilliwattToDBm(ratio * ratio * DBmToMilliwatt(c.Power))
	c.Duration = duration
	return c, nil
}

// DBmToMilliwatt ...
func DBmToMilliwatt(dbm float64) float64 {
	return math.Pow(10, dbm/10)
}

// MilliwattToDBm ...
func MilliwattToDBm(mw float64) float64 {
	return 10 * math.Log10(mw)
}
