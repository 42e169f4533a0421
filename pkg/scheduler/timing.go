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
	"time"
)

const DefaultPadRatio = 0.035

// TimingConfig is derived from the sequence period and the number of
// repetitions per point. Times are in seconds.
type TimingConfig struct {
	Period int64   `json:"period"`
	N      int     `json:"n"`
	T      float64 `json:"t"`
	Dwell  float64 `json:"dwell"`
	Pad    float64 `json:"pad"`
}

func NewTimingConfig(period int64, n int, padRatio float64) TimingConfig {
	t := float64(period) * 1e-9
	dwell := float64(n) * t
	return TimingConfig{
		Period: period,
		N:      n,
		T:      t,
		Dwell:  dwell,
		Pad:    padRatio * dwell,
	}
}

// PointDuration is the time spent counting one acquisition.
func (c TimingConfig) PointDuration() time.Duration {
	return seconds(c.Pad + c.Dwell)
}

// Total estimates a sweep of the given number of points. The
// reference acquisition doubles the time per point.
func (c TimingConfig) Total(points int, withRef bool) time.Duration {
	per := c.Pad + c.Dwell
	if withRef {
		per *= 2
	}
	return seconds(float64(points) * per)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
