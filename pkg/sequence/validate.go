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

package sequence

import (
	"fmt"
)

const (
	DefaultMinHigh  int64 = 8
	DefaultMinLow   int64 = 10
	DefaultMaxWidth int64 = 26000000000
	DefaultMaxTotal int64 = 5200000000
)

// Limits are the pulse width rules of the pulse generator, all in ns.
type Limits struct {
	MinHigh  int64 `json:"min_high"`
	MinLow   int64 `json:"min_low"`
	MaxWidth int64 `json:"max_width"`
	MaxTotal int64 `json:"max_total"`
}

func DefaultLimits() Limits {
	return Limits{
		MinHigh:  DefaultMinHigh,
		MinLow:   DefaultMinLow,
		MaxWidth: DefaultMaxWidth,
		MaxTotal: DefaultMaxTotal,
	}
}

// Validate checks a single train against the limits. It does not
// modify the train and performs no I/O. The returned error, if any,
// is an ErrInvalidSequence with Channel left zero.
//
// Zero widths are only legal for the high segment of the first pair
// and the low segment of the last pair (a two entry train may have
// both).
func Validate(p PulseTrain, lim Limits) error {
	if len(p) < 2 || len(p)%2 != 0 {
		return ErrInvalidSequence{Index: -1, What: fmt.Sprintf("length %d is not a positive even number", len(p))}
	}
	var total int64
	last := len(p) - 2
	for j := 0; j < len(p); j += 2 {
		high, low := p[j], p[j+1]
		if high < 0 || low < 0 {
			return ErrInvalidSequence{Index: j, Width: minInt64(high, low), What: "negative width"}
		}
		if high > lim.MaxWidth {
			return ErrInvalidSequence{Index: j, Width: high, What: fmt.Sprintf("longer than %d ns", lim.MaxWidth)}
		}
		if low > lim.MaxWidth {
			return ErrInvalidSequence{Index: j + 1, Width: low, What: fmt.Sprintf("longer than %d ns", lim.MaxWidth)}
		}
		highMayBeZero := j == 0
		lowMayBeZero := j == last
		if high < lim.MinHigh && !(high == 0 && highMayBeZero) {
			return ErrInvalidSequence{Index: j, Width: high, What: fmt.Sprintf("high segment shorter than %d ns", lim.MinHigh)}
		}
		if low < lim.MinLow && !(low == 0 && lowMayBeZero) {
			return ErrInvalidSequence{Index: j + 1, Width: low, What: fmt.Sprintf("low segment shorter than %d ns", lim.MinLow)}
		}
		total += high + low
	}
	if total > lim.MaxTotal {
		return ErrInvalidSequence{Index: -1, What: fmt.Sprintf("period %d ns exceeds %d ns", total, lim.MaxTotal)}
	}
	return nil
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
