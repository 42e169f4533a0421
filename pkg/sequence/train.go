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

// Package sequence holds the pulse train primitives used to program
// a multi-channel arbitrary sequence generator (ASG).
//
// A PulseTrain is an alternating list of durations in nanoseconds:
// high, low, high, low, ... It always has an even length and always
// starts with a high segment which may be zero wide (the channel
// starts low).
package sequence

import (
	"fmt"
	"math"
	"strings"
)

// PulseTrain is one channel's timing pattern over one repetition period.
type PulseTrain []int64

// Off is the canonical always-inactive train.
func Off() PulseTrain {
	return PulseTrain{0, 0}
}

// On returns a train which is active during the whole period.
func On(period int64) PulseTrain {
	return PulseTrain{period, 0}
}

// Sum returns the period covered by the train.
func (p PulseTrain) Sum() int64 {
	var s int64
	for _, d := range p {
		s += d
	}
	return s
}

// IsOff reports whether the train never goes active.
func (p PulseTrain) IsOff() bool {
	for i := 0; i < len(p); i += 2 {
		if p[i] != 0 {
			return false
		}
	}
	return true
}

// Clone ...
func (p PulseTrain) Clone() PulseTrain {
	if p == nil {
		return nil
	}
	c := make(PulseTrain, len(p))
	copy(c, p)
	return c
}

// Equal ...
func (p PulseTrain) Equal(o PulseTrain) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

func (p PulseTrain) String() string {
	parts := make([]string, len(p))
	for i, d := range p {
		parts[i] = fmt.Sprintf("%d", d)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Flip inverts the active/inactive semantics of the train, which is
// how a TTL-low-active instrument has to be driven.
//
// A leading zero-width high segment is dropped, otherwise one is
// prepended; then the trailing zero is trimmed or appended so that
// the length stays even. Applying Flip twice gives back the input
// for every train in the form Normalize produces.
//
// An all-inactive train has no period to invert into, so Flip returns
// [0 0] unchanged. Callers that need the all-active inverse of [0 0]
// must use FlipIn with the period of the set.
func Flip(p PulseTrain) PulseTrain {
	if p.Sum() == 0 {
		return Off()
	}
	var q PulseTrain
	if len(p) > 0 && p[0] == 0 {
		q = p[1:].Clone()
	} else {
		q = append(PulseTrain{0}, p...)
	}
	if len(q)%2 == 0 {
		return q
	}
	if q[len(q)-1] == 0 {
		return q[:len(q)-1]
	}
	return append(q, 0)
}

// FlipIn is Flip for a train that belongs to a period of the given
// length. An all-inactive train flips to [period 0].
func FlipIn(p PulseTrain, period int64) PulseTrain {
	if p.Sum() == 0 {
		if period <= 0 {
			return Off()
		}
		return Flip(PulseTrain{0, period})
	}
	return Flip(p)
}

// Normalize turns an arbitrary list of non-negative widths into a
// train the ASG accepts:
//   - a train summing to zero becomes [0 0];
//   - trailing zero-width segments are stripped and a single zero is
//     appended when the length ends up odd;
//   - an interior zero-width segment is removed by merging its two
//     neighbours, which have the same level.
//
// Negative widths are clamped to zero. The result always has an even
// length and the same sum as the (clamped) input.
func Normalize(p PulseTrain) PulseTrain {
	q := make(PulseTrain, 0, len(p)+1)
	var sum int64
	for _, d := range p {
		if d < 0 {
			d = 0
		}
		sum += d
		q = append(q, d)
	}
	if sum == 0 {
		return Off()
	}

	for len(q) > 0 && q[len(q)-1] == 0 {
		q = q[:len(q)-1]
	}
	if len(q)%2 != 0 {
		q = append(q, 0)
	}

	// The last entry may be the padding zero; it is not interior.
	for i := 1; i < len(q)-1; {
		if q[i] != 0 {
			i++
			continue
		}
		q[i-1] += q[i+1]
		q = append(q[:i], q[i+2:]...)
		// the merged segment may now be followed by another zero
	}
	return q
}

// Repeat concatenates n copies of the train.
func Repeat(p PulseTrain, n int) PulseTrain {
	if n <= 1 {
		return p.Clone()
	}
	r := make(PulseTrain, 0, len(p)*n)
	for i := 0; i < n; i++ {
		r = append(r, p...)
	}
	return Normalize(r)
}

// MaxExpandedLen bounds the number of entries ExpandToEqualLength may
// produce for one channel.
const MaxExpandedLen = 1 << 20

// ExpandToEqualLength repeats every train lcm(periods)/period times so
// that all trains share one common period. All-inactive trains carry
// no period and are returned as [0 0].
func ExpandToEqualLength(trains []PulseTrain) ([]PulseTrain, error) {
	common := int64(1)
	for i, p := range trains {
		s := p.Sum()
		if s == 0 {
			continue
		}
		l, err := lcm(common, s)
		if err != nil {
			return nil, ErrInvalidSequence{
				Channel: i + 1,
				Index:   -1,
				What:    fmt.Sprintf("common period of %d ns and %d ns overflows", common, s),
			}
		}
		common = l
	}

	expanded := make([]PulseTrain, len(trains))
	for i, p := range trains {
		s := p.Sum()
		if s == 0 {
			expanded[i] = Off()
			continue
		}
		n := common / s
		if n*int64(len(p)) > MaxExpandedLen {
			return nil, ErrInvalidSequence{
				Channel: i + 1,
				Index:   -1,
				What:    fmt.Sprintf("expanding %d ns to %d ns needs %d repetitions", s, common, n),
			}
		}
		expanded[i] = Repeat(p, int(n))
	}
	return expanded, nil
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int64) (int64, error) {
	g := gcd(a, b)
	m := a / g
	if m != 0 && b > math.MaxInt64/m {
		return 0, fmt.Errorf("lcm overflow")
	}
	return m * b, nil
}

// GCD returns the greatest common divisor of all non-zero widths of
// the given trains, or 1 if there are none.
func GCD(trains ...PulseTrain) int64 {
	var g int64
	for _, p := range trains {
		for _, d := range p {
			if d > 0 {
				g = gcd(g, d)
			}
		}
	}
	if g == 0 {
		return 1
	}
	return g
}
