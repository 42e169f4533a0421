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
	"strings"
)

const (
	HighMark = '#'
	LowMark  = '_'

	DefaultRenderCols = 120
)

// Render draws the active channels of the set as a text strip chart,
// one line per channel. Widths are scaled by the gcd of all widths
// and further reduced to fit into maxCols columns; a column is drawn
// high if any part of it is high. maxCols <= 0 selects DefaultRenderCols.
func Render(s *Set, maxCols int) string {
	var active []int
	var trains []PulseTrain
	for i, p := range s.Trains {
		if p.Sum() > 0 {
			active = append(active, i)
			trains = append(trains, p)
		}
	}
	if len(active) == 0 {
		return "(all channels off)\n"
	}

	unit := GCD(trains...)
	var longest int64
	for _, p := range trains {
		if n := p.Sum() / unit; n > longest {
			longest = n
		}
	}
	if maxCols <= 0 {
		maxCols = DefaultRenderCols
	}
	step := int64(1)
	if longest > int64(maxCols) {
		step = (longest + int64(maxCols) - 1) / int64(maxCols)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "unit: %d ns per column\n", unit*step)
	for k, i := range active {
		label := fmt.Sprintf("ch %d", i+1)
		if r := s.RoleOf(i + 1); r != "" {
			label = fmt.Sprintf("%s %-6s", label, r)
		} else {
			label = fmt.Sprintf("%s %-6s", label, "")
		}
		b.WriteString(label)
		b.WriteString(" |")
		b.WriteString(strip(trains[k], unit, step))
		b.WriteString("|\n")
	}
	return b.String()
}

func strip(p PulseTrain, unit, step int64) string {
	width := unit * step
	cols := (p.Sum() + width - 1) / width
	var b strings.Builder
	var t int64
	j := 0
	for c := int64(0); c < cols; c++ {
		end := (c + 1) * width
		mark := LowMark
		// walk the segments overlapping [c*width, end)
		for j < len(p) && t < end {
			if j%2 == 0 && p[j] > 0 {
				mark = HighMark
			}
			if t+p[j] > end {
				break
			}
			t += p[j]
			j++
		}
		b.WriteRune(mark)
	}
	return b.String()
}
