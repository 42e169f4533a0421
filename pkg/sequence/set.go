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
	"sort"
)

// Role names what a physical ASG channel drives.
type Role string

const (
	RoleLaser  Role = "laser"
	RoleMW     Role = "mw"
	RoleAPD    Role = "apd"
	RoleTagger Role = "tagger"
	RoleSync   Role = "sync"
)

// NumChannels is the number of physical ASG channels.
const NumChannels = 8

// Roles returns all known roles in a stable order.
func Roles() []Role {
	return []Role{RoleLaser, RoleMW, RoleAPD, RoleTagger, RoleSync}
}

// ChannelMap assigns roles to physical channels, numbered 1..NumChannels.
type ChannelMap map[Role]int

func DefaultChannelMap() ChannelMap {
	return ChannelMap{
		RoleLaser:  1,
		RoleMW:     2,
		RoleAPD:    3,
		RoleTagger: 5,
	}
}

// Validate checks the channel numbers are in range and not shared.
func (m ChannelMap) Validate() error {
	used := map[int]Role{}
	for _, r := range m.sortedRoles() {
		ch := m[r]
		if ch < 1 || ch > NumChannels {
			return fmt.Errorf("role %s: channel %d out of range 1..%d", r, ch, NumChannels)
		}
		if other, ok := used[ch]; ok {
			return fmt.Errorf("roles %s and %s share channel %d", other, r, ch)
		}
		used[ch] = r
	}
	return nil
}

func (m ChannelMap) sortedRoles() []Role {
	roles := make([]Role, 0, len(m))
	for r := range m {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return m[roles[i]] < m[roles[j]] })
	return roles
}

// Set is the full programming of the ASG: one train per physical
// channel plus the role assignment. Channels with no role hold [0 0].
type Set struct {
	Channels ChannelMap
	Trains   [NumChannels]PulseTrain
}

// NewSet returns a set where every channel is inactive.
func NewSet(channels ChannelMap) (*Set, error) {
	if err := channels.Validate(); err != nil {
		return nil, err
	}
	s := &Set{Channels: ChannelMap{}}
	for r, ch := range channels {
		s.Channels[r] = ch
	}
	s.Reset()
	return s, nil
}

// Reset sets every channel back to [0 0].
func (s *Set) Reset() {
	for i := range s.Trains {
		s.Trains[i] = Off()
	}
}

// Has reports whether the role is assigned to a channel.
func (s *Set) Has(r Role) bool {
	_, ok := s.Channels[r]
	return ok
}

// Get returns the train of the channel the role is assigned to.
func (s *Set) Get(r Role) (PulseTrain, error) {
	ch, ok := s.Channels[r]
	if !ok {
		return nil, ErrUnknownRole{Role: r}
	}
	return s.Trains[ch-1], nil
}

// Put replaces the train of the channel the role is assigned to.
func (s *Set) Put(r Role, p PulseTrain) error {
	ch, ok := s.Channels[r]
	if !ok {
		return ErrUnknownRole{Role: r}
	}
	s.Trains[ch-1] = p.Clone()
	return nil
}

// RoleOf returns the role of a 1-based channel or "" if unassigned.
func (s *Set) RoleOf(ch int) Role {
	for r, c := range s.Channels {
		if c == ch {
			return r
		}
	}
	return ""
}

// Period returns the common period of all active channels. All-off
// channels are ignored. A set without any active channel has period 0.
func (s *Set) Period() (int64, error) {
	var period int64
	first := 0
	for i, p := range s.Trains {
		sum := p.Sum()
		if sum == 0 {
			continue
		}
		if period == 0 {
			period = sum
			first = i + 1
			continue
		}
		if sum != period {
			return 0, ErrInvalidSequence{
				Channel: i + 1,
				Role:    s.RoleOf(i + 1),
				Index:   -1,
				What:    fmt.Sprintf("period %d ns differs from %d ns on channel %d", sum, period, first),
			}
		}
	}
	return period, nil
}

// Clone ...
func (s *Set) Clone() *Set {
	c := &Set{Channels: ChannelMap{}}
	for r, ch := range s.Channels {
		c.Channels[r] = ch
	}
	for i, p := range s.Trains {
		c.Trains[i] = p.Clone()
	}
	return c
}

// Lists returns the trains as plain integer lists, channel 1 first.
func (s *Set) Lists() [][]int64 {
	out := make([][]int64, NumChannels)
	for i, p := range s.Trains {
		if p == nil {
			p = Off()
		}
		out[i] = []int64(p.Clone())
	}
	return out
}

// Normalized returns a copy with every channel normalized.
func (s *Set) Normalized() *Set {
	c := s.Clone()
	for i, p := range c.Trains {
		c.Trains[i] = Normalize(p)
	}
	return c
}

// Expanded returns a copy where channels of different periods have
// been repeated up to their common period.
func (s *Set) Expanded() (*Set, error) {
	c := s.Clone()
	trains, err := ExpandToEqualLength(c.Trains[:])
	if err != nil {
		if e, ok := err.(ErrInvalidSequence); ok {
			e.Role = s.RoleOf(e.Channel)
			return nil, e
		}
		return nil, err
	}
	copy(c.Trains[:], trains)
	return c, nil
}

// Validate checks every channel against the limits. The returned
// error names the channel and role at fault.
func (s *Set) Validate(lim Limits) error {
	for i, p := range s.Trains {
		if err := Validate(p, lim); err != nil {
			e := err.(ErrInvalidSequence)
			e.Channel = i + 1
			e.Role = s.RoleOf(i + 1)
			return e
		}
	}
	return nil
}
