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
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestValidate(t *testing.T) {
	lim := DefaultLimits()

	Convey("Legal trains pass", t, func() {
		for _, p := range []PulseTrain{
			{0, 0},
			{1000, 0},
			{0, 1000},
			{5000, 3800, 400, 200},
			{0, 5800, 400, 10},
			{8, 10},
		} {
			So(Validate(p, lim), ShouldBeNil)
		}
	})

	Convey("Illegal trains are reported with the offending segment", t, func() {
		cases := []struct {
			p     PulseTrain
			index int
		}{
			{PulseTrain{100}, -1},
			{PulseTrain{100, -1}, 0},
			{PulseTrain{100, 5}, 1},
			{PulseTrain{100, 20, 4, 20}, 2},
			{PulseTrain{100, 20, 0, 20}, 2},
			{PulseTrain{100, 0, 50, 20}, 1},
			{PulseTrain{DefaultMaxWidth + 1, 10}, 0},
			{PulseTrain{DefaultMaxWidth, DefaultMaxWidth}, -1},
		}
		for _, c := range cases {
			err := Validate(c.p, lim)
			So(err, ShouldNotBeNil)
			e, ok := err.(ErrInvalidSequence)
			So(ok, ShouldBeTrue)
			So(e.Index, ShouldEqual, c.index)
		}
	})
}

func TestSet(t *testing.T) {
	Convey("Given a set with the default channel map", t, func() {
		s, err := NewSet(DefaultChannelMap())
		So(err, ShouldBeNil)

		Convey("Every channel starts inactive", func() {
			for _, p := range s.Trains {
				So(p, ShouldResemble, Off())
			}
			period, err := s.Period()
			So(err, ShouldBeNil)
			So(period, ShouldEqual, 0)
		})

		Convey("Trains are stored by role", func() {
			So(s.Put(RoleLaser, PulseTrain{500, 500}), ShouldBeNil)
			So(s.Put(RoleMW, PulseTrain{0, 500, 200, 300}), ShouldBeNil)
			So(s.Trains[0], ShouldResemble, PulseTrain{500, 500})
			p, err := s.Get(RoleMW)
			So(err, ShouldBeNil)
			So(p, ShouldResemble, PulseTrain{0, 500, 200, 300})
			So(s.RoleOf(2), ShouldEqual, RoleMW)

			period, err := s.Period()
			So(err, ShouldBeNil)
			So(period, ShouldEqual, 1000)

			Convey("and the set renders the active channels", func() {
				out := Render(s, 0)
				So(out, ShouldContainSubstring, "unit: 100 ns per column")
				So(out, ShouldContainSubstring, "|#####_____|")
				So(out, ShouldContainSubstring, "|_____##___|")
				So(strings.Count(out, "\n"), ShouldEqual, 3)
			})
		})

		Convey("An unassigned role is an error", func() {
			So(s.Put(RoleSync, On(100)), ShouldResemble, ErrUnknownRole{Role: RoleSync})
			_, err := s.Get(RoleSync)
			So(err, ShouldNotBeNil)
		})

		Convey("Mismatched periods are reported with the channel", func() {
			So(s.Put(RoleLaser, On(1000)), ShouldBeNil)
			So(s.Put(RoleTagger, On(900)), ShouldBeNil)
			_, err := s.Period()
			So(err, ShouldNotBeNil)
			e := err.(ErrInvalidSequence)
			So(e.Channel, ShouldEqual, 5)
			So(e.Role, ShouldEqual, RoleTagger)

			Convey("and expansion restores a common period", func() {
				x, err := s.Expanded()
				So(err, ShouldBeNil)
				period, err := x.Period()
				So(err, ShouldBeNil)
				So(period, ShouldEqual, 9000)
			})
		})

		Convey("Validation names the channel and role", func() {
			So(s.Put(RoleMW, PulseTrain{0, 100, 3, 100}), ShouldBeNil)
			err := s.Validate(DefaultLimits())
			So(err, ShouldNotBeNil)
			e := err.(ErrInvalidSequence)
			So(e.Channel, ShouldEqual, 2)
			So(e.Role, ShouldEqual, RoleMW)
			So(err.Error(), ShouldContainSubstring, "channel 2 (mw)")
		})

		Convey("Clone does not share trains", func() {
			So(s.Put(RoleLaser, PulseTrain{10, 20}), ShouldBeNil)
			c := s.Clone()
			c.Trains[0][0] = 99
			So(s.Trains[0][0], ShouldEqual, 10)
		})
	})

	Convey("A channel map with a shared channel is rejected", t, func() {
		_, err := NewSet(ChannelMap{RoleLaser: 1, RoleMW: 1})
		So(err, ShouldNotBeNil)
		_, err = NewSet(ChannelMap{RoleLaser: 9})
		So(err, ShouldNotBeNil)
	})
}
