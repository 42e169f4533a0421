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
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFlip(t *testing.T) {
	Convey("Given trains in normalized form", t, func() {
		trains := []PulseTrain{
			{100, 200},
			{0, 100, 50, 0},
			{10, 20, 30, 40},
			{0, 5000, 800, 400},
			{300, 0},
		}

		Convey("Flip applied twice gives the train back", func() {
			for _, p := range trains {
				So(Flip(Flip(p)), ShouldResemble, p)
			}
		})

		Convey("Flip keeps the period and an even length", func() {
			for _, p := range trains {
				f := Flip(p)
				So(f.Sum(), ShouldEqual, p.Sum())
				So(len(f)%2, ShouldEqual, 0)
			}
		})
	})

	Convey("Flip inverts the levels", t, func() {
		So(Flip(PulseTrain{100, 200}), ShouldResemble, PulseTrain{0, 100, 200, 0})
		So(Flip(PulseTrain{0, 100, 200, 0}), ShouldResemble, PulseTrain{100, 200})
		So(Flip(PulseTrain{300, 0}), ShouldResemble, PulseTrain{0, 300})
	})

	Convey("An all-inactive train flips to all-active within its period", t, func() {
		So(Flip(Off()), ShouldResemble, Off())
		So(FlipIn(Off(), 1000), ShouldResemble, PulseTrain{1000, 0})
		So(FlipIn(PulseTrain{0, 1000}, 1000), ShouldResemble, PulseTrain{1000, 0})
		So(FlipIn(FlipIn(Off(), 1000), 1000), ShouldResemble, PulseTrain{0, 1000})
		So(FlipIn(Off(), 0), ShouldResemble, Off())
	})
}

func TestNormalize(t *testing.T) {
	Convey("Given malformed trains", t, func() {
		cases := []struct {
			in, out PulseTrain
		}{
			{PulseTrain{0, 0, 0, 0}, PulseTrain{0, 0}},
			{PulseTrain{}, PulseTrain{0, 0}},
			{PulseTrain{100, 200, 0, 0}, PulseTrain{100, 200}},
			{PulseTrain{100, 200, 300}, PulseTrain{100, 200, 300, 0}},
			{PulseTrain{100, 0, 50, 20}, PulseTrain{150, 20}},
			{PulseTrain{0, 100, 0, 50}, PulseTrain{0, 150}},
			{PulseTrain{10, 0, 0, 0, 20, 5}, PulseTrain{30, 5}},
			{PulseTrain{-5, 10, 20, 30}, PulseTrain{0, 10, 20, 30}},
		}

		Convey("Normalize produces the hardware form", func() {
			for _, c := range cases {
				So(Normalize(c.in), ShouldResemble, c.out)
			}
		})

		Convey("Normalize is idempotent and keeps the period", func() {
			for _, c := range cases {
				n := Normalize(c.in)
				So(Normalize(n), ShouldResemble, n)
				So(len(n)%2, ShouldEqual, 0)
			}
			So(Normalize(PulseTrain{7, 3, 0, 4}).Sum(), ShouldEqual, 14)
		})
	})
}

func TestExpandToEqualLength(t *testing.T) {
	Convey("Given trains of different periods", t, func() {
		trains := []PulseTrain{
			{100, 200},
			{50, 50},
			{0, 0},
			{40, 80, 40, 40},
		}

		Convey("All active trains are expanded to the lcm", func() {
			out, err := ExpandToEqualLength(trains)
			So(err, ShouldBeNil)
			So(out[0].Sum(), ShouldEqual, 600)
			So(out[1].Sum(), ShouldEqual, 600)
			So(out[2], ShouldResemble, Off())
			So(out[3].Sum(), ShouldEqual, 600)
			So(out[1], ShouldResemble, Repeat(PulseTrain{50, 50}, 6))
		})

		Convey("Trains with equal periods are unchanged", func() {
			out, err := ExpandToEqualLength([]PulseTrain{{10, 20}, {0, 30}})
			So(err, ShouldBeNil)
			So(out[0], ShouldResemble, PulseTrain{10, 20})
			So(out[1], ShouldResemble, PulseTrain{0, 30})
		})
	})

	Convey("Expansion beyond the entry limit fails", t, func() {
		_, err := ExpandToEqualLength([]PulseTrain{{1, 1}, {1000003, 1000003}})
		So(err, ShouldNotBeNil)
		_, ok := err.(ErrInvalidSequence)
		So(ok, ShouldBeTrue)
	})
}

func TestRepeat(t *testing.T) {
	Convey("Repeat merges the seam between a low-ending and a low-starting copy", t, func() {
		So(Repeat(PulseTrain{0, 10, 20, 30}, 2), ShouldResemble, PulseTrain{0, 10, 20, 40, 20, 30})
		So(Repeat(PulseTrain{10, 20}, 1), ShouldResemble, PulseTrain{10, 20})
	})
}

func TestGCD(t *testing.T) {
	Convey("GCD ignores zero widths", t, func() {
		So(GCD(PulseTrain{0, 100, 250, 0}, PulseTrain{50, 0}), ShouldEqual, 50)
		So(GCD(Off()), ShouldEqual, 1)
	})
}
