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
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestReduce(t *testing.T) {
	Convey("Given an acquisition with a reference", t, func() {
		a := &Acquisition{}
		a.Append(2.80e9, []float64{10, 20, 30}, []float64{20, 20, 20})
		a.Append(2.87e9, []float64{8, 8}, []float64{10, 10})

		Convey("ReduceCounts gives aligned means", func() {
			c := ReduceCounts(a)
			So(c.Axis, ShouldResemble, []float64{2.80e9, 2.87e9})
			So(c.Counts, ShouldResemble, []float64{20, 8})
			So(c.CountsRef, ShouldResemble, []float64{20, 10})
		})

		Convey("ReduceContrast compares signal and reference sums", func() {
			c := ReduceContrast(a, SignalEven)
			So(c.Contrast[0], ShouldEqual, 0)
			So(c.Contrast[1], ShouldAlmostEqual, 0.2, 1e-12)
		})
	})

	Convey("Given a dual readout acquisition", t, func() {
		a := &Acquisition{}
		a.Append(100, []float64{16, 20, 14, 20}, nil)
		a.Append(200, []float64{0, 0, 0, 0}, nil)

		Convey("The index convention selects the signal window", func() {
			even := ReduceDualCounts(a, SignalEven)
			So(even.Counts, ShouldResemble, []float64{15, 0})
			So(even.CountsRef, ShouldResemble, []float64{20, 0})
			odd := ReduceDualCounts(a, SignalOdd)
			So(odd.Counts, ShouldResemble, []float64{20, 0})
			So(odd.CountsRef, ShouldResemble, []float64{15, 0})
		})

		Convey("Contrast is bounded and all-zero input gives 0", func() {
			c := ReduceContrast(a, SignalEven)
			So(c.Contrast[0], ShouldAlmostEqual, 10.0/40.0, 1e-12)
			So(c.Contrast[1], ShouldEqual, 0)
		})
	})

	Convey("Contrast stays in [0, 1] for non-negative counts", t, func() {
		a := &Acquisition{}
		for i := 0; i < 50; i++ {
			bins := []float64{float64(i * 3 % 17), float64(i * 7 % 11), float64(i % 5), float64(i * i % 13)}
			a.Append(float64(i), bins, nil)
		}
		for _, v := range ReduceContrast(a, SignalOdd).Contrast {
			So(v, ShouldBeBetweenOrEqual, 0, 1)
		}
	})

	Convey("Signed lock-in readings keep the contrast in [0, 1]", t, func() {
		a := &Acquisition{}
		a.Append(1, []float64{-0.004, -0.004}, []float64{0.001, 0.001})
		a.Append(2, []float64{-0.002, 0.002}, []float64{-0.002, -0.002})
		a.Append(3, []float64{-0.005}, []float64{-0.004})
		c := ReduceContrast(a, SignalEven).Contrast
		So(c[0], ShouldAlmostEqual, 0.75, 1e-12)
		So(c[1], ShouldEqual, 1)
		So(c[2], ShouldAlmostEqual, 0.2, 1e-12)
		for _, v := range c {
			So(v, ShouldBeBetweenOrEqual, 0, 1)
		}
	})

	Convey("Index conventions are parsed", t, func() {
		c, err := ParseIndexConvention("Odd")
		So(err, ShouldBeNil)
		So(c, ShouldEqual, SignalOdd)
		c, err = ParseIndexConvention("")
		So(err, ShouldBeNil)
		So(c, ShouldEqual, SignalEven)
		_, err = ParseIndexConvention("first")
		So(err, ShouldNotBeNil)
	})
}

func TestRecord(t *testing.T) {
	Convey("Given a finished reference sweep", t, func() {
		a := &Acquisition{}
		a.Append(2.8e9, []float64{10, 10}, []float64{20, 20})
		a.Append(2.9e9, []float64{30, 30}, []float64{30, 30})

		r, err := NewRecord(a, RecordOptions{Name: "CW", Kind: "cw", AxisName: "frequency", Params: map[string]int{"n": 2}})
		So(err, ShouldBeNil)
		So(r.Statistic, ShouldEqual, StatCounts)
		So(r.WithRef, ShouldBeTrue)
		So(r.Status, ShouldEqual, StatusComplete)
		So(r.Counts, ShouldResemble, []float64{10, 30})
		So(r.CountsRef, ShouldResemble, []float64{20, 30})
		So(r.Contrast, ShouldResemble, []float64{0.5, 0})
		So(r.BaseName(), ShouldStartWith, "CW-counts-with-ref-")
		So(r.BaseName(), ShouldEndWith, r.ID)

		Convey("it is persisted as JSON and a text table", func() {
			dir, err := os.MkdirTemp("", "go-odmr-result")
			So(err, ShouldBeNil)
			defer os.RemoveAll(dir)

			base, err := Persist(dir, r)
			So(err, ShouldBeNil)
			So(filepath.Dir(base), ShouldEqual, dir)

			back, err := Load(base)
			So(err, ShouldBeNil)
			So(back.ID, ShouldEqual, r.ID)
			So(back.Counts, ShouldResemble, r.Counts)
			So(back.RawRef, ShouldResemble, r.RawRef)
			params := map[string]int{}
			So(json.Unmarshal(back.Params, &params), ShouldBeNil)
			So(params, ShouldResemble, map[string]int{"n": 2})

			txt, err := os.ReadFile(base + ".txt")
			So(err, ShouldBeNil)
			lines := strings.Split(strings.TrimSpace(string(txt)), "\n")
			So(len(lines), ShouldEqual, 3)
			So(strings.Fields(lines[0]), ShouldResemble, []string{"frequency", "counts", "counts_ref"})
			So(strings.Fields(lines[1]), ShouldResemble, []string{"2.8e+09", "10", "20"})
		})
	})

	Convey("An aborted dual readout sweep is a contrast record", t, func() {
		a := &Acquisition{}
		a.Append(100, []float64{8, 10}, nil)
		r, err := NewRecord(a, RecordOptions{Name: "Rabi", AxisName: "t_mw", Dual: true, Err: errors.New("usb gone")})
		So(err, ShouldBeNil)
		So(r.Statistic, ShouldEqual, StatContrast)
		So(r.Status, ShouldEqual, StatusAborted)
		So(r.Error, ShouldEqual, "usb gone")
		So(r.Values(), ShouldResemble, r.Contrast)
		So(r.Contrast[0], ShouldAlmostEqual, 0.2, 1e-12)
		So(r.BaseName(), ShouldStartWith, "Rabi-contrast-")
	})
}
