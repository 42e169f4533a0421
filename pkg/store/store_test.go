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

package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"jinr.ru/greenlab/go-odmr/pkg/result"
	"jinr.ru/greenlab/go-odmr/pkg/waveform"
)

func TestStore(t *testing.T) {
	Convey("Given a fresh database", t, func() {
		s, err := Open(filepath.Join(t.TempDir(), "odmr.db"))
		So(err, ShouldBeNil)
		defer s.Close()

		Convey("There is no calibration yet", func() {
			_, ok, err := s.GetPiPulse()
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("The calibration round trips", func() {
			pi := waveform.PiPulse{Frequency: 2.87e9, Power: -3.5, Duration: 84.2}
			So(s.PutPiPulse(pi), ShouldBeNil)
			back, ok, err := s.GetPiPulse()
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(back, ShouldResemble, pi)
		})

		Convey("Runs are listed newest first", func() {
			now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
			So(s.PutRun(Run{ID: "a", Name: "old", Date: now, Status: result.StatusComplete}), ShouldBeNil)
			So(s.PutRun(Run{ID: "b", Name: "new", Date: now.Add(time.Hour), Status: result.StatusAborted, Error: "cancelled"}), ShouldBeNil)

			runs, err := s.ListRuns()
			So(err, ShouldBeNil)
			So(runs, ShouldHaveLength, 2)
			So(runs[0].ID, ShouldEqual, "b")
			So(runs[0].Error, ShouldEqual, "cancelled")
			So(runs[1].Date.Equal(now), ShouldBeTrue)

			So(s.DeleteRun("a"), ShouldBeNil)
			_, err = s.GetRun("a")
			So(errors.As(err, &ErrNotFound{}), ShouldBeTrue)
			So(errors.As(s.DeleteRun("a"), &ErrNotFound{}), ShouldBeTrue)
		})

		Convey("A record is summarized by its reduced axis", func() {
			acq := &result.Acquisition{}
			acq.Append(1, []float64{1, 2}, nil)
			acq.Append(2, []float64{3, 4}, nil)
			rec, err := result.NewRecord(acq, result.RecordOptions{Name: "scan", Kind: "cw", AxisName: "frequency"})
			So(err, ShouldBeNil)
			run := RunOf(rec, "/data/scan")
			So(run.Points, ShouldEqual, 2)
			So(run.Statistic, ShouldEqual, result.StatCounts)
			So(s.PutRun(run), ShouldBeNil)
			back, err := s.GetRun(rec.ID)
			So(err, ShouldBeNil)
			So(back.Base, ShouldEqual, "/data/scan")
		})
	})
}
