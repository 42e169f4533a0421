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

package control

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/mock"
	"go.etcd.io/bbolt"

	"jinr.ru/greenlab/go-odmr/pkg/config"
	"jinr.ru/greenlab/go-odmr/pkg/device"
	"jinr.ru/greenlab/go-odmr/pkg/device/mocks"
	"jinr.ru/greenlab/go-odmr/pkg/scheduler"
	"jinr.ru/greenlab/go-odmr/pkg/srv/control/ifc"
	"jinr.ru/greenlab/go-odmr/pkg/store"
	"jinr.ru/greenlab/go-odmr/pkg/waveform"
)

func newTestServer(t *testing.T) (*ControlServer, *httptest.Server) {
	dir := t.TempDir()
	cfg := config.NewDefaultConfig()
	cfg.DBPath = filepath.Join(dir, config.DBFile)
	cfg.Scheduler.OutputDir = filepath.Join(dir, config.OutputDir)
	cfg.Device.Model.Noise = false

	state, err := store.Open(cfg.DBPath)
	So(err, ShouldBeNil)
	inst, simulated := NewInstruments(cfg)
	So(simulated, ShouldBeTrue)
	s, err := NewControlServerWith(context.Background(), cfg, inst, state)
	So(err, ShouldBeNil)
	return s, httptest.NewServer(s.api.(*ApiServer).Handler())
}

func post(ts *httptest.Server, path string, body interface{}) *http.Response {
	data, err := json.Marshal(body)
	So(err, ShouldBeNil)
	resp, err := http.Post(ts.URL+ApiPrefix+path, "application/json", bytes.NewReader(data))
	So(err, ShouldBeNil)
	return resp
}

func get(ts *httptest.Server, path string, v interface{}) int {
	resp, err := http.Get(ts.URL + ApiPrefix + path)
	So(err, ShouldBeNil)
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		So(json.NewDecoder(resp.Body).Decode(v), ShouldBeNil)
	}
	return resp.StatusCode
}

func waitIdle(ts *httptest.Server) ifc.State {
	deadline := time.Now().Add(10 * time.Second)
	for {
		state := ifc.State{}
		So(get(ts, "/state", &state), ShouldEqual, http.StatusOK)
		if state.Sweep == "" && state.LastRun != nil {
			return state
		}
		if time.Now().After(deadline) {
			return state
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestApi(t *testing.T) {
	Convey("Given a simulated control server", t, func() {
		s, ts := newTestServer(t)
		defer func() {
			ts.Close()
			So(s.Close(), ShouldBeNil)
		}()

		Convey("Sweeping before configuring is a conflict", func() {
			resp := post(ts, "/sweep/start", ifc.SweepRequest{Axis: scheduler.AxisSpec{Mode: scheduler.AxisModeList, List: []float64{2.87e9}}})
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			So(get(ts, "/sequence", nil), ShouldEqual, http.StatusConflict)
		})

		Convey("Bad timing is a bad request", func() {
			params := waveform.DefaultParams()
			params.TMW = -5
			resp := post(ts, "/configure", ConfigureRequest{Kind: waveform.KindPulsed, Params: params})
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A configured CW sweep is run, saved and indexed", func() {
			resp := post(ts, "/configure", ConfigureRequest{Kind: waveform.KindCW, Params: waveform.Params{N: 100, Period: 1000}})
			state := ifc.State{}
			So(json.NewDecoder(resp.Body).Decode(&state), ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(state.State, ShouldEqual, scheduler.Configured)
			So(state.Kind, ShouldEqual, waveform.KindCW)

			view := SequenceView{}
			So(get(ts, "/sequence", &view), ShouldEqual, http.StatusOK)
			So(view.Period, ShouldEqual, 1000)
			So(view.Trains[0], ShouldResemble, []int64{1000, 0})
			So(view.Chart, ShouldContainSubstring, "laser")

			resp = post(ts, "/sweep/start", ifc.SweepRequest{
				Name: "scan",
				Axis: scheduler.AxisSpec{Mode: scheduler.AxisModeRange, Start: 2.86e9, Stop: 2.88e9, Step: 1e7},
			})
			started := ifc.SweepStarted{}
			So(json.NewDecoder(resp.Body).Decode(&started), ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusAccepted)
			So(resp.Header.Get("Content-Type"), ShouldEqual, "application/json")
			So(started.Points, ShouldEqual, 3)

			state = waitIdle(ts)
			So(state.LastRun, ShouldNotBeNil)
			So(state.LastRun.Name, ShouldEqual, "scan")
			So(state.LastRun.Points, ShouldEqual, 3)
			_, err := os.Stat(state.LastRun.Base + ".json")
			So(err, ShouldBeNil)
			_, err = os.Stat(state.LastRun.Base + ".txt")
			So(err, ShouldBeNil)

			var runs []store.Run
			So(get(ts, "/runs", &runs), ShouldEqual, http.StatusOK)
			So(runs, ShouldHaveLength, 1)
			run := store.Run{}
			So(get(ts, "/runs/"+runs[0].ID, &run), ShouldEqual, http.StatusOK)
			So(run.Status, ShouldEqual, "complete")
			So(get(ts, "/runs/nope", nil), ShouldEqual, http.StatusNotFound)
		})

		Convey("The π pulse is stored and regulated", func() {
			resp := post(ts, "/pipulse", waveform.PiPulse{Frequency: 2.87e9, Power: 0, Duration: 100})
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			resp = post(ts, "/pipulse/regulate", RegulateRequest{Duration: 50})
			pi := waveform.PiPulse{}
			So(json.NewDecoder(resp.Body).Decode(&pi), ShouldBeNil)
			resp.Body.Close()
			So(pi.Duration, ShouldEqual, 50)
			So(pi.Power, ShouldAlmostEqual, 6.0206, 1e-3)

			stored, ok, err := s.state.GetPiPulse()
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(stored.Duration, ShouldEqual, 50)
		})
	})
}

func TestControlServerInit(t *testing.T) {
	Convey("A broken calibration record releases the instruments", t, func() {
		dir := t.TempDir()
		cfg := config.NewDefaultConfig()
		cfg.DBPath = filepath.Join(dir, config.DBFile)

		state, err := store.Open(cfg.DBPath)
		So(err, ShouldBeNil)
		defer state.Close()
		So(state.DB.Update(func(tx *bbolt.Tx) error {
			return tx.Bucket([]byte(store.BucketCalibration)).Put([]byte(store.KeyPiPulse), []byte("duration: nope"))
		}), ShouldBeNil)

		asg, mw, counter := &mocks.PulseGenerator{}, &mocks.Microwave{}, &mocks.Counter{}
		asg.On("Connect", mock.Anything).Return(nil)
		mw.On("Connect", mock.Anything).Return(nil)
		counter.On("Connect", mock.Anything).Return(nil)
		asg.On("Close").Return(nil)
		mw.On("Close").Return(nil)
		counter.On("Close").Return(nil)

		_, err = NewControlServerWith(context.Background(), cfg, device.Instruments{ASG: asg, MW: mw, Counter: counter}, state)
		So(err, ShouldNotBeNil)
		asg.AssertNumberOfCalls(t, "Close", 1)
		mw.AssertNumberOfCalls(t, "Close", 1)
		counter.AssertNumberOfCalls(t, "Close", 1)
	})
}
