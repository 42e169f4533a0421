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
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/mock"

	"jinr.ru/greenlab/go-odmr/pkg/device"
	"jinr.ru/greenlab/go-odmr/pkg/device/ifc"
	"jinr.ru/greenlab/go-odmr/pkg/device/mocks"
	"jinr.ru/greenlab/go-odmr/pkg/device/sim"
	"jinr.ru/greenlab/go-odmr/pkg/result"
	"jinr.ru/greenlab/go-odmr/pkg/sequence"
	"jinr.ru/greenlab/go-odmr/pkg/waveform"
)

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func newSimScheduler(model sim.Model) (*sim.Bench, *Scheduler) {
	bench := sim.NewBench(model, sequence.DefaultChannelMap(), 1)
	session, err := device.NewSession(device.Instruments{
		ASG:     bench.ASG(),
		MW:      bench.MW(),
		Counter: bench.Counter(),
	}, device.DefaultOptions())
	So(err, ShouldBeNil)
	return bench, New(session, DefaultOptions()).WithSleep(noSleep)
}

type mockBench struct {
	asg     *mocks.PulseGenerator
	mw      *mocks.Microwave
	counter *mocks.Counter
}

func newMockScheduler() (*mockBench, *Scheduler) {
	b := &mockBench{
		asg:     &mocks.PulseGenerator{},
		mw:      &mocks.Microwave{},
		counter: &mocks.Counter{},
	}
	session, err := device.NewSession(device.Instruments{ASG: b.asg, MW: b.mw, Counter: b.counter}, device.DefaultOptions())
	So(err, ShouldBeNil)
	return b, New(session, DefaultOptions()).WithSleep(noSleep)
}

// happy makes every instrument call succeed except ReadCounts.
func (b *mockBench) happy() {
	b.asg.On("Load", mock.Anything, mock.Anything).Return(nil)
	b.asg.On("Start", mock.Anything, mock.Anything).Return(nil)
	b.asg.On("Stop", mock.Anything).Return(nil)
	b.asg.On("Close").Return(nil)
	b.mw.On("SetFrequency", mock.Anything, mock.Anything).Return(nil)
	b.mw.On("SetPower", mock.Anything, mock.Anything).Return(nil)
	b.mw.On("SetOutput", mock.Anything, mock.Anything).Return(nil)
	b.mw.On("Close").Return(nil)
	b.counter.On("Configure", mock.Anything, mock.Anything).Return(nil)
	b.counter.On("Clear", mock.Anything).Return(nil)
	b.counter.On("Start", mock.Anything).Return(nil)
	b.counter.On("Stop", mock.Anything).Return(nil)
	b.counter.On("Close").Return(nil)
}

func cwParams() waveform.Params {
	return waveform.Params{N: 100, Period: 1000}
}

func TestTiming(t *testing.T) {
	Convey("Timing follows period and N", t, func() {
		c := NewTimingConfig(1000, 100, DefaultPadRatio)
		So(c.T, ShouldAlmostEqual, 1e-6)
		So(c.Dwell, ShouldAlmostEqual, 1e-4)
		So(c.Pad, ShouldAlmostEqual, 3.5e-6)
		So(c.PointDuration(), ShouldEqual, 103500*time.Nanosecond)
		So(c.Total(10, true), ShouldEqual, 2*c.Total(10, false))
	})
}

func TestAxis(t *testing.T) {
	Convey("Range axis includes stop and is exact in decimal", t, func() {
		v, err := AxisRange(2.86e9, 2.88e9, 5e6)
		So(err, ShouldBeNil)
		So(v, ShouldResemble, []float64{2.86e9, 2.865e9, 2.87e9, 2.875e9, 2.88e9})

		v, err = AxisRange(0.1, 0.3, 0.1)
		So(err, ShouldBeNil)
		So(v, ShouldResemble, []float64{0.1, 0.2, 0.3})
	})

	Convey("Malformed ranges are configuration errors", t, func() {
		_, err := AxisRange(10, 20, 0)
		So(errors.As(err, &ErrConfiguration{}), ShouldBeTrue)
		_, err = AxisRange(20, 10, 1)
		So(errors.As(err, &ErrConfiguration{}), ShouldBeTrue)
		_, err = AxisCount(0, 10, 0)
		So(errors.As(err, &ErrConfiguration{}), ShouldBeTrue)
		_, err = AxisList(nil)
		So(errors.As(err, &ErrConfiguration{}), ShouldBeTrue)
		_, err = AxisSpec{Mode: "spiral"}.Values()
		So(errors.As(err, &ErrConfiguration{}), ShouldBeTrue)
	})

	Convey("Count and center axes", t, func() {
		v, err := AxisCount(0, 100, 5)
		So(err, ShouldBeNil)
		So(v, ShouldResemble, []float64{0, 25, 50, 75, 100})

		v, err = AxisSpec{Mode: AxisModeCenter, Center: 2.87e9, Span: 2e6, Step: 1e6}.Values()
		So(err, ShouldBeNil)
		So(v, ShouldResemble, []float64{2.869e9, 2.87e9, 2.871e9})
	})
}

func TestSweep(t *testing.T) {
	ctx := context.Background()

	Convey("Given a CW scheduler on the simulated bench", t, func() {
		model := sim.DefaultModel()
		bench, s := newSimScheduler(model)
		So(s.Configure(ctx, waveform.KindCW, cwParams()), ShouldBeNil)
		So(s.State(), ShouldEqual, Configured)

		Convey("A sweep with reference records both lists per point", func() {
			axis := []float64{2.80e9, 2.87e9, 2.94e9}
			acq, err := s.RunSweep(ctx, axis, true)
			So(err, ShouldBeNil)
			So(acq.Points(), ShouldEqual, 3)
			So(acq.Axis, ShouldResemble, axis)
			for i := range axis {
				So(acq.Signal[i], ShouldHaveLength, 100)
				So(acq.Reference[i], ShouldHaveLength, 100)
			}

			counts := result.ReduceCounts(acq)
			So(counts.Counts[1], ShouldBeLessThan, counts.CountsRef[1])
			So(counts.Counts[1], ShouldBeLessThan, counts.Counts[0])

			So(s.State(), ShouldEqual, Idle)
			So(bench.Output(), ShouldBeFalse)
			mwTrain, err := s.Sequence().Get(sequence.RoleMW)
			So(err, ShouldBeNil)
			So(mwTrain, ShouldResemble, sequence.PulseTrain{1000, 0})
		})

		Convey("Omitted epochs do not show up in the result", func() {
			s.opts.EpochOmit = 2
			acq, err := s.RunSweep(ctx, []float64{2.87e9}, false)
			So(err, ShouldBeNil)
			So(acq.Points(), ShouldEqual, 1)
			So(acq.HasReference(), ShouldBeFalse)
		})

		Convey("A single point returns the bins", func() {
			counts, err := s.RunSinglePoint(ctx, 2.87e9, 0)
			So(err, ShouldBeNil)
			So(counts, ShouldHaveLength, 100)
			So(bench.Frequency(), ShouldEqual, 2.87e9)
		})

		Convey("An empty axis fails before the run", func() {
			_, err := s.RunSweep(ctx, nil, false)
			So(errors.As(err, &ErrConfiguration{}), ShouldBeTrue)
			So(s.State(), ShouldEqual, Configured)
		})

		Convey("Cancellation ends the sweep between points", func() {
			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			calls := 0
			s.WithSleep(func(ctx context.Context, d time.Duration) error {
				calls++
				if calls == 2 {
					cancel()
				}
				return ctx.Err()
			})
			acq, err := s.RunSweep(runCtx, []float64{2.86e9, 2.87e9, 2.88e9}, false)
			So(err, ShouldEqual, context.Canceled)
			So(acq.Points(), ShouldEqual, 1)
			So(s.State(), ShouldEqual, Idle)
		})

		Convey("Close refuses to release devices under a run that is still in flight", func() {
			started := make(chan struct{})
			release := make(chan struct{})
			first := true
			s.WithSleep(func(ctx context.Context, d time.Duration) error {
				if first {
					first = false
					close(started)
					<-release
				}
				return ctx.Err()
			})
			type outcome struct {
				acq *result.Acquisition
				err error
			}
			ran := make(chan outcome, 1)
			go func() {
				acq, err := s.RunSweep(ctx, []float64{2.86e9, 2.87e9}, false)
				ran <- outcome{acq, err}
			}()
			<-started

			closeCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
			defer cancel()
			err := s.Close(closeCtx)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			So(s.State(), ShouldEqual, Running)

			close(release)
			res := <-ran
			So(res.err, ShouldEqual, context.Canceled)
			So(s.State(), ShouldEqual, Idle)

			So(s.Close(ctx), ShouldBeNil)
			So(s.State(), ShouldEqual, Closed)
			So(s.Configure(ctx, waveform.KindCW, cwParams()), ShouldResemble, ErrAlreadyClosed{})
		})
	})
}

func TestTimeDomain(t *testing.T) {
	ctx := context.Background()

	Convey("Given a Hahn echo on the simulated bench", t, func() {
		model := sim.DefaultModel()
		model.Noise = false
		_, s := newSimScheduler(model)
		p := waveform.DefaultParams()
		p.N = 10
		So(s.Configure(ctx, waveform.KindHahnEcho, p), ShouldBeNil)

		Convey("Every point rebuilds the sequence", func() {
			period := s.Timing().Period
			acq, err := s.RunSweep(ctx, []float64{1000, 2000, 4000}, false)
			So(err, ShouldBeNil)
			So(acq.Points(), ShouldEqual, 3)
			So(acq.Signal[0], ShouldHaveLength, 10)
			So(s.Timing().Period, ShouldEqual, period+3000)
		})

		Convey("A negative free time is refused", func() {
			acq, err := s.RunSweep(ctx, []float64{1000, -5}, false)
			So(errors.As(err, &ErrConfiguration{}), ShouldBeTrue)
			So(acq.Points(), ShouldEqual, 1)
		})
	})

	Convey("The π pulse follows the MW power", t, func() {
		_, s := newSimScheduler(sim.DefaultModel())
		So(s.SetPiPulse(ctx, waveform.PiPulse{Frequency: 2.87e9, Power: 0, Duration: 100}), ShouldBeNil)
		p := waveform.DefaultParams()
		p.TPi = 0
		So(s.Configure(ctx, waveform.KindRamsey, p), ShouldBeNil)
		So(s.Status().Params.TPi, ShouldEqual, 100)

		So(s.SetPower(ctx, 6), ShouldBeNil)
		So(s.PiPulse().Power, ShouldEqual, 6)
		So(s.Status().Params.TPi, ShouldEqual, 50)

		pi, err := s.RegulatePi(ctx, 100)
		So(err, ShouldBeNil)
		So(pi.Power, ShouldAlmostEqual, 0, 1e-9)
		So(s.Status().Params.TPi, ShouldEqual, 100)
	})
}

func TestFailures(t *testing.T) {
	ctx := context.Background()

	Convey("Given a scheduler over mocked instruments", t, func() {
		b, s := newMockScheduler()
		b.happy()

		Convey("Bad timing is refused before any I/O", func() {
			p := waveform.DefaultParams()
			p.TMW = -5
			err := s.Configure(ctx, waveform.KindPulsed, p)
			So(errors.As(err, &ErrConfiguration{}), ShouldBeTrue)
			b.asg.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
			So(s.State(), ShouldEqual, Idle)
		})

		Convey("A lock-in CW sets the counter to a lock-in readout", func() {
			s.opts.Layout.Channels[sequence.RoleSync] = 4
			p := cwParams()
			p.LockIn = true
			So(s.Configure(ctx, waveform.KindCW, p), ShouldBeNil)
			b.counter.AssertCalled(t, "Configure", mock.Anything, mock.MatchedBy(func(setup ifc.CounterSetup) bool {
				return setup.LockIn && !setup.Gated && setup.NValues == p.N
			}))
		})

		Convey("Running before configuring is refused", func() {
			_, err := s.RunSinglePoint(ctx, 2.87e9, 0)
			So(errors.As(err, &ErrInvalidState{}), ShouldBeTrue)
		})

		Convey("A device error aborts the sweep and keeps completed points", func() {
			fail := errors.New("usb unplugged")
			b.counter.On("ReadCounts", mock.Anything).Return([]float64{1, 2, 3}, nil).Once()
			b.counter.On("ReadCounts", mock.Anything).Return(nil, fail).Once()
			So(s.Configure(ctx, waveform.KindCW, cwParams()), ShouldBeNil)

			acq, err := s.RunSweep(ctx, []float64{1e9, 2e9, 3e9, 4e9, 5e9}, false)
			So(errors.As(err, &device.ErrDeviceConnection{}), ShouldBeTrue)
			So(errors.Is(err, fail), ShouldBeTrue)
			So(acq.Points(), ShouldEqual, 1)
			So(acq.Signal[0], ShouldResemble, []float64{1, 2, 3})
			// once after point 1, once on abort
			b.asg.AssertNumberOfCalls(t, "Stop", 2)
			b.counter.AssertNumberOfCalls(t, "Stop", 2)
			So(s.State(), ShouldEqual, Idle)
		})

		Convey("Close is final", func() {
			So(s.Close(ctx), ShouldBeNil)
			So(s.Close(ctx), ShouldResemble, ErrAlreadyClosed{})
			So(s.Stop(ctx), ShouldBeNil)
			err := s.Configure(ctx, waveform.KindCW, cwParams())
			So(err, ShouldResemble, ErrAlreadyClosed{})
		})
	})
}
