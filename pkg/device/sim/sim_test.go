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

package sim

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"jinr.ru/greenlab/go-odmr/pkg/device/ifc"
	"jinr.ru/greenlab/go-odmr/pkg/sequence"
	"jinr.ru/greenlab/go-odmr/pkg/waveform"
)

func quietBench() *Bench {
	m := DefaultModel()
	m.Noise = false
	return NewBench(m, sequence.DefaultChannelMap(), 1)
}

func run(b *Bench, set *sequence.Set, setup ifc.CounterSetup, hz float64) []float64 {
	ctx := context.Background()
	So(b.ASG().Load(ctx, set.Lists()), ShouldBeNil)
	So(b.Counter().Configure(ctx, setup), ShouldBeNil)
	So(b.MW().SetFrequency(ctx, hz), ShouldBeNil)
	So(b.MW().SetOutput(ctx, true), ShouldBeNil)
	So(b.ASG().Start(ctx, 0), ShouldBeNil)
	So(b.Counter().Start(ctx), ShouldBeNil)
	counts, err := b.Counter().ReadCounts(ctx)
	So(err, ShouldBeNil)
	return counts
}

func TestBenchCW(t *testing.T) {
	Convey("Given a CW sequence on a noiseless bench", t, func() {
		b := quietBench()
		set, err := waveform.BuildKind(waveform.KindCW, waveform.Params{N: 3, Period: 1000}, waveform.DefaultLayout())
		So(err, ShouldBeNil)
		setup := ifc.CounterSetup{BinWidth: 1000, NValues: 3}

		Convey("Fluorescence dips on resonance", func() {
			on := run(b, set, setup, 2.87e9)
			So(len(on), ShouldEqual, 3)
			for _, c := range on {
				So(c, ShouldAlmostEqual, 45, 1e-9)
			}
			off := run(b, set, setup, 3.0e9)
			So(off[0], ShouldBeGreaterThan, 49.9)
			So(b.Frequency(), ShouldEqual, 3.0e9)
		})

		Convey("Nothing is counted while the ASG is stopped", func() {
			run(b, set, setup, 2.87e9)
			So(b.ASG().Stop(context.Background()), ShouldBeNil)
			counts, err := b.Counter().ReadCounts(context.Background())
			So(err, ShouldBeNil)
			So(counts, ShouldResemble, []float64{0, 0, 0})
		})
	})
}

func TestBenchLockIn(t *testing.T) {
	Convey("A lock-in readout is a signed signal that dips on resonance", t, func() {
		b := quietBench()
		layout := waveform.DefaultLayout()
		layout.Channels[sequence.RoleSync] = 4
		set, err := waveform.BuildKind(waveform.KindCW, waveform.Params{N: 2, Period: 1000, LockIn: true}, layout)
		So(err, ShouldBeNil)
		period, err := set.Period()
		So(err, ShouldBeNil)
		setup := ifc.CounterSetup{BinWidth: period, NValues: 2, LockIn: true}

		on := run(b, set, setup, 2.87e9)
		So(on, ShouldHaveLength, 2)
		So(on[0], ShouldAlmostEqual, -0.005, 1e-12)
		off := run(b, set, setup, 3.0e9)
		So(off[0], ShouldBeLessThan, 0)
		So(off[0], ShouldBeGreaterThan, on[0])
	})
}

func TestBenchPulsed(t *testing.T) {
	Convey("Given a pulsed sequence with a π pulse and dual readout", t, func() {
		b := quietBench()
		p := waveform.Params{
			N: 2, TInit: 5000, InterInitMW: 1000, TMW: 100, InterMWRead: 100,
			TReadSig: 400, InterReadout: 200, TReadRef: 400, InterPeriod: 200, DualReadout: true,
		}
		set, err := waveform.BuildKind(waveform.KindPulsed, p, waveform.DefaultLayout())
		So(err, ShouldBeNil)
		period, err := set.Period()
		So(err, ShouldBeNil)

		counts := run(b, set, ifc.CounterSetup{BinWidth: period, NValues: 4, Gated: true}, 2.87e9)
		So(len(counts), ShouldEqual, 4)
		So(counts[0], ShouldAlmostEqual, 16, 1e-9)
		So(counts[1], ShouldAlmostEqual, 20, 1e-9)
		So(counts[2], ShouldAlmostEqual, 16, 1e-9)
		So(counts[3], ShouldAlmostEqual, 20, 1e-9)
	})

	Convey("Shot noise is reproducible for a seed", t, func() {
		set, err := waveform.BuildKind(waveform.KindCW, waveform.Params{N: 5, Period: 10000}, waveform.DefaultLayout())
		So(err, ShouldBeNil)
		setup := ifc.CounterSetup{BinWidth: 10000, NValues: 5}
		a := run(NewBench(DefaultModel(), sequence.DefaultChannelMap(), 7), set, setup, 2.9e9)
		c := run(NewBench(DefaultModel(), sequence.DefaultChannelMap(), 7), set, setup, 2.9e9)
		So(a, ShouldResemble, c)
	})
}
