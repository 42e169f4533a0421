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

// Package sim is a software bench: a pulse generator, MW source,
// counter and laser sharing one state, producing ODMR-like counts
// with a Lorentzian resonance and Rabi oscillation.
package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"jinr.ru/greenlab/go-odmr/pkg/device/ifc"
	"jinr.ru/greenlab/go-odmr/pkg/log"
	"jinr.ru/greenlab/go-odmr/pkg/sequence"
)

// Model of the simulated sample.
type Model struct {
	// Rate is the photon count rate in counts per ns of open readout.
	Rate float64 `json:"rate"`
	// ResonanceHz and LinewidthHz describe the spin resonance.
	ResonanceHz float64 `json:"resonance_hz"`
	LinewidthHz float64 `json:"linewidth_hz"`
	// Contrast is the relative fluorescence drop of a fully flipped spin.
	Contrast float64 `json:"contrast"`
	// PiNs is the π pulse width at PiPowerDBm.
	PiNs       float64 `json:"pi_ns"`
	PiPowerDBm float64 `json:"pi_power_dbm"`
	// Noise enables shot noise.
	Noise bool `json:"noise"`
}

func DefaultModel() Model {
	return Model{
		Rate:        0.05,
		ResonanceHz: 2.87e9,
		LinewidthHz: 8e6,
		Contrast:    0.2,
		PiNs:        100,
		PiPowerDBm:  0,
		Noise:       true,
	}
}

// lorentzian is 1 on resonance.
func (m Model) lorentzian(hz float64) float64 {
	if m.LinewidthHz <= 0 {
		return 0
	}
	x := 2 * (hz - m.ResonanceHz) / m.LinewidthHz
	return 1 / (1 + x*x)
}

// piNs at the given power; the Rabi frequency goes with sqrt(P).
func (m Model) piNs(dbm float64) float64 {
	return m.PiNs * math.Sqrt(math.Pow(10, (m.PiPowerDBm-dbm)/10))
}

// Bench is the shared state of the simulated instruments.
type Bench struct {
	mu       sync.Mutex
	model    Model
	channels sequence.ChannelMap
	rnd      *rand.Rand

	trains   [][]int64
	playing  bool
	freq     float64
	power    float64
	mwOn     bool
	laserOn  bool
	setup    ifc.CounterSetup
	counting bool
}

// NewBench returns a bench whose ASG channels are wired as given.
// The seed makes the shot noise reproducible.
func NewBench(model Model, channels sequence.ChannelMap, seed int64) *Bench {
	return &Bench{
		model:    model,
		channels: channels,
		rnd:      rand.New(rand.NewSource(seed)),
		freq:     model.ResonanceHz,
		laserOn:  true,
	}
}

func (b *Bench) ASG() ifc.PulseGenerator { return &asg{b} }
func (b *Bench) MW() ifc.Microwave       { return &mw{b} }
func (b *Bench) Counter() ifc.Counter    { return &counter{b} }
func (b *Bench) Laser() ifc.Laser        { return &laser{b} }

// Frequency returns the current MW frequency in Hz.
func (b *Bench) Frequency() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.freq
}

// Output returns whether the MW output is on.
func (b *Bench) Output() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mwOn
}

func (b *Bench) train(r sequence.Role) sequence.PulseTrain {
	ch, ok := b.channels[r]
	if !ok || ch < 1 || ch > len(b.trains) {
		return nil
	}
	return sequence.PulseTrain(b.trains[ch-1])
}

// windows returns the active intervals of a train.
func windows(p sequence.PulseTrain) [][2]int64 {
	var out [][2]int64
	var t int64
	for j, d := range p {
		if j%2 == 0 && d > 0 {
			out = append(out, [2]int64{t, t + d})
		}
		t += d
	}
	return out
}

// highBefore is the total active time of p before t.
func highBefore(p sequence.PulseTrain, t int64) int64 {
	var acc, now int64
	for j, d := range p {
		if now >= t {
			break
		}
		if j%2 == 0 {
			acc += minInt64(d, t-now)
		}
		now += d
	}
	return acc
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// means returns the expected counts per bin for the current state.
func (b *Bench) means() []float64 {
	n := b.setup.NValues
	out := make([]float64, n)
	if !b.playing || !b.counting || !b.laserOn || n == 0 {
		return out
	}
	mwTrain := b.train(sequence.RoleMW)
	flip := 0.0
	if b.mwOn && !mwTrain.IsOff() {
		flip = b.model.lorentzian(b.freq)
	}

	if b.setup.LockIn {
		// difference between the MW-on and MW-off halves of the chop
		v := -0.5 * b.model.Rate * b.model.Contrast * flip
		for i := range out {
			out[i] = v
		}
		return out
	}

	if !b.setup.Gated {
		// CW: the spin is continuously driven and the bin is the period.
		mwDuty := 0.0
		if s := mwTrain.Sum(); s > 0 {
			mwDuty = float64(highBefore(mwTrain, s)) / float64(s)
		}
		mean := b.model.Rate * float64(b.setup.BinWidth) * (1 - 0.5*b.model.Contrast*flip*mwDuty)
		for i := range out {
			out[i] = mean
		}
		return out
	}

	gates := windows(b.train(sequence.RoleTagger))
	if len(gates) == 0 {
		return out
	}
	// population moved by the MW pulses ahead of the first readout
	tm := float64(highBefore(mwTrain, gates[0][0]))
	pop := flip * math.Pow(math.Sin(math.Pi*tm/(2*b.model.piNs(b.power))), 2)
	for i := range out {
		g := gates[i%len(gates)]
		mean := b.model.Rate * float64(g[1]-g[0])
		if i%len(gates) == 0 {
			mean *= 1 - b.model.Contrast*pop
		}
		out[i] = mean
	}
	return out
}

func (b *Bench) read() []float64 {
	out := b.means()
	if !b.model.Noise {
		return out
	}
	if b.setup.LockIn {
		sigma := 0.05 * b.model.Rate * b.model.Contrast
		for i := range out {
			out[i] += sigma * b.rnd.NormFloat64()
		}
		return out
	}
	for i, m := range out {
		v := math.Round(m + math.Sqrt(m)*b.rnd.NormFloat64())
		if v < 0 {
			v = 0
		}
		out[i] = v
	}
	return out
}

type asg struct{ b *Bench }

var _ ifc.PulseGenerator = &asg{}

func (a *asg) Connect(context.Context) error { return nil }

func (a *asg) Load(_ context.Context, trains [][]int64) error {
	if len(trains) != sequence.NumChannels {
		return fmt.Errorf("expected %d channels, got %d", sequence.NumChannels, len(trains))
	}
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	a.b.trains = make([][]int64, len(trains))
	for i, t := range trains {
		a.b.trains[i] = append([]int64(nil), t...)
	}
	log.Debug("sim asg: loaded %v", trains)
	return nil
}

func (a *asg) Start(_ context.Context, count int) error {
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	if a.b.trains == nil {
		return fmt.Errorf("no data loaded")
	}
	a.b.playing = true
	return nil
}

func (a *asg) Stop(context.Context) error {
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	a.b.playing = false
	return nil
}

func (a *asg) Close() error { return nil }

type mw struct{ b *Bench }

var _ ifc.Microwave = &mw{}

func (m *mw) Connect(context.Context) error { return nil }

func (m *mw) SetFrequency(_ context.Context, hz float64) error {
	if hz <= 0 {
		return fmt.Errorf("frequency out of range: %g Hz", hz)
	}
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	m.b.freq = hz
	return nil
}

func (m *mw) SetPower(_ context.Context, dbm float64) error {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	m.b.power = dbm
	return nil
}

func (m *mw) SetOutput(_ context.Context, on bool) error {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	m.b.mwOn = on
	return nil
}

func (m *mw) Close() error { return nil }

type counter struct{ b *Bench }

var _ ifc.Counter = &counter{}

func (c *counter) Connect(context.Context) error { return nil }

func (c *counter) Configure(_ context.Context, setup ifc.CounterSetup) error {
	if setup.NValues < 1 || setup.BinWidth < 1 {
		return fmt.Errorf("invalid counter setup: %+v", setup)
	}
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	c.b.setup = setup
	return nil
}

func (c *counter) Start(context.Context) error {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	c.b.counting = true
	return nil
}

func (c *counter) Stop(context.Context) error {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	c.b.counting = false
	return nil
}

func (c *counter) Clear(context.Context) error { return nil }

func (c *counter) ReadCounts(context.Context) ([]float64, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	return c.b.read(), nil
}

func (c *counter) Close() error { return nil }

type laser struct{ b *Bench }

var _ ifc.Laser = &laser{}

func (l *laser) Connect(context.Context) error { return nil }

func (l *laser) SetOutput(_ context.Context, on bool) error {
	l.b.mu.Lock()
	defer l.b.mu.Unlock()
	l.b.laserOn = on
	return nil
}

func (l *laser) Close() error { return nil }
