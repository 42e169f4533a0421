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

package ifc

import (
	"context"
)

// PulseGenerator is a multi-channel arbitrary sequence generator.
// Load takes one train per physical channel, channel 1 first.
type PulseGenerator interface {
	Connect(ctx context.Context) error
	Load(ctx context.Context, trains [][]int64) error
	// Start plays the loaded sequence count times, 0 means forever.
	Start(ctx context.Context, count int) error
	Stop(ctx context.Context) error
	Close() error
}

// Microwave is a CW microwave source.
type Microwave interface {
	Connect(ctx context.Context) error
	// SetFrequency in Hz.
	SetFrequency(ctx context.Context, hz float64) error
	// SetPower in dBm.
	SetPower(ctx context.Context, dbm float64) error
	SetOutput(ctx context.Context, on bool) error
	Close() error
}

// CounterSetup describes how counts are binned.
type CounterSetup struct {
	// BinWidth in ns, one sequence period.
	BinWidth int64 `json:"bin_width"`
	// NValues is the number of bins returned by ReadCounts.
	NValues int `json:"n_values"`
	// Gated counters only count while the readout trigger channel is active.
	Gated bool `json:"gated"`
	// LockIn readouts are demodulated signals averaged over the bin,
	// referenced to the MW chopping. They are signed.
	LockIn bool `json:"lock_in"`
}

// Counter is a photon time tagger or a lock-in amplifier readout.
type Counter interface {
	Connect(ctx context.Context) error
	Configure(ctx context.Context, setup CounterSetup) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Clear(ctx context.Context) error
	// ReadCounts returns the bins accumulated since the last Clear.
	ReadCounts(ctx context.Context) ([]float64, error)
	Close() error
}

// Laser ...
type Laser interface {
	Connect(ctx context.Context) error
	SetOutput(ctx context.Context, on bool) error
	Close() error
}
