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

package device

import (
	"fmt"
	"time"
)

// ErrDeviceConnection wraps any failure reported by an instrument.
// A sweep hitting it is aborted without retry.
type ErrDeviceConnection struct {
	Device string
	Op     string
	Err    error
}

func (e ErrDeviceConnection) Error() string {
	return fmt.Sprintf("Device %s: %s failed: %v", e.Device, e.Op, e.Err)
}

func (e ErrDeviceConnection) Unwrap() error {
	return e.Err
}

// ErrDeviceTimeout is returned when an instrument call does not
// return within the session timeout.
type ErrDeviceTimeout struct {
	Device  string
	Op      string
	Timeout time.Duration
}

func (e ErrDeviceTimeout) Error() string {
	return fmt.Sprintf("Device %s: %s timed out after %s", e.Device, e.Op, e.Timeout)
}

// ErrNoSequence ...
type ErrNoSequence struct{}

func (e ErrNoSequence) Error() string {
	return "No sequence loaded"
}

// ErrMissingInstrument ...
type ErrMissingInstrument struct {
	Device string
}

func (e ErrMissingInstrument) Error() string {
	return fmt.Sprintf("Instrument not configured: %s", e.Device)
}
