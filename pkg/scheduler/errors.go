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
	"fmt"

	"jinr.ru/greenlab/go-odmr/pkg/waveform"
)

// ErrConfiguration is raised for bad timing parameters or a bad axis,
// always before any device I/O.
type ErrConfiguration = waveform.ErrConfiguration

// ErrAlreadyClosed is returned by every operation after Close.
type ErrAlreadyClosed struct{}

func (e ErrAlreadyClosed) Error() string {
	return "Scheduler is closed"
}

// ErrInvalidState is returned for an operation the current state
// does not allow.
type ErrInvalidState struct {
	From State
	Op   string
}

func (e ErrInvalidState) Error() string {
	return fmt.Sprintf("Cannot %s in state %s", e.Op, e.From)
}
