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
	"encoding/json"
	"fmt"
)

// State of the scheduler.
type State int

const (
	// Idle means no sequence, or a stale one left loaded by the last run.
	Idle State = iota
	// Configured means a sequence was built and downloaded.
	Configured
	// Running means devices are started and a run is in progress.
	Running
	// Closed is terminal.
	Closed
)

var stateNames = map[State]string{
	Idle:       "idle",
	Configured: "configured",
	Running:    "running",
	Closed:     "closed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for k, v := range stateNames {
		if v == name {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown state: %s", name)
}
