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

package waveform

import (
	"fmt"
	"strings"

	"jinr.ru/greenlab/go-odmr/pkg/sequence"
)

// ErrConfiguration is returned for timing parameters that cannot be
// turned into a sequence. It is raised before any device I/O.
type ErrConfiguration struct {
	Param string
	Value interface{}
	Role  sequence.Role
	What  string
}

func (e ErrConfiguration) Error() string {
	var parts []string
	if e.Role != "" {
		parts = append(parts, fmt.Sprintf("role %s", e.Role))
	}
	if e.Param != "" {
		parts = append(parts, fmt.Sprintf("%s = %v", e.Param, e.Value))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("Configuration error: %s", e.What)
	}
	return fmt.Sprintf("Configuration error: %s: %s", strings.Join(parts, ", "), e.What)
}

// ErrUnknownKind ...
type ErrUnknownKind struct {
	Kind string
}

func (e ErrUnknownKind) Error() string {
	return fmt.Sprintf("Unknown experiment kind: %s", e.Kind)
}
