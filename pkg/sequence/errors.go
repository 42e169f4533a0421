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

package sequence

import (
	"fmt"
)

// ErrInvalidSequence is returned when a pulse train violates the
// legality rules of the pulse generator.
type ErrInvalidSequence struct {
	Channel int
	Role    Role
	Index   int
	Width   int64
	What    string
}

func (e ErrInvalidSequence) Error() string {
	where := fmt.Sprintf("channel %d", e.Channel)
	if e.Role != "" {
		where = fmt.Sprintf("%s (%s)", where, e.Role)
	}
	if e.Index >= 0 {
		return fmt.Sprintf("Invalid sequence on %s: segment %d width %d ns: %s", where, e.Index, e.Width, e.What)
	}
	return fmt.Sprintf("Invalid sequence on %s: %s", where, e.What)
}

// ErrUnknownRole returned when a role has no channel assigned
type ErrUnknownRole struct {
	Role Role
}

func (e ErrUnknownRole) Error() string {
	return fmt.Sprintf("No channel assigned to role: %s", e.Role)
}
