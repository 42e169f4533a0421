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

package channel

import (
	"fmt"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-odmr/pkg/command"
	"jinr.ru/greenlab/go-odmr/pkg/config"
	"jinr.ru/greenlab/go-odmr/pkg/srv/control"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:       "channel <role> on|off",
		Short:     "Keep one channel on or off for the whole period, e.g. the laser",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{control.StateOn, control.StateOff},
		RunE: func(cmd *cobra.Command, args []string) error {
			var on bool
			switch args[1] {
			case control.StateOn:
				on = true
			case control.StateOff:
			default:
				return fmt.Errorf("state must be %s or %s", control.StateOn, control.StateOff)
			}
			return command.NewApiClient(cfg).Channel(args[0], on)
		},
	}
}
