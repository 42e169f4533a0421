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
	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-odmr/pkg/command"
	"jinr.ru/greenlab/go-odmr/pkg/config"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sequence",
		Short: "Inspect the loaded sequence",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the trains and a strip chart",
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := command.NewApiClient(cfg).Sequence()
			if err != nil {
				return err
			}
			command.DrawSequence(cmd.OutOrStdout(), view)
			return nil
		},
	})
	return cmd
}
