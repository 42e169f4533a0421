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

package control

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-odmr/pkg/command"
	"jinr.ru/greenlab/go-odmr/pkg/config"
)

const (
	IPOptionName        = "ip"
	PortOptionName      = "port"
	SimulateOptionName  = "simulate"
	DBPathOptionName    = "db"
	OutputDirOptionName = "output-dir"
)

func NewStartCommand(cfg *config.Config) *cobra.Command {
	var ip, dbPath, outputDir string
	var port int
	var simulate bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start control server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ip != "" {
				if net.ParseIP(ip) == nil {
					return fmt.Errorf("invalid IP: %s", ip)
				}
				cfg.Api.IP = ip
			}
			if port != 0 {
				cfg.Api.Port = port
			}
			if cmd.Flags().Changed(SimulateOptionName) {
				cfg.Device.Simulate = simulate
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}
			if outputDir != "" {
				cfg.Scheduler.OutputDir = outputDir
			}
			return command.StartControlServer(cfg)
		},
	}
	cmd.Flags().StringVar(&ip, IPOptionName, "", fmt.Sprintf("IP to bind. E.g. %s", config.DefaultApiIP))
	cmd.Flags().IntVar(&port, PortOptionName, 0, fmt.Sprintf("Port to bind. E.g. %d", config.DefaultApiPort))
	cmd.Flags().BoolVar(&simulate, SimulateOptionName, false, "Use the simulated bench instead of hardware")
	cmd.Flags().StringVar(&dbPath, DBPathOptionName, "", "Path of the run database")
	cmd.Flags().StringVar(&outputDir, OutputDirOptionName, "", "Directory for measurement files")

	return cmd
}
