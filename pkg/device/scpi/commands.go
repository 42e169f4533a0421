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

package scpi

// Command is an alias of a SCPI command understood by the source.
type Command int

const (
	CmdIdentify Command = iota
	CmdClear
	CmdFrequency
	CmdPower
	CmdOutput
	CmdLocal
)

// CommandMap holds the wire form of every command. Sources with a
// different dialect can be served by replacing entries.
type CommandMap map[Command]string

func DefaultCommandMap() CommandMap {
	return CommandMap{
		CmdIdentify:  "*IDN?",
		CmdClear:     "*CLS",
		CmdFrequency: "SOUR:FREQ %.0f",
		CmdPower:     "SOUR:POW %.2f",
		CmdOutput:    "OUTP:STAT %s",
		CmdLocal:     "SYST:LOC",
	}
}

// Prologix controller commands, sent with a ++ prefix.
const (
	prologixMode    = "mode 1"
	prologixAddr    = "addr %d"
	prologixAuto    = "auto 0"
	prologixEOI     = "eoi 1"
	prologixEOS     = "eos 2"
	prologixTimeout = "read_tmo_ms %d"
	prologixEOT     = "eot_enable 0"
	prologixRead    = "read eoi"
	prologixLocal   = "loc"
)
