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

package command

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"jinr.ru/greenlab/go-odmr/pkg/sequence"
	"jinr.ru/greenlab/go-odmr/pkg/srv/control"
	"jinr.ru/greenlab/go-odmr/pkg/srv/control/ifc"
	"jinr.ru/greenlab/go-odmr/pkg/store"
)

// DrawTable renders rows under a header.
func DrawTable(out io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.AppendBulk(rows)
	table.Render()
}

func DrawState(out io.Writer, st *ifc.State) {
	rows := [][]string{
		{"state", st.State.String()},
		{"kind", string(st.Kind)},
		{"sweep", st.Sweep},
		{"progress", fmt.Sprintf("%d/%d", st.Point, st.Points)},
		{"period", fmt.Sprintf("%d ns", st.Timing.Period)},
		{"per point", fmt.Sprintf("%.6f s", st.Timing.Pad+st.Timing.Dwell)},
		{"frequency", fmt.Sprintf("%.6f GHz", st.Frequency/1e9)},
		{"power", fmt.Sprintf("%.2f dBm", st.Power)},
		{"π pulse", st.PiPulse.String()},
		{"simulated", fmt.Sprintf("%t", st.Simulated)},
	}
	if st.LastRun != nil {
		rows = append(rows, []string{"last run", fmt.Sprintf("%s %s (%d points)", st.LastRun.Name, st.LastRun.Status, st.LastRun.Points)})
	}
	DrawTable(out, []string{"Key", "Value"}, rows)
}

func DrawSequence(out io.Writer, view *control.SequenceView) {
	roles := make([]sequence.Role, 0, len(view.Channels))
	for role := range view.Channels {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool {
		return view.Channels[roles[i]] < view.Channels[roles[j]]
	})
	var rows [][]string
	for _, role := range roles {
		ch := view.Channels[role]
		train := view.Trains[ch-1]
		parts := make([]string, len(train))
		for i, w := range train {
			parts[i] = strconv.FormatInt(w, 10)
		}
		rows = append(rows, []string{strconv.Itoa(ch), string(role), strings.Join(parts, " ")})
	}
	DrawTable(out, []string{"Channel", "Role", "Train, ns"}, rows)
	fmt.Fprintf(out, "period %d ns\n%s", view.Period, view.Chart)
}

func DrawRuns(out io.Writer, runs []store.Run) {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			r.Name,
			r.Kind,
			r.Date.Format(time.RFC3339),
			fmt.Sprintf("%d", r.Points),
			r.Status,
			r.Base,
		})
	}
	DrawTable(out, []string{"ID", "Name", "Kind", "Date", "Points", "Status", "Files"}, rows)
}
