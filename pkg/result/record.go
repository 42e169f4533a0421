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

package result

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
)

const (
	StatCounts   = "counts"
	StatContrast = "contrast"

	StatusComplete = "complete"
	StatusAborted  = "aborted"

	DateFormat = "2006-01-02"
)

// Record is what gets persisted for a sweep, finished or not.
type Record struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Kind      string          `json:"kind"`
	Date      time.Time       `json:"date"`
	Statistic string          `json:"statistic"`
	WithRef   bool            `json:"with_ref"`
	Dual      bool            `json:"dual_readout"`
	AxisName  string          `json:"axis_name"`
	Axis      []float64       `json:"axis"`
	Counts    []float64       `json:"counts"`
	CountsRef []float64       `json:"counts_ref,omitempty"`
	Contrast  []float64       `json:"contrast,omitempty"`
	Raw       [][]float64     `json:"origin_data"`
	RawRef    [][]float64     `json:"origin_data_ref,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Status    string          `json:"status"`
	Error     string          `json:"error,omitempty"`
}

// RecordOptions describe the sweep a record comes from.
type RecordOptions struct {
	Name       string
	Kind       string
	AxisName   string
	Dual       bool
	Convention IndexConvention
	Params     interface{}
	Err        error
}

// NewRecord reduces the acquisition and fills in provenance. Dual
// readout and reference sweeps get counts for both conditions and the
// contrast; plain sweeps get counts only.
func NewRecord(a *Acquisition, opts RecordOptions) (*Record, error) {
	r := &Record{
		ID:       uuid.New().String(),
		Name:     opts.Name,
		Kind:     opts.Kind,
		Date:     time.Now(),
		WithRef:  a.HasReference(),
		Dual:     opts.Dual,
		AxisName: opts.AxisName,
		Raw:      a.Signal,
		RawRef:   a.Reference,
		Status:   StatusComplete,
	}
	if opts.Err != nil {
		r.Status = StatusAborted
		r.Error = opts.Err.Error()
	}
	if opts.Params != nil {
		raw, err := json.Marshal(opts.Params)
		if err != nil {
			return nil, errors.Wrap(err, "encoding params")
		}
		r.Params = raw
	}

	var counts Counts
	switch {
	case r.WithRef:
		counts = ReduceCounts(a)
	case opts.Dual:
		counts = ReduceDualCounts(a, opts.Convention)
	default:
		counts = ReduceCounts(a)
	}
	r.Axis = counts.Axis
	r.Counts = counts.Counts
	r.CountsRef = counts.CountsRef

	r.Statistic = StatCounts
	if r.WithRef || opts.Dual {
		r.Contrast = ReduceContrast(a, opts.Convention).Contrast
	}
	if opts.Dual && !r.WithRef {
		r.Statistic = StatContrast
	}
	return r, nil
}

// Values returns the reduced statistic.
func (r *Record) Values() []float64 {
	if r.Statistic == StatContrast {
		return r.Contrast
	}
	return r.Counts
}

// BaseName is the file name without extension:
// name-statistic[-with-ref]-date-id.
func (r *Record) BaseName() string {
	parts := []string{sanitize(r.Name), r.Statistic}
	if r.WithRef {
		parts = append(parts, "with-ref")
	}
	parts = append(parts, r.Date.Format(DateFormat), r.ID)
	return strings.Join(parts, "-")
}

func sanitize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "odmr"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', ':':
			return '_'
		}
		return r
	}, name)
}

// WriteTable writes the axis and the reduced values as plain columns.
func (r *Record) WriteTable(w io.Writer) {
	table := tablewriter.NewWriter(w)
	header := []string{r.AxisName, r.Statistic}
	if r.Statistic == StatCounts && r.CountsRef != nil {
		header = append(header, "counts_ref")
	}
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator("")
	table.SetCenterSeparator("")
	table.SetRowSeparator("")
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	values := r.Values()
	for i, x := range r.Axis {
		row := []string{fmt.Sprintf("%g", x), ""}
		if i < len(values) {
			row[1] = fmt.Sprintf("%g", values[i])
		}
		if len(header) == 3 {
			ref := ""
			if i < len(r.CountsRef) {
				ref = fmt.Sprintf("%g", r.CountsRef[i])
			}
			row = append(row, ref)
		}
		table.Append(row)
	}
	table.Render()
}

// Persist writes the record as JSON and as a plain text table into
// dir and returns the path without extension.
func Persist(dir string, r *Record) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	base := filepath.Join(dir, r.BaseName())

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encoding record")
	}
	if err = os.WriteFile(base+".json", data, 0644); err != nil {
		return "", err
	}

	f, err := os.Create(base + ".txt")
	if err != nil {
		return "", err
	}
	defer f.Close()
	r.WriteTable(f)
	return base, nil
}

// Load reads a record written by Persist.
func Load(path string) (*Record, error) {
	if !strings.HasSuffix(path, ".json") {
		path += ".json"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r := &Record{}
	if err = json.Unmarshal(data, r); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return r, nil
}
