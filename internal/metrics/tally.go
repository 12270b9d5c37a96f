package metrics

import (
	"sort"
	"strconv"
	"time"
)

// ToolStat aggregates calls to one tool.
type ToolStat struct {
	Calls  int
	Errors int
	Total  time.Duration
}

// RunTally accumulates counts for one run. It is owned by the runner's
// single goroutine and is not safe for concurrent use.
type RunTally struct {
	TransportCalls int
	TransportTime  time.Duration
	ToolCalls      int
	ToolErrors     int
	PerTool        map[string]*ToolStat
}

func NewRunTally() *RunTally {
	return &RunTally{PerTool: make(map[string]*ToolStat)}
}

func (t *RunTally) RecordTransport(d time.Duration) {
	t.TransportCalls++
	t.TransportTime += d
}

func (t *RunTally) RecordTool(name string, d time.Duration, isErr bool) {
	t.ToolCalls++
	st, ok := t.PerTool[name]
	if !ok {
		st = &ToolStat{}
		t.PerTool[name] = st
	}
	st.Calls++
	st.Total += d
	if isErr {
		t.ToolErrors++
		st.Errors++
	}
}

// Rows renders the per-tool stats as table rows sorted by tool name:
// name, calls, errors, total duration.
func (t *RunTally) Rows() [][]string {
	names := make([]string, 0, len(t.PerTool))
	for n := range t.PerTool {
		names = append(names, n)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, n := range names {
		st := t.PerTool[n]
		rows = append(rows, []string{
			n,
			strconv.Itoa(st.Calls),
			strconv.Itoa(st.Errors),
			st.Total.Round(time.Millisecond).String(),
		})
	}
	return rows
}
