// Package profiler provides named scope timers and counters for the
// engine's tick loop, grounded on the engine's
// voxelrt/rt/app.Profiler: insertion-ordered scopes, a counts map, and a
// formatted stats dump for diagnostics overlays.
package profiler

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Profiler accumulates wall-clock durations for named scopes (one
// BeginScope/EndScope pair per tick dispatch) and arbitrary named
// counters (population, species count, buffer bytes, ...).
type Profiler struct {
	Scopes     map[string]time.Duration
	StartTimes map[string]time.Time
	Counts     map[string]int
	Order      []string
}

// New returns an empty Profiler.
func New() *Profiler {
	return &Profiler{
		Scopes:     make(map[string]time.Duration),
		StartTimes: make(map[string]time.Time),
		Counts:     make(map[string]int),
		Order:      make([]string, 0),
	}
}

// BeginScope marks the start of a named timing scope.
func (p *Profiler) BeginScope(name string) {
	p.StartTimes[name] = time.Now()
	for _, n := range p.Order {
		if n == name {
			return
		}
	}
	p.Order = append(p.Order, name)
}

// EndScope records the elapsed time since the matching BeginScope. A
// call with no matching BeginScope is a no-op.
func (p *Profiler) EndScope(name string) {
	if start, ok := p.StartTimes[name]; ok {
		p.Scopes[name] = time.Since(start)
	}
}

// SetCount records (overwriting) a named counter.
func (p *Profiler) SetCount(name string, count int) {
	p.Counts[name] = count
}

// Reset zeroes every recorded scope duration while keeping scope order
// stable across ticks.
func (p *Profiler) Reset() {
	for k := range p.Scopes {
		p.Scopes[k] = 0
	}
}

// GetStatsString renders timings and counters for a diagnostics overlay
// or a headless CLI's periodic log line.
func (p *Profiler) GetStatsString() string {
	var sb strings.Builder

	sb.WriteString("Tick timings:\n")
	for _, name := range p.Order {
		dur := p.Scopes[name]
		ms := float64(dur.Microseconds()) / 1000.0
		sb.WriteString(fmt.Sprintf("  %-22s: %.3f ms\n", name, ms))
	}

	sb.WriteString("\nCounters:\n")
	keys := make([]string, 0, len(p.Counts))
	for k := range p.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("  %-22s: %d\n", k, p.Counts[k]))
	}

	return sb.String()
}
