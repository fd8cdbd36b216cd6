// Package sim owns the fixed-tick accumulator and the Engine facade a
// rendering/UI/host-shell consumer imports: the only package outside
// internal/sim/kernels/cpuref that orchestrates a full tick.
package sim

// MaxTicksPerFrame caps how many simulation ticks one Advance call will
// run, so a long host-side stall (a debugger pause, a slow frame)
// cannot make the simulation try to catch up by running hundreds of
// ticks back to back.
const MaxTicksPerFrame = 3

// MinTickRate and MaxTickRate bound the configurable target tick rate.
const (
	MinTickRate = 1.0
	MaxTickRate = 60.0
)

// Scheduler is a fixed-tick accumulator, generalized from the engine's
// per-frame Time resource (mod_time.go) from a render-frame clock into
// a tick-rate clock: instead of reporting elapsed wall time for one
// frame, it decides how many simulation ticks that elapsed time is
// worth at the configured rate.
type Scheduler struct {
	tickRate     float64
	accumulator  float64
	paused       bool
	stepRequests int
}

// NewScheduler returns a Scheduler targeting tickRate ticks/second,
// clamped to [MinTickRate, MaxTickRate].
func NewScheduler(tickRate float64) *Scheduler {
	s := &Scheduler{}
	s.SetTickRate(tickRate)
	return s
}

// SetTickRate changes the target rate, clamped to the supported range.
func (s *Scheduler) SetTickRate(hz float64) {
	if hz < MinTickRate {
		hz = MinTickRate
	}
	if hz > MaxTickRate {
		hz = MaxTickRate
	}
	s.tickRate = hz
}

// TickRate reports the current target rate.
func (s *Scheduler) TickRate() float64 { return s.tickRate }

// Pause stops Advance from accumulating toward new ticks.
func (s *Scheduler) Pause() { s.paused = true }

// Resume lets Advance resume normal accumulation.
func (s *Scheduler) Resume() { s.paused = false }

// Paused reports whether the scheduler is currently paused.
func (s *Scheduler) Paused() bool { return s.paused }

// Step requests exactly one tick be run on the next Advance call, even
// while paused — the host's single-step control.
func (s *Scheduler) Step() {
	s.stepRequests++
}

// Advance consumes dtSeconds of wall time and invokes runTick once per
// simulation tick that has become due, up to MaxTicksPerFrame per call.
// Returns the number of ticks actually run.
func (s *Scheduler) Advance(dtSeconds float64, runTick func()) int {
	ran := 0

	for s.stepRequests > 0 && ran < MaxTicksPerFrame {
		runTick()
		s.stepRequests--
		ran++
	}

	if s.paused {
		return ran
	}

	s.accumulator += dtSeconds
	tickPeriod := 1.0 / s.tickRate

	for s.accumulator >= tickPeriod && ran < MaxTicksPerFrame {
		runTick()
		s.accumulator -= tickPeriod
		ran++
	}

	// A stall long enough to owe more than MaxTicksPerFrame ticks drops
	// the excess rather than ever trying to "catch up" unboundedly.
	if s.accumulator > tickPeriod*MaxTicksPerFrame {
		s.accumulator = tickPeriod * MaxTicksPerFrame
	}

	return ran
}
