// Package profiler - Per-frame stage timing and rolling latency statistics.
package profiler

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Stage names one step of the frame pipeline.
type Stage string

// Stage constants in pipeline order.
const (
	StageDecode     Stage = "decode"
	StagePreprocess Stage = "preproc"
	StageToDevice   Stage = "to_device"
	StageInfer      Stage = "infer"
	StageInterp     Stage = "interp"
	StageToCPU      Stage = "cpu"
	StageNormalize  Stage = "norm"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{
	StageDecode,
	StagePreprocess,
	StageToDevice,
	StageInfer,
	StageInterp,
	StageToCPU,
	StageNormalize,
}

// Frame records lap times for one pass through the pipeline.
type Frame struct {
	start time.Time
	last  time.Time
	laps  map[Stage]time.Duration
	now   func() time.Time
}

// StartFrame begins timing a frame.
func StartFrame() *Frame {
	return startFrame(time.Now)
}

func startFrame(now func() time.Time) *Frame {
	t := now()
	return &Frame{start: t, last: t, laps: make(map[Stage]time.Duration, len(Stages)), now: now}
}

// Mark attributes the time since the previous mark to stage.
func (f *Frame) Mark(stage Stage) {
	t := f.now()
	f.laps[stage] += t.Sub(f.last)
	f.last = t
}

// Lap returns the recorded time of a stage; unmarked stages are zero.
func (f *Frame) Lap(stage Stage) time.Duration {
	return f.laps[stage]
}

// Total is the time since StartFrame up to the last mark.
func (f *Frame) Total() time.Duration {
	return f.last.Sub(f.start)
}

// Fields renders the laps in milliseconds for a structured log entry.
func (f *Frame) Fields() []zap.Field {
	fields := make([]zap.Field, 0, len(Stages)+1)
	for _, stage := range Stages {
		fields = append(fields, zap.Float64(string(stage)+"_ms", millis(f.laps[stage])))
	}
	return append(fields, zap.Float64("total_ms", millis(f.Total())))
}

// TimeTracker tracks operation timing statistics.
type TimeTracker struct {
	count     int64
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
}

// Stat is a snapshot of a TimeTracker.
type Stat struct {
	Count int64         `json:"count"`
	Avg   time.Duration `json:"avg"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
}

func (t *TimeTracker) record(d time.Duration) {
	if t.count == 0 || d < t.minTime {
		t.minTime = d
	}
	if d > t.maxTime {
		t.maxTime = d
	}
	t.totalTime += d
	t.count++
}

func (t *TimeTracker) stat() Stat {
	if t.count == 0 {
		return Stat{}
	}
	return Stat{Count: t.count, Avg: t.totalTime / time.Duration(t.count), Min: t.minTime, Max: t.maxTime}
}

// Tracker aggregates frames into rolling per-stage statistics.
type Tracker struct {
	mu     sync.Mutex
	stages map[Stage]*TimeTracker
	total  TimeTracker
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	stages := make(map[Stage]*TimeTracker, len(Stages))
	for _, stage := range Stages {
		stages[stage] = &TimeTracker{}
	}
	return &Tracker{stages: stages}
}

// Record adds a finished frame.
func (t *Tracker) Record(f *Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, stage := range Stages {
		t.stages[stage].record(f.laps[stage])
	}
	t.total.record(f.Total())
}

// Stat returns the statistics of one stage.
func (t *Tracker) Stat(stage Stage) Stat {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tt, ok := t.stages[stage]; ok {
		return tt.stat()
	}
	return Stat{}
}

// Total returns the statistics of whole frames.
func (t *Tracker) Total() Stat {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total.stat()
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
