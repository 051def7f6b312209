package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestFrameLaps(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	f := startFrame(c.now)

	c.advance(2 * time.Millisecond)
	f.Mark(StageDecode)
	c.advance(5 * time.Millisecond)
	f.Mark(StagePreprocess)
	c.advance(20 * time.Millisecond)
	f.Mark(StageInfer)

	assert.Equal(t, 2*time.Millisecond, f.Lap(StageDecode))
	assert.Equal(t, 5*time.Millisecond, f.Lap(StagePreprocess))
	assert.Equal(t, 20*time.Millisecond, f.Lap(StageInfer))
	assert.Zero(t, f.Lap(StageInterp), "unmarked stages are zero")
	assert.Equal(t, 27*time.Millisecond, f.Total())
}

func TestFrameFields(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	f := startFrame(c.now)
	c.advance(1500 * time.Microsecond)
	f.Mark(StageDecode)

	fields := f.Fields()
	assert.Len(t, fields, len(Stages)+1, "one field per stage plus total")
	assert.Equal(t, "decode_ms", fields[0].Key)
	assert.Equal(t, "total_ms", fields[len(fields)-1].Key)
}

func TestTracker(t *testing.T) {
	tracker := NewTracker()
	c := &clock{t: time.Unix(0, 0)}

	for _, d := range []time.Duration{10 * time.Millisecond, 30 * time.Millisecond} {
		f := startFrame(c.now)
		c.advance(d)
		f.Mark(StageInfer)
		tracker.Record(f)
	}

	stat := tracker.Stat(StageInfer)
	assert.Equal(t, int64(2), stat.Count)
	assert.Equal(t, 20*time.Millisecond, stat.Avg)
	assert.Equal(t, 10*time.Millisecond, stat.Min)
	assert.Equal(t, 30*time.Millisecond, stat.Max)
	assert.Equal(t, stat, tracker.Total(), "only one stage was timed")
	assert.Equal(t, Stat{}, tracker.Stat("unknown"))
}
