package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Eudes8/Compta/output"
)

// stepClock advances by step on every reading.
type stepClock struct {
	t    time.Time
	step time.Duration
}

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func newClock(step time.Duration) *stepClock {
	return &stepClock{t: time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC), step: step}
}

func TestNoOpCollector(t *testing.T) {
	collector := noOpCollector{}

	timer := collector.Start("session.save")
	timer.Child("port.save_document").End()
	timer.End()

	var buf bytes.Buffer
	collector.Report(&buf, nil)
	assert.Equal(t, "", buf.String())
}

func TestFromContext(t *testing.T) {
	_, ok := FromContext(context.Background()).(noOpCollector)
	assert.True(t, ok)

	collector := NewTimingCollector()
	ctx := WithCollector(context.Background(), collector)
	got, ok := FromContext(ctx).(*TimingCollector)
	assert.True(t, ok)
	assert.True(t, got == collector)
}

func TestTimingCollectorTree(t *testing.T) {
	collector := NewTimingCollector(WithClock(newClock(10 * time.Millisecond).now))

	save := collector.Start("session.save")
	call := save.Child("port.save_document")
	call.Child("store.insert_lines").End()
	call.End()
	// Started while session.save is open, so it nests.
	collector.Start("session.suggest_number").End()
	save.End()

	var buf bytes.Buffer
	collector.Report(&buf, nil)

	want := strings.Join([]string{
		"session.save: 70ms",
		"├─ port.save_document: 30ms",
		"│  └─ store.insert_lines: 10ms",
		"└─ session.suggest_number: 10ms",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestTimingCollectorKeepsRecentRoots(t *testing.T) {
	collector := NewTimingCollector(WithClock(newClock(time.Millisecond).now), WithMaxRoots(2))

	for _, name := range []string{"one", "two", "three"} {
		collector.Start(name).End()
	}

	var buf bytes.Buffer
	collector.Report(&buf, nil)
	assert.Equal(t, "two: 1ms\nthree: 1ms\n", buf.String())
}

func TestTimingCollectorStyledReport(t *testing.T) {
	collector := NewTimingCollector(WithClock(newClock(200 * time.Millisecond).now))
	timer := collector.Start("import")
	timer.Child("accounts").End()
	timer.End()

	var buf bytes.Buffer
	collector.Report(&buf, output.NewStyles(&buf))

	out := buf.String()
	assert.Contains(t, out, "import")
	assert.Contains(t, out, "accounts")
	assert.Contains(t, out, "200ms")
}

func TestSlowest(t *testing.T) {
	clock := newClock(time.Millisecond)
	collector := NewTimingCollector(WithClock(clock.now))

	_, _, ok := collector.Slowest()
	assert.False(t, ok)

	collector.Start("fast").End()
	slow := collector.Start("slow")
	clock.step = 50 * time.Millisecond
	slow.End()

	name, d, ok := collector.Slowest()
	assert.True(t, ok)
	assert.Equal(t, "slow", name)
	assert.Equal(t, 50*time.Millisecond, d)
}

func TestEndTwice(t *testing.T) {
	collector := NewTimingCollector(WithClock(newClock(time.Millisecond).now))
	timer := collector.Start("save")
	timer.End()
	timer.End()

	var buf bytes.Buffer
	collector.Report(&buf, nil)
	assert.Equal(t, "save: 1ms\n", buf.String())
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		want     string
	}{
		{0, "…"},
		{time.Millisecond, "1ms"},
		{999 * time.Millisecond, "999ms"},
		{time.Second, "1.00s"},
		{1500 * time.Millisecond, "1.50s"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.duration))
	}
}

func TestLogCollector(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	clock := newClock(10 * time.Millisecond)
	collector := NewLogCollector(zap.New(core), 100*time.Millisecond)
	collector.now = clock.now

	timer := collector.Start("GET /api/documents/{number}")
	timer.Child("store.fetch").End()
	clock.step = 150 * time.Millisecond
	timer.End()

	entries := logs.AllUntimed()
	assert.Equal(t, 2, len(entries))
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "GET /api/documents/{number} > store.fetch", entries[0].ContextMap()["operation"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "slow operation", entries[1].Message)
}
