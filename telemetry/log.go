package telemetry

import (
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/Eudes8/Compta/output"
)

// LogCollector writes each finished timer to a zap logger: debug level for
// normal operations, warn level from the slow threshold. It is used by the
// long-running server where a report at exit is of little use.
type LogCollector struct {
	logger *zap.Logger
	slow   time.Duration
	now    func() time.Time
}

// NewLogCollector creates a collector logging to logger.
func NewLogCollector(logger *zap.Logger, slow time.Duration) *LogCollector {
	if slow <= 0 {
		slow = DefaultSlowThreshold
	}
	return &LogCollector{logger: logger, slow: slow, now: time.Now}
}

func (c *LogCollector) Start(name string) Timer {
	return &logTimer{collector: c, name: name, start: c.now()}
}

// Report does nothing; timers were logged as they ended.
func (c *LogCollector) Report(w io.Writer, styles *output.Styles) {}

type logTimer struct {
	collector *LogCollector
	name      string
	start     time.Time
	done      bool
}

func (t *logTimer) End() {
	if t.done {
		return
	}
	t.done = true

	elapsed := t.collector.now().Sub(t.start)
	fields := []zap.Field{zap.String("operation", t.name), zap.Duration("elapsed", elapsed)}
	if elapsed >= t.collector.slow {
		t.collector.logger.Warn("slow operation", fields...)
		return
	}
	t.collector.logger.Debug("operation finished", fields...)
}

func (t *logTimer) Child(name string) Timer {
	return &logTimer{collector: t.collector, name: t.name + " > " + name, start: t.collector.now()}
}
