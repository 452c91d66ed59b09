// Package telemetry times the work done for a piece: backend calls, saves,
// imports, HTTP requests. Timers nest, so a save shows the port call it made.
//
// Collectors travel in the context, so instrumented code never needs to know
// whether timing is enabled:
//
//	collector := telemetry.NewTimingCollector()
//	ctx := telemetry.WithCollector(context.Background(), collector)
//
//	timer := telemetry.FromContext(ctx).Start("session.save")
//	call := timer.Child("port.save_document")
//	// ... work ...
//	call.End()
//	timer.End()
//
//	collector.Report(os.Stderr, output.NewStyles(os.Stderr))
package telemetry

import (
	"context"
	"io"

	"github.com/Eudes8/Compta/output"
)

type contextKey struct{}

var collectorKey = contextKey{}

// Collector receives timers.
type Collector interface {
	// Start begins timing an operation. The timer must be ended with End.
	Start(name string) Timer

	// Report writes what was collected. styles may be nil for plain text.
	Report(w io.Writer, styles *output.Styles)
}

// Timer tracks one operation.
type Timer interface {
	End()

	// Child starts a timer nested under this one.
	Child(name string) Timer
}

// WithCollector adds a collector to a context.
func WithCollector(ctx context.Context, collector Collector) context.Context {
	return context.WithValue(ctx, collectorKey, collector)
}

// FromContext returns the collector stored in ctx, or one that does nothing.
func FromContext(ctx context.Context) Collector {
	if collector, ok := ctx.Value(collectorKey).(Collector); ok {
		return collector
	}
	return noOpCollector{}
}
