// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package corobus

import (
	"log/slog"

	"github.com/hashicorp/go-metrics"
)

const defaultInitialSlots = 4

// Options configures bus creation.
type Options struct {
	sched Scheduler

	// Channel table
	initialSlots int // Table capacity before the first doubling

	// Telemetry
	logHandler   slog.Handler
	msink        metrics.MetricSink
	metricLabels []metrics.Label
}

// Builder creates buses with fluent configuration.
//
// Example:
//
//	// Default bus on a cooperative scheduler
//	bus := corobus.Build[uint32](corobus.New(s))
//
//	// Larger initial table, debug logging and metrics
//	bus := corobus.Build[Event](corobus.New(s).
//	    InitialSlots(64).
//	    Log(handler).
//	    Metrics(sink))
type Builder struct {
	opts Options
}

// New creates a bus builder bound to the given scheduler.
//
// Panics if s is nil.
func New(s Scheduler) *Builder {
	if s == nil {
		panic("corobus: scheduler must not be nil")
	}
	return &Builder{opts: Options{
		sched:        s,
		initialSlots: defaultInitialSlots,
	}}
}

// InitialSlots sets the channel table capacity allocated on the first Open.
// The table doubles each time it runs out of free slots.
//
// Panics if n < 1.
func (b *Builder) InitialSlots(n int) *Builder {
	if n < 1 {
		panic("corobus: initial slots must be >= 1")
	}
	b.opts.initialSlots = n
	return b
}

// Log sets the slog.Handler receiving channel lifecycle events.
// A nil handler selects slog.Default().
func (b *Builder) Log(handler slog.Handler) *Builder {
	b.opts.logHandler = handler
	return b
}

// Metrics sets the sink receiving bus metrics.
// A nil sink discards them.
func (b *Builder) Metrics(sink metrics.MetricSink) *Builder {
	b.opts.msink = sink
	return b
}

// MetricLabels adds static labels to every emitted metric.
func (b *Builder) MetricLabels(labels ...metrics.Label) *Builder {
	b.opts.metricLabels = append(b.opts.metricLabels, labels...)
	return b
}

// Build creates a Bus carrying messages of type T.
//
// Messages are copied into the channel buffer on send and copied out on
// receive. For large types, carry pointers or indices instead.
func Build[T any](b *Builder) *Bus[T] {
	return newBus[T](b.opts)
}
