// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched

import (
	"log/slog"

	"github.com/hashicorp/go-metrics"
)

const defaultInboxSize = 256

// Options configures scheduler creation.
type Options struct {
	inboxSize    int
	logHandler   slog.Handler
	msink        metrics.MetricSink
	metricLabels []metrics.Label
}

// Builder creates schedulers with fluent configuration.
//
// Example:
//
//	s := sched.New().InboxSize(1024).Log(handler).Build()
type Builder struct {
	opts Options
}

// New creates a scheduler builder with default options.
func New() *Builder {
	return &Builder{opts: Options{inboxSize: defaultInboxSize}}
}

// InboxSize sets the capacity of the cross-goroutine Post inbox.
// Capacity rounds up to the next power of 2.
//
// Panics if n < 2.
func (b *Builder) InboxSize(n int) *Builder {
	if n < 2 {
		panic("sched: inbox size must be >= 2")
	}
	b.opts.inboxSize = n
	return b
}

// Log sets the slog.Handler used for scheduler events.
// A nil handler selects slog.Default().
func (b *Builder) Log(handler slog.Handler) *Builder {
	b.opts.logHandler = handler
	return b
}

// Metrics sets the sink receiving scheduler metrics.
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

// Build creates the Scheduler.
func (b *Builder) Build() *Scheduler {
	return newScheduler(b.opts)
}
