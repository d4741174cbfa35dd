// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package telemetry holds the metric keys and attribute labels shared by
// the bus and the scheduler.
package telemetry

import (
	"log/slog"

	"github.com/hashicorp/go-metrics"
)

var (
	MetricChannelOpenCount   = []string{"corobus", "channel", "open", "count"}
	MetricChannelCloseCount  = []string{"corobus", "channel", "close", "count"}
	MetricChannelFreeCount   = []string{"corobus", "channel", "free", "count"}
	MetricChannelZombies     = []string{"corobus", "channel", "zombies"}
	MetricMessageSentCount   = []string{"corobus", "message", "sent", "count"}
	MetricMessageRecvCount   = []string{"corobus", "message", "recv", "count"}
	MetricWouldBlockCount    = []string{"corobus", "would_block", "count"}
	MetricWaitCount          = []string{"corobus", "wait", "count"}
	MetricBroadcastCount     = []string{"corobus", "broadcast", "count"}
	MetricSchedSpawnCount    = []string{"corobus", "sched", "spawn", "count"}
	MetricSchedDeadlockCount = []string{"corobus", "sched", "deadlock", "count"}
)

type Label string

var (
	LabelError     Label = "error"
	LabelChannel   Label = "channel"
	LabelCapacity  Label = "capacity"
	LabelWaiters   Label = "waiters"
	LabelOp        Label = "op"
	LabelCoroutine Label = "coroutine"
	LabelCount     Label = "count"
)

// M returns the label as a metric label.
func (lab Label) M(val string) metrics.Label {
	return metrics.Label{Name: string(lab), Value: val}
}

// L returns the label as a log attribute.
func (lab Label) L(val any) slog.Attr {
	return slog.Attr{
		Key:   string(lab),
		Value: slog.AnyValue(val),
	}
}

// Labels appends extra to static without aliasing the static slice.
func Labels(static []metrics.Label, extra ...metrics.Label) []metrics.Label {
	out := make([]metrics.Label, 0, len(static)+len(extra))
	out = append(out, static...)
	return append(out, extra...)
}
