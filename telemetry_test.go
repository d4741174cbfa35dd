// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package corobus_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"code.hybscloud.com/corobus"
	"code.hybscloud.com/corobus/sched"
	"github.com/hashicorp/go-metrics"
	"github.com/stretchr/testify/require"
)

// counters sums every counter in sink by flattened metric name.
func counters(sink *metrics.InmemSink) map[string]float64 {
	out := make(map[string]float64)
	for _, intv := range sink.Data() {
		for _, sv := range intv.Counters {
			out[sv.Name] += sv.Sum
		}
	}
	return out
}

func gauges(sink *metrics.InmemSink) map[string]float32 {
	out := make(map[string]float32)
	for _, intv := range sink.Data() {
		for _, gv := range intv.Gauges {
			out[gv.Name] = gv.Value
		}
	}
	return out
}

func TestMetricsCounters(t *testing.T) {
	sink := metrics.NewInmemSink(time.Minute, 5*time.Minute)
	s := sched.New().Build()
	bus := corobus.Build[int](corobus.New(s).
		Log(slog.DiscardHandler).
		Metrics(sink).
		MetricLabels(metrics.Label{Name: "bus", Value: "test"}))

	a, _ := bus.Open(2)
	b, _ := bus.Open(2)
	require.NoError(t, bus.TrySend(a, 1))
	require.NoError(t, bus.TryBroadcast(2))
	_, err := bus.TrySendV(a, []int{3, 4})
	require.ErrorIs(t, err, corobus.ErrWouldBlock)
	_, err = bus.TryRecv(a)
	require.NoError(t, err)
	_, err = bus.TryRecvV(b, make([]int, 4))
	require.NoError(t, err)
	require.NoError(t, bus.CloseChannel(a))
	require.NoError(t, bus.CloseChannel(b))

	c := counters(sink)
	require.Equal(t, 2.0, c["corobus.channel.open.count"])
	require.Equal(t, 2.0, c["corobus.channel.close.count"])
	require.Equal(t, 2.0, c["corobus.channel.free.count"])
	require.Equal(t, 3.0, c["corobus.message.sent.count"])
	require.Equal(t, 2.0, c["corobus.message.recv.count"])
	require.Equal(t, 1.0, c["corobus.would_block.count"])
	require.Equal(t, 1.0, c["corobus.broadcast.count"])
}

func TestMetricsZombieGauge(t *testing.T) {
	sink := metrics.NewInmemSink(time.Minute, 5*time.Minute)
	s := sched.New().Metrics(sink).Build()
	bus := corobus.Build[int](corobus.New(s).Log(slog.DiscardHandler).Metrics(sink))
	idx, _ := bus.Open(0)

	var during float32
	s.Go(func() {
		bus.Recv(idx)
	})
	s.Go(func() {
		bus.CloseChannel(idx)
		during = gauges(sink)["corobus.channel.zombies"]
	})

	require.NoError(t, s.Run())
	require.Equal(t, float32(1), during)
	require.Equal(t, float32(0), gauges(sink)["corobus.channel.zombies"])

	c := counters(sink)
	require.Equal(t, 1.0, c["corobus.wait.count"])
	require.Equal(t, 2.0, c["corobus.sched.spawn.count"])
}

func TestLogChannelLifecycle(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	s := sched.New().Build()
	bus := corobus.Build[int](corobus.New(s).Log(h))

	idx, _ := bus.Open(3)
	bus.CloseChannel(idx)

	out := buf.String()
	require.Contains(t, out, `msg="channel opened" channel=0 capacity=3`)
	require.Contains(t, out, `msg="channel closed" channel=0 waiters=0`)
	require.Contains(t, out, `msg="channel freed" channel=0`)
}

func TestLogDeadlock(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	s := sched.New().Log(h).Build()
	bus := corobus.Build[int](corobus.New(s).Log(h))
	idx, _ := bus.Open(1)

	s.Go(func() {
		bus.Recv(idx)
	})

	require.ErrorIs(t, s.Run(), sched.ErrDeadlock)
	require.True(t, strings.Contains(buf.String(), "level=WARN"), buf.String())
}
