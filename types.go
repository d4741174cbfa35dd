// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package corobus

// Scheduler is the cooperative runtime a Bus parks and resumes callers on.
//
// The bus never schedules anything itself. It needs exactly three
// primitives, which [code.hybscloud.com/corobus/sched.Scheduler] provides:
//
//	Current()  identity of the running context, 0 when there is none
//	Suspend()  park the running context until Resume is called for it
//	Resume(id) make a suspended context runnable again
//
// Only one context may run at a time. Resume must not run the target
// immediately; it becomes runnable after the caller suspends or returns.
type Scheduler interface {
	Current() uint64
	Suspend()
	Resume(id uint64)
}

// Stats is a snapshot of the bus table, as returned by [Bus.Stats].
type Stats struct {
	Open    int // Channels addressable by index
	Slots   int // Table high-water mark (open channels plus empty slots)
	Zombies int // Closed channels kept alive by suspended waiters
	Waiters int // Contexts suspended on any channel
}
