// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package corobus

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates the operation cannot proceed immediately.
//
// For sends: the channel is full (backpressure)
// For receives: the channel is empty (no data available)
// For broadcasts: at least one open channel is full
//
// ErrWouldBlock is a control flow signal, not a failure. Blocking
// operations consume it internally by suspending the caller; the
// non-blocking Try variants return it to the caller.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// ErrNoChannel indicates the channel index does not name an open channel.
//
// The index may be out of range, its slot may be empty, the channel may
// have been closed (before or while the caller was suspended on it), or
// the bus itself may be nil or closed. ErrNoChannel is terminal for the
// operation that returns it.
var ErrNoChannel = errors.New("corobus: no such channel")

// ErrInvalidCapacity indicates a capacity larger than [MaxCapacity] was
// passed to Open.
var ErrInvalidCapacity = errors.New("corobus: capacity exceeds MaxCapacity")

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsNoChannel reports whether err indicates a missing or closed channel.
func IsNoChannel(err error) bool {
	return errors.Is(err, ErrNoChannel)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Returns true for nil, ErrWouldBlock, or ErrMore.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}

// Code is the compact outcome of the most recent bus operation,
// as returned by [Bus.LastError].
type Code uint8

const (
	CodeNone       Code = iota // Operation succeeded
	CodeNoChannel              // ErrNoChannel
	CodeWouldBlock             // ErrWouldBlock
	CodeInvalidCapacity        // ErrInvalidCapacity
)

// CodeOf classifies err.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return CodeNone
	case IsWouldBlock(err):
		return CodeWouldBlock
	case errors.Is(err, ErrInvalidCapacity):
		return CodeInvalidCapacity
	default:
		return CodeNoChannel
	}
}

func (c Code) String() string {
	switch c {
	case CodeNone:
		return "none"
	case CodeNoChannel:
		return "no channel"
	case CodeWouldBlock:
		return "would block"
	case CodeInvalidCapacity:
		return "invalid capacity"
	default:
		return "unknown"
	}
}
