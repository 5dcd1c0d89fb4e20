package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"
)

// protocolMarker is implemented by all protocol-layer error types so we can classify them.
type protocolMarker interface {
	error
	isProtocol()
}

// FrameError indicates a malformed wire frame: missing terminator, missing
// TYPE, or an unparseable KEY: value line.
type FrameError struct {
	Op  string // high-level operation (e.g. "decode.frame", "dispatch.validate")
	Err error  // underlying cause (may be nil)
}

func (e *FrameError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("frame error: %s", e.Op)
	}
	return fmt.Sprintf("frame error: %s: %v", e.Op, e.Err)
}
func (e *FrameError) Unwrap() error { return e.Err }
func (e *FrameError) isProtocol()   {}

// TokenError indicates a capability token that failed validation: malformed,
// revoked, expired, wrong scope, or IP-binding mismatch.
type TokenError struct {
	Op  string
	Err error
}

func (e *TokenError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("token error: %s", e.Op)
	}
	return fmt.Sprintf("token error: %s: %v", e.Op, e.Err)
}
func (e *TokenError) Unwrap() error { return e.Err }
func (e *TokenError) isProtocol()   {}

// PeerError indicates an outbound operation targeting a user_id that is not
// registered and does not carry a parseable address.
type PeerError struct {
	Op  string
	Err error
}

func (e *PeerError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("peer error: %s", e.Op)
	}
	return fmt.Sprintf("peer error: %s: %v", e.Op, e.Err)
}
func (e *PeerError) Unwrap() error { return e.Err }
func (e *PeerError) isProtocol()   {}

// DeliveryError indicates reliable unicast exhausted its retries without an ACK.
type DeliveryError struct {
	Op  string
	Err error
}

func (e *DeliveryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("delivery error: %s", e.Op)
	}
	return fmt.Sprintf("delivery error: %s: %v", e.Op, e.Err)
}
func (e *DeliveryError) Unwrap() error { return e.Err }
func (e *DeliveryError) isProtocol()   {}

// TransferError indicates a failure in the file-transfer engine, including
// reassembly I/O failures that produce FILE_RECEIVED STATUS=ERROR.
type TransferError struct {
	Op  string
	Err error
}

func (e *TransferError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("transfer error: %s", e.Op)
	}
	return fmt.Sprintf("transfer error: %s: %v", e.Op, e.Err)
}
func (e *TransferError) Unwrap() error { return e.Err }
func (e *TransferError) isProtocol()   {}

// GameError indicates a tic-tac-toe state violation (unknown game, occupied
// cell, wrong symbol) that is not recoverable by resync.
type GameError struct {
	Op  string
	Err error
}

func (e *GameError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("game error: %s", e.Op)
	}
	return fmt.Sprintf("game error: %s: %v", e.Op, e.Err)
}
func (e *GameError) Unwrap() error { return e.Err }
func (e *GameError) isProtocol()   {}

// GroupError indicates a group membership violation (non-creator update,
// non-member message, unknown group).
type GroupError struct {
	Op  string
	Err error
}

func (e *GroupError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("group error: %s", e.Op)
	}
	return fmt.Sprintf("group error: %s: %v", e.Op, e.Err)
}
func (e *GroupError) Unwrap() error { return e.Err }
func (e *GroupError) isProtocol()   {}

// TimeoutError indicates an operation exceeded a deadline or idle timeout.
type TimeoutError struct {
	Op       string
	Duration time.Duration
	Err      error
}

func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (after %s)", e.Op, e.Duration)
	if e.Err != nil {
		return base + ": " + e.Err.Error()
	}
	return base
}
func (e *TimeoutError) Unwrap() error { return e.Err }

// IsTimeout returns true if err is (or wraps) a TimeoutError, a context deadline exceeded,
// or any error type that exposes Timeout() bool and returns true.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var te *TimeoutError
	if stdErrors.As(err, &te) {
		return true
	}
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var toErr interface{ Timeout() bool }
	if stdErrors.As(err, &toErr) && toErr.Timeout() {
		return true
	}
	return false
}

// IsProtocolError returns true if the error chain contains any protocol-layer
// error (FrameError, TokenError, PeerError, DeliveryError, TransferError,
// GameError, GroupError).
func IsProtocolError(err error) bool {
	if err == nil {
		return false
	}
	var pm protocolMarker
	return stdErrors.As(err, &pm)
}

// Constructors (encourage contextual wrapping with %w when used by callers).
func NewFrameError(op string, cause error) error    { return &FrameError{Op: op, Err: cause} }
func NewTokenError(op string, cause error) error    { return &TokenError{Op: op, Err: cause} }
func NewPeerError(op string, cause error) error     { return &PeerError{Op: op, Err: cause} }
func NewDeliveryError(op string, cause error) error { return &DeliveryError{Op: op, Err: cause} }
func NewTransferError(op string, cause error) error { return &TransferError{Op: op, Err: cause} }
func NewGameError(op string, cause error) error     { return &GameError{Op: op, Err: cause} }
func NewGroupError(op string, cause error) error    { return &GroupError{Op: op, Err: cause} }
func NewTimeoutError(op string, d time.Duration, cause error) error {
	return &TimeoutError{Op: op, Duration: d, Err: cause}
}

// Usage pattern example:
//  if _, err := conn.WriteToUDP(b, addr); err != nil {
//      return NewDeliveryError("send DM", fmt.Errorf("udp: %w", err))
//  }
// Keep layering context with fmt.Errorf("...: %w", err).
