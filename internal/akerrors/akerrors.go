/*
NAME
  akerrors.go

DESCRIPTION
  akerrors defines the stable error taxonomy shared by the broker, producer
  and consumer sides of the control protocol. Internal errors are wrapped
  with github.com/pkg/errors as they propagate up through a component; at
  the point they cross the control-protocol boundary they are reduced to
  one of the Kind values below, which is what actually travels on the wire.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package akerrors provides the broker's stable error-kind taxonomy and a
// small typed error that carries a Kind across the control-protocol
// boundary.
package akerrors

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind is one of the closed set of error kinds the broker exposes to peers.
// Kind values are part of the wire protocol (encoded as a uint32 error code
// in control protocol replies) and must not be renumbered.
type Kind uint16

const (
	// NotFound indicates no such device, peer or format exists.
	NotFound Kind = iota + 1
	// Busy indicates the device already has a broadcaster.
	Busy
	// InvalidArgument indicates a malformed request, unsupported format or
	// out-of-range control value.
	InvalidArgument
	// Timeout indicates a bounded wait expired.
	Timeout
	// Transport indicates a protocol framing error or connection reset.
	Transport
	// Corrupted indicates an abandoned mutex or a truncated frame.
	Corrupted
	// IO indicates a backing file failure.
	IO
	// Unsupported indicates a direct-mode policy rejection.
	Unsupported
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case Busy:
		return "busy"
	case InvalidArgument:
		return "invalid argument"
	case Timeout:
		return "timeout"
	case Transport:
		return "transport"
	case Corrupted:
		return "corrupted"
	case IO:
		return "io"
	case Unsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Error is an error carrying a stable Kind, suitable for encoding in a
// control-protocol reply.
type Error struct {
	Kind Kind
	Msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap allows errors.Is / errors.As to see through to the wrapped cause.
func (e *Error) Unwrap() error { return e.err }

// New creates a new *Error of the given kind.
func New(k Kind, msg string) *Error {
	return &Error{Kind: k, Msg: msg}
}

// Wrap wraps err with github.com/pkg/errors context and tags it with kind
// k. The outermost kind wins: wrapping an already-tagged error re-tags it.
func Wrap(err error, k Kind, msg string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: k, Msg: msg, err: pkgerrors.Wrap(err, msg)}
}

// KindOf extracts the Kind from err, defaulting to Transport if err is not
// a tagged *Error (e.g. a raw I/O or network error that never went through
// Wrap/New).
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Transport
}

// Is reports whether err's Kind equals k.
func Is(err error, k Kind) bool {
	return KindOf(err) == k
}
