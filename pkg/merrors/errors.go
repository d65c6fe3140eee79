// Copyright (C) 2026 Meadow authors.
// All rights reserved. This file is part of the meadow module.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package merrors defines the error taxonomy shared by Host and Node. Errors
// that can cross the wire (those returned as the result of a HostOperation)
// carry a stable Kind so a Node can inspect what went wrong without string
// matching.
package merrors

import "fmt"

// Kind identifies a class of failure. Kinds that can be produced by a Host
// in response to a request are a subset of this list (see IsHostOperation).
type Kind string

const (
	KindNoSubscriptionValue Kind = "no_subscription_value"
	KindLockFailure         Kind = "lock_failure"
	KindStoreUnavailable    Kind = "store_unavailable"
	KindInvalidAddress      Kind = "invalid_address"
	KindInvalidInterface    Kind = "invalid_interface"
	KindIPParsing           Kind = "ip_parsing"
	KindOpeningStore        Kind = "opening_store"
	KindSerialization       Kind = "serialization"
	KindDeserialization     Kind = "deserialization"
	KindAccessStream        Kind = "access_stream"
	KindAccessSocket        Kind = "access_socket"
	KindBadResponse         Kind = "bad_response"
	KindTCPSend             Kind = "tcp_send"
	KindUDPSend             Kind = "udp_send"
	KindStreamConnection    Kind = "stream_connection"
	KindHandshake           Kind = "handshake"
	KindWritable            Kind = "writable"

	// Kinds below are the request outcomes a Host reports in a
	// HostOperation result (see IsHostOperation for the others it can carry).
	KindSetFailure       Kind = "set_failure"
	KindGetFailure       Kind = "get_failure"
	KindNoNthValue       Kind = "no_nth_value"
	KindNonExistentTopic Kind = "non_existent_topic"
	KindConnectionError  Kind = "connection_error"
)

// Error is Meadow's single error type. It always carries a Kind and a
// human-readable Detail, and may wrap an underlying cause.
type Error struct {
	Kind   Kind
	Detail string
	Cause  error
}

func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

func Wrap(kind Kind, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Cause)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is(err, merrors.New(KindX, "")) to match purely on Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// IsHostOperation reports whether kind is one of the request-outcome kinds
// a Host reports back to a Node in a HostOperation response. It returns
// false for every other kind, including two that a HostOperation response
// can also carry: KindBadResponse (an unknown request kind, or an error
// without a Kind) and KindStoreUnavailable (a failed topic listing).
func IsHostOperation(k Kind) bool {
	switch k {
	case KindSetFailure, KindGetFailure, KindNoNthValue, KindNonExistentTopic, KindConnectionError:
		return true
	default:
		return false
	}
}
