// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stream

import "errors"

// ErrEmptyQuery is returned by Start when the query is empty or
// whitespace-only. No connection is attempted and no state changes.
var ErrEmptyQuery = errors.New("query is empty: provide a research question")

// ErrUnexpectedDisconnect is the terminal error recorded when the stream
// closes cleanly at the transport level but no complete event was ever
// received.
var ErrUnexpectedDisconnect = errors.New("stream closed before completion")

// ServerError is an explicit error event reported by the backend
// (status "error"). It is terminal for the in-flight query.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return "server reported an error"
	}
	return "server reported an error: " + e.Message
}
