// Copyright (c) 2026 The Aurora Authors
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package multiplexer

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("multiplexer has been closed")

// ManyToOne merges events from several producer goroutines into one
// channel. Raw channels almost do this already, but sending on a
// closed channel panics; the backends hand this to device callbacks
// that may still fire during teardown, so the closed case has to be
// survivable
type ManyToOne[T any] struct {
	outbound chan T
	mu       sync.Mutex
	closed   bool
}

// NewManyToOne wraps the given channel. All sent messages end up there
func NewManyToOne[T any](receiver chan T) *ManyToOne[T] {
	return &ManyToOne[T]{outbound: receiver}
}

// Send delivers a message unless the plexer was closed
func (m *ManyToOne[T]) Send(msg T) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.mu.Unlock()
	m.outbound <- msg
	return nil
}

// TrySend delivers a message without blocking. Reports whether the
// message was accepted
func (m *ManyToOne[T]) TrySend(msg T) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.mu.Unlock()
	select {
	case m.outbound <- msg:
		return true
	default:
		return false
	}
}

// Close marks the plexer closed and closes the underlying channel.
// Later Sends fail instead of panicking
func (m *ManyToOne[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.outbound)
}
