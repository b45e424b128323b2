// Copyright (c) 2026 The Aurora Authors
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package multiplexer

import (
	"sync"
)

// OneToMany fans one stream of messages out to any number of named
// receivers. The compositor loop publishes lifecycle notifications
// through this so the repl and tool mode can watch a running session
// without touching engine state
type OneToMany[T any] struct {
	mu       sync.Mutex
	outbound map[string]chan T
	closed   bool
}

func NewOneToMany[T any]() *OneToMany[T] {
	return &OneToMany[T]{
		outbound: make(map[string]chan T),
	}
}

// MakeReceiver registers a new named receiver. Close it through
// CloseReceiver, never directly
func (o *OneToMany[T]) MakeReceiver(name string, buffer int) (<-chan T, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, ErrClosed
	}
	if _, ok := o.outbound[name]; ok {
		return nil, errReceiverExists
	}
	rec := make(chan T, buffer)
	o.outbound[name] = rec
	return rec, nil
}

// CloseReceiver removes one receiver and closes its channel
func (o *OneToMany[T]) CloseReceiver(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if val, ok := o.outbound[name]; ok {
		close(val)
		delete(o.outbound, name)
	}
}

// Publish sends a message to every receiver. Receivers that fell
// behind are skipped rather than blocking the publisher: the loop
// must never stall on an observer
func (o *OneToMany[T]) Publish(msg T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	for _, c := range o.outbound {
		select {
		case c <- msg:
		default:
		}
	}
}

// Close shuts down all receivers and marks the plexer closed
func (o *OneToMany[T]) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	for name, c := range o.outbound {
		close(c)
		delete(o.outbound, name)
	}
	o.closed = true
}
