// Copyright (c) 2026 The Aurora Authors
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package multiplexer

import (
	"errors"
	"testing"
)

func TestManyToOneSendAfterClose(t *testing.T) {
	ch := make(chan int, 4)
	m := NewManyToOne(ch)
	if err := m.Send(1); err != nil {
		t.Fatalf("Send failed: %s", err)
	}
	m.Close()
	if err := m.Send(2); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after close gave %v", err)
	}
	m.Close() // must not panic
}

func TestManyToOneTrySendFull(t *testing.T) {
	ch := make(chan int, 1)
	m := NewManyToOne(ch)
	if !m.TrySend(1) {
		t.Fatalf("TrySend on empty channel refused")
	}
	if m.TrySend(2) {
		t.Errorf("TrySend on full channel accepted")
	}
	if got := <-ch; got != 1 {
		t.Errorf("Got %d", got)
	}
}

func TestOneToManyFanOut(t *testing.T) {
	o := NewOneToMany[string]()
	a, err := o.MakeReceiver("a", 4)
	if err != nil {
		t.Fatalf("MakeReceiver failed: %s", err)
	}
	b, _ := o.MakeReceiver("b", 4)
	if _, err := o.MakeReceiver("a", 4); err == nil {
		t.Errorf("Duplicate receiver name accepted")
	}

	o.Publish("hello")
	if got := <-a; got != "hello" {
		t.Errorf("Receiver a got %q", got)
	}
	if got := <-b; got != "hello" {
		t.Errorf("Receiver b got %q", got)
	}
}

// A full receiver is skipped, not waited on
func TestOneToManySkipsSlowReceiver(t *testing.T) {
	o := NewOneToMany[int]()
	slow, _ := o.MakeReceiver("slow", 1)
	o.Publish(1)
	o.Publish(2)
	if got := <-slow; got != 1 {
		t.Errorf("Got %d", got)
	}
	select {
	case got := <-slow:
		t.Errorf("Overflow message %d was delivered", got)
	default:
	}
}

func TestOneToManyClose(t *testing.T) {
	o := NewOneToMany[int]()
	rec, _ := o.MakeReceiver("a", 1)
	o.Close()
	if _, ok := <-rec; ok {
		t.Errorf("Receiver channel not closed")
	}
	if _, err := o.MakeReceiver("b", 1); !errors.Is(err, ErrClosed) {
		t.Errorf("MakeReceiver after close gave %v", err)
	}
	o.Publish(1) // must not panic
}
