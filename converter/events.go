// Copyright 2024 The Img2pdf Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package converter

import (
	"strconv"
	"sync"
)

// Event is a status event of a run: Progress or Message.
type Event interface {
	String() string
	isEvent()
}

// Progress is the percentage (0-100) of the finished groups.
type Progress struct{ Percent int }

// Message is a human readable status line.
type Message struct{ Text string }

func (p Progress) String() string { return strconv.Itoa(p.Percent) + "%" }
func (m Message) String() string  { return m.Text }
func (Progress) isEvent()         {}
func (Message) isEvent()          {}

// eventPump forwards the emitted events to a channel in order,
// without ever blocking the emitter.
type eventPump struct {
	mu      sync.Mutex
	pending []Event
	closed  bool
	notify  chan struct{}
	out     chan Event
}

func newEventPump() *eventPump {
	p := &eventPump{notify: make(chan struct{}, 1), out: make(chan Event)}
	go p.run()
	return p
}

func (p *eventPump) Emit(e Event) {
	p.mu.Lock()
	p.pending = append(p.pending, e)
	p.mu.Unlock()
	p.wake()
}

// Close makes the pump close the channel after the pending events are delivered.
func (p *eventPump) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wake()
}

func (p *eventPump) wake() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *eventPump) run() {
	defer close(p.out)
	for range p.notify {
		p.mu.Lock()
		batch, closed := p.pending, p.closed
		p.pending = nil
		p.mu.Unlock()
		for _, e := range batch {
			p.out <- e
		}
		if closed {
			p.mu.Lock()
			rest := p.pending
			p.mu.Unlock()
			if len(rest) == 0 {
				return
			}
			p.wake()
		}
	}
}
