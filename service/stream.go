// Copyright 2019-2022 igo95862
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package service

import (
	"context"

	"github.com/bubblehelp/bubblehelp/directive"
)

// Emit is handed to a Service's generator body. Sending a regular
// directive returns immediately with an empty string; sending a
// WantsHomeBind/WantsDbusSessionPath placeholder blocks until the engine
// answers it through Stream.Resolve. This realizes a suspend/resume
// generator without coroutines: the generator body runs on its own
// goroutine and the channel round-trip plays the role of yield/send.
type Emit func(d directive.Directive) string

// Generator is the body of a Service's directive stream.
type Generator func(ctx context.Context, emit Emit) error

// Stream is the consumer-side handle for a running Generator.
type Stream struct {
	out    chan directive.Directive
	in     chan string
	done   chan error
	cancel context.CancelFunc
}

// NewStream starts gen on its own goroutine and returns a handle the
// engine drives by alternating Next/Resolve.
func NewStream(ctx context.Context, gen Generator) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		out:    make(chan directive.Directive),
		in:     make(chan string),
		done:   make(chan error, 1),
		cancel: cancel,
	}

	emit := func(d directive.Directive) string {
		select {
		case s.out <- d:
		case <-ctx.Done():
			return ""
		}
		if !d.IsPlaceholder() {
			return ""
		}
		select {
		case v := <-s.in:
			return v
		case <-ctx.Done():
			return ""
		}
	}

	go func() {
		defer close(s.out)
		s.done <- gen(ctx, emit)
	}()

	return s
}

// Next blocks for the generator's next directive. ok is false once the
// generator has returned and every directive has been drained.
func (s *Stream) Next() (directive.Directive, bool) {
	d, ok := <-s.out
	return d, ok
}

// Resolve answers a placeholder directive just received from Next,
// unblocking the generator so it can produce its next directive.
func (s *Stream) Resolve(value string) {
	s.in <- value
}

// Wait returns the generator's terminal error, once Next has reported
// ok == false. Calling it earlier blocks until the generator exits.
func (s *Stream) Wait() error {
	err := <-s.done
	s.cancel()
	return err
}

// Abort cancels the generator without waiting for it to drain its
// remaining directives, used when the engine bails out mid-stream.
func (s *Stream) Abort() {
	s.cancel()
	for range s.out {
	}
}
