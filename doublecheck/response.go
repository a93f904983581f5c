/*
 * Copyright 2026 the doublecheck authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package doublecheck

import (
	"errors"
	"reflect"
	"sync"
	"time"
)

// A Response generates return values when a stubbed method is invoked.
type Response interface {

	// Respond is called with the invocation arguments when a method is
	// exercised. A non nil error fatally terminates the test.
	Respond(args []interface{}) ([]interface{}, error)
}

// validatingResponse is implemented by responses that can check themselves
// against the signature of the method they are stubbed on.
type validatingResponse interface {
	Response
	forSignature(t T, sig Signature)
}

type fixedResponse []interface{}

func (v fixedResponse) Respond([]interface{}) ([]interface{}, error) {
	return v, nil
}

func (v fixedResponse) forSignature(t T, sig Signature) {
	assertReturnsFor(t, sig, v)
}

// Returns stores a fixed set of values returned verbatim for every invocation.
func Returns(values ...interface{}) Response {
	return fixedResponse(values)
}

type computedResponse struct {
	impl reflect.Value
}

func (c computedResponse) Respond(args []interface{}) ([]interface{}, error) {
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(c.impl.Type().In(i))
		} else {
			in[i] = reflect.ValueOf(arg)
		}
	}
	var outVals []reflect.Value
	if c.impl.Type().IsVariadic() {
		outVals = c.impl.CallSlice(in)
	} else {
		outVals = c.impl.Call(in)
	}
	if len(outVals) == 0 {
		return nil, nil
	}
	out := make([]interface{}, len(outVals))
	for i, v := range outVals {
		out[i] = v.Interface()
	}
	return out, nil
}

func (c computedResponse) forSignature(t T, sig Signature) {
	t.Helper()
	assertComputedFor(t, sig, c.impl.Type())
}

// Computed installs fn as the responder: each invocation calls fn with the
// invocation arguments and returns whatever fn returns. fn's signature must
// be compatible with the stubbed method when the double is verifying.
func Computed(t T, fn interface{}) Response {
	t.Helper()
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		t.Fatalf("Computed requires a func, got %T", fn)
		return nil
	}
	return computedResponse{impl: fv}
}

type zeroResponse []reflect.Type

func (z zeroResponse) Respond([]interface{}) ([]interface{}, error) {
	if len(z) == 0 {
		return nil, nil
	}
	out := make([]interface{}, len(z))
	for i, rt := range z {
		out[i] = reflect.Zero(rt).Interface()
	}
	return out, nil
}

// zeroFor builds the no-op response for sig: zero values for each of its
// return types. With no signature available it responds with no values at
// all, which is the permissive sentinel for unverified doubles.
func zeroFor(sig Signature) Response {
	return zeroResponse(sig.Out)
}

type sequenceResponse struct {
	mu        sync.Mutex
	responses []Response
	next      int
}

func (s *sequenceResponse) Respond(args []interface{}) ([]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.responses) {
		return nil, errors.New("response sequence exhausted")
	}
	r := s.responses[s.next]
	s.next++
	return r.Respond(args)
}

func (s *sequenceResponse) forSignature(t T, sig Signature) {
	t.Helper()
	for _, r := range s.responses {
		if vr, ok := r.(validatingResponse); ok {
			vr.forSignature(t, sig)
		}
	}
}

// Sequence responds from each of responses in turn, once each; a call after
// the last response fatally fails the test.
func Sequence(responses ...Response) Response {
	return &sequenceResponse{responses: responses}
}

// A ResponseChannel feeds return values to successive stub invocations with
// channel semantics, for coordinating a stubbed double with a goroutine
// under test.
type ResponseChannel interface {

	// Send a list of return values for the next pending or future invocation.
	Send(values ...interface{})

	// Close the channel; invocations that still need values fail the test.
	Close()

	// SetTimeout overrides the default 200ms wait for a value.
	SetTimeout(timeout time.Duration)

	Response
}

type responseChannel struct {
	t       T
	sig     Signature
	bound   bool
	values  chan []interface{}
	timeout time.Duration
}

// NewResponseChannel creates an unbuffered ResponseChannel; supply an
// optional buffer size to allow Send to run ahead of invocations.
func NewResponseChannel(bufferSize ...int) ResponseChannel {
	size := 0
	for _, n := range bufferSize {
		size += n
	}
	return &responseChannel{
		values:  make(chan []interface{}, size),
		timeout: 200 * time.Millisecond,
	}
}

func (rc *responseChannel) forSignature(t T, sig Signature) {
	rc.t = t
	rc.sig = sig
	rc.bound = true
}

func (rc *responseChannel) Respond([]interface{}) ([]interface{}, error) {
	select {
	case values, ok := <-rc.values:
		if !ok {
			return nil, errors.New("requested values from closed response channel")
		}
		return values, nil
	case <-time.After(rc.timeout):
		return nil, errors.New("timed out waiting for response channel to provide values")
	}
}

func (rc *responseChannel) Send(values ...interface{}) {
	if rc.bound {
		assertReturnsFor(rc.t, rc.sig, values)
	}
	rc.values <- values
}

func (rc *responseChannel) Close() {
	close(rc.values)
}

func (rc *responseChannel) SetTimeout(timeout time.Duration) {
	rc.timeout = timeout
}

type delayedResponse struct {
	Response
	delay time.Duration
}

func (d delayedResponse) Respond(args []interface{}) ([]interface{}, error) {
	// Simulate IO latency, letting other goroutines run while we wait.
	<-time.After(d.delay)
	return d.Response.Respond(args)
}

func (d delayedResponse) forSignature(t T, sig Signature) {
	if vr, ok := d.Response.(validatingResponse); ok {
		vr.forSignature(t, sig)
	}
}

// Delayed wraps r with a fixed delay before each response.
func Delayed(r Response, by time.Duration) Response {
	return delayedResponse{Response: r, delay: by}
}
