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
	"fmt"
	"reflect"
	"sync"
)

// An InvocationRecord is one captured method call: name, arguments and a
// sequence number strictly increasing within the owning log's lifetime.
// Failed marks a call that did not pass verification (wrong arity, unknown
// or unconfigured method) but was still captured for diagnosis.
type InvocationRecord struct {
	Method string
	Args   []interface{}
	Seq    uint64
	Failed bool
}

// callLog is the append-only invocation history shared by doubles and
// recorders. One log per double/recorder, one double/recorder per test case.
type callLog struct {
	mu      sync.Mutex
	seq     uint64
	records []InvocationRecord
}

func (l *callLog) append(method string, args []interface{}, failed bool) InvocationRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	rec := InvocationRecord{Method: method, Args: args, Seq: l.seq, Failed: failed}
	l.records = append(l.records, rec)
	return rec
}

// snapshot returns an immutable copy of the successful calls to method, in
// call order. Re-querying re-reads the same history.
func (l *callLog) snapshot(method string) []InvocationRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []InvocationRecord
	for _, rec := range l.records {
		if rec.Method == method && !rec.Failed {
			out = append(out, rec)
		}
	}
	return out
}

// Calls is a finite, restartable view over recorded invocations of one
// method, supporting subset queries in call order.
type Calls struct {
	t       T
	target  string
	method  string
	sig     *Signature
	records []InvocationRecord
	desc    string
}

// Records returns the underlying invocation records, oldest first.
func (c Calls) Records() []InvocationRecord {
	return c.records
}

// Count returns the number of calls in this set. Prefer Expect over
// asserting on Count directly.
func (c Calls) Count() int {
	return len(c.records)
}

func (c Calls) String() string {
	return c.desc
}

func (c Calls) subset(records []InvocationRecord, desc string) Calls {
	return Calls{t: c.t, target: c.target, method: c.method, sig: c.sig, records: records, desc: desc}
}

// Matching returns the subset of these calls whose arguments match.
// Matchers are converted as for stub configuration: a Matcher is used as-is,
// a func becomes a predicate, anything else an equality match.
func (c Calls) Matching(matchers ...interface{}) Calls {
	c.t.Helper()
	matcher := buildMatcher(c.t, c.sig, matchers...)
	var sub []InvocationRecord
	for _, rec := range c.records {
		if matcher.Matches(rec.Args...) {
			sub = append(sub, rec)
		}
	}
	return c.subset(sub, fmt.Sprintf("%s matching %v", c.desc, matcher))
}

// Slice returns the subset from index from (inclusive) to to (exclusive),
// with go slice semantics clipped to the available range.
func (c Calls) Slice(from, to int) Calls {
	c.t.Helper()
	if from < 0 || to < 0 || from > to {
		c.t.Fatalf("invalid slice of recorded calls %v[%d:%d]", c, from, to)
		return c.subset(nil, c.desc)
	}
	if from > len(c.records) {
		from = len(c.records)
	}
	if to > len(c.records) {
		to = len(c.records)
	}
	return c.subset(c.records[from:to], fmt.Sprintf("%s[%d:%d]", c.desc, from, to))
}

// After returns the subset of these calls recorded after all of other's.
// An empty other set leaves the calls unchanged.
func (c Calls) After(other Calls) Calls {
	others := other.Records()
	if len(others) == 0 {
		return c
	}
	lastSeq := others[len(others)-1].Seq
	var sub []InvocationRecord
	for _, rec := range c.records {
		if rec.Seq > lastSeq {
			sub = append(sub, rec)
		}
	}
	return c.subset(sub, fmt.Sprintf("%s after %s", c.desc, other.desc))
}

// Expect asserts the number of calls in this set, failing the test with an
// expected-vs-actual diagnostic when unmet.
func (c Calls) Expect(expect CountExpectation) {
	c.t.Helper()
	if !expect.Met(len(c.records)) {
		err := &ExpectationViolatedError{Target: c.desc, Expected: fmt.Sprint(expect), Found: len(c.records)}
		c.t.Errorf("%v", err)
	}
}

// Mode selects what a wrapped method does besides recording.
type Mode int

const (
	// Forward records the call and invokes the real method, returning its values.
	Forward Mode = iota

	// Suppress records the call and returns zero values without invoking
	// the real method.
	Suppress
)

// A Recorder is a call-recording proxy around one live object. Methods are
// individually wrapped for recording; calls to unwrapped methods pass
// straight through to the real object. Interception is an explicit dispatch
// table consulted by Call, since a live Go value's methods cannot be patched
// in place.
type Recorder struct {
	t      T
	target reflect.Value
	desc   *Descriptor
	mu     sync.Mutex
	wraps  map[string]Mode
	log    *callLog

	expectations expectationSet
}

// Observe returns a Recorder proxy bound to target, a live object whose
// method set becomes the recorder's verified reference.
func Observe(t T, target interface{}) *Recorder {
	t.Helper()
	desc := DescribeObject(t, target)
	return &Recorder{
		t:      t,
		target: reflect.ValueOf(target),
		desc:   desc,
		wraps:  make(map[string]Mode),
		log:    &callLog{},
	}
}

func (r *Recorder) String() string {
	return fmt.Sprintf("RecorderFor(%v)", r.desc)
}

// Wrap installs recording for method in the given mode. Wrapping is
// idempotent per method: wrapping again replaces the prior mode rather than
// stacking. Unknown method names fail the test.
func (r *Recorder) Wrap(method string, mode Mode) *Recorder {
	r.t.Helper()
	if _, ok := r.desc.Method(method); !ok {
		err := &VerificationError{Target: r.desc.Name(), Method: method, Suggestion: r.desc.suggest(method)}
		r.t.Fatalf("%v", err)
		return r
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wraps[method] = mode
	return r
}

// Unwrap restores pass-through behaviour for method. Safe to call for a
// method that was never wrapped, and safe to call twice.
func (r *Recorder) Unwrap(method string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.wraps, method)
}

// Call dispatches a method call through the recorder: wrapped methods are
// recorded and then forwarded or suppressed per their mode; unwrapped
// methods invoke the real object directly without recording.
func (r *Recorder) Call(method string, args ...interface{}) []interface{} {
	r.t.Helper()
	out, err := r.TryCall(method, args...)
	if err != nil {
		r.t.Fatalf("%v", err)
		return nil
	}
	return out
}

// TryCall is Call returning the verification failure instead of failing the
// test, for callers that want to handle it.
func (r *Recorder) TryCall(method string, args ...interface{}) ([]interface{}, error) {
	sig, ok := r.desc.Method(method)
	if !ok {
		r.log.append(method, args, true)
		return nil, &VerificationError{Target: r.desc.Name(), Method: method, Suggestion: r.desc.suggest(method)}
	}
	if !sig.AcceptsArgCount(len(args)) {
		r.log.append(method, args, true)
		return nil, &ArgumentCountError{
			Target: r.desc.Name(), Method: method,
			Want: sig.MinArgs(), Variadic: sig.Variadic, Got: len(args),
		}
	}
	args = sig.collapse(args)

	r.mu.Lock()
	mode, wrapped := r.wraps[method]
	r.mu.Unlock()

	if wrapped {
		r.log.append(method, args, false)
		if mode == Suppress {
			return zeroFor(sig).Respond(args)
		}
	}
	return r.forward(method, sig, args)
}

func (r *Recorder) forward(method string, sig Signature, args []interface{}) ([]interface{}, error) {
	m := r.target.MethodByName(method)
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(sig.In[i])
		} else {
			in[i] = reflect.ValueOf(arg)
		}
	}
	// args arrive collapsed, with the variadic tail as one slice.
	var outVals []reflect.Value
	if sig.Variadic {
		outVals = m.CallSlice(in)
	} else {
		outVals = m.Call(in)
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

// CallsTo returns the recorded calls to method, in call order. The view is
// restartable: querying again re-reads the same immutable history. Querying
// a method the target does not have fails the test, so a typo cannot pass
// as "no calls".
func (r *Recorder) CallsTo(method string) Calls {
	r.t.Helper()
	var sig *Signature
	if s, ok := r.desc.Method(method); ok {
		sig = &s
	} else {
		r.t.Fatalf("%v", &VerificationError{Target: r.desc.Name(), Method: method, Suggestion: r.desc.suggest(method)})
	}
	return Calls{
		t:       r.t,
		target:  r.desc.Name(),
		method:  method,
		sig:     sig,
		records: r.log.snapshot(method),
		desc:    fmt.Sprintf("calls to %s.%s", r.desc.Name(), method),
	}
}

// FailedCalls returns the invocations that did not pass verification,
// kept for diagnosis.
func (r *Recorder) FailedCalls() []InvocationRecord {
	r.log.mu.Lock()
	defer r.log.mu.Unlock()
	var out []InvocationRecord
	for _, rec := range r.log.records {
		if rec.Failed {
			out = append(out, rec)
		}
	}
	return out
}

// Expect pre-declares an expectation on a wrapped method of the recorder's
// live target, with the same lifecycle as Double.Expect.
func (r *Recorder) Expect(method string) *Expectation {
	r.t.Helper()
	e := newExpectation(r.t, r, method)
	if e != nil {
		r.expectations.add(r.t, e, r.Verify)
	}
	return e
}

// Verify resolves the recorder's pre-declared expectations now.
func (r *Recorder) Verify() {
	r.t.Helper()
	r.expectations.verify(r.t)
}

// Received is the recorder's post-hoc query, mirroring Double.Received.
func (r *Recorder) Received(method string, matchers ...interface{}) Calls {
	r.t.Helper()
	calls := r.CallsTo(method)
	if len(matchers) > 0 {
		calls = calls.Matching(matchers...)
	}
	return calls
}

func (r *Recorder) name() string {
	return r.desc.Name()
}

func (r *Recorder) testT() T {
	return r.t
}

func (r *Recorder) signature(method string) *Signature {
	if sig, ok := r.desc.Method(method); ok {
		return &sig
	}
	return nil
}

func (r *Recorder) verifyMethod(method string) error {
	if _, ok := r.desc.Method(method); !ok {
		return &VerificationError{Target: r.desc.Name(), Method: method, Suggestion: r.desc.suggest(method)}
	}
	return nil
}

func (r *Recorder) recorded(method string) []InvocationRecord {
	return r.log.snapshot(method)
}
