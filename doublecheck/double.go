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
	"sort"
	"sync"
)

// T is compatible with builtin testing.T
type T interface {
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	Logf(format string, args ...interface{})
	Helper()
	Cleanup(func())
}

/*
A Double is an object that responds to a configured set of method names in
place of the real thing during a test.

Setup phase

Stub individual methods with fixed or computed responses, and pre-declare
expectations about how the system under test will call them. A verifying
double (see Verified) only accepts method names and argument counts that
exist on its reference; a permissive double (see Permissive) silently no-ops
on unconfigured calls instead of failing.

Exercise phase

Invoke dispatches each call to the first configured stub whose matcher
accepts the arguments, recording every invocation along the way.

Verify phase

Pre-declared expectations resolve automatically at test teardown, or
explicitly via Verify. Recorded calls can also be queried spy-style with
CallsTo / Received and asserted post-hoc.
*/
type Double struct {
	t            T
	desc         *Descriptor
	displayName  string
	permissive   bool
	trace        bool
	mu           sync.Mutex
	stubs        map[string][]*StubCall
	log          *callLog
	expectations expectationSet
}

// Option configures a Double under construction.
type Option func(*Double)

// Verified restricts the double to the method names and arities of desc.
// Stubbing a name missing from desc fails with a VerificationError; calls
// with the wrong argument count fail with an ArgumentCountError.
func Verified(desc *Descriptor) Option {
	return func(d *Double) {
		d.desc = desc
	}
}

// VerifiedAgainst is Verified with the descriptor resolved by registered
// reference name; an unknown name fails the test with UnknownReferenceError.
func VerifiedAgainst(reference string) Option {
	return func(d *Double) {
		d.t.Helper()
		desc, err := LookupReference(reference)
		if err != nil {
			d.t.Fatalf("%v", err)
			return
		}
		d.desc = desc
	}
}

// Permissive makes unconfigured calls respond with no-op values (zero values
// when the signature is known, no values otherwise) instead of failing.
// This is the null-object flavour of double.
func Permissive() Option {
	return func(d *Double) {
		d.permissive = true
	}
}

// Named sets the double's display name used in diagnostics.
func Named(name string) Option {
	return func(d *Double) {
		d.displayName = name
	}
}

// A Stub pairs a method name with its configured response, for declaring
// initial stubs in a fixed order.
type Stub struct {
	Method   string
	Response Response
}

// WithStubs configures initial stubs. Verification failures are reported for
// the first offending entry in declaration order.
func WithStubs(stubs ...Stub) Option {
	return func(d *Double) {
		d.t.Helper()
		for _, s := range stubs {
			d.Stub(s.Method).Respond(s.Response)
		}
	}
}

// New constructs a Double reporting through t. By default the double is
// unverified and strict: any method name can be stubbed, but calling an
// unstubbed name fails the test.
func New(t T, opts ...Option) *Double {
	d := &Double{
		t:     t,
		stubs: make(map[string][]*StubCall),
		log:   &callLog{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// EnableTrace logs every received call via T.Logf.
func (d *Double) EnableTrace() {
	d.trace = true
}

func (d *Double) String() string {
	return fmt.Sprintf("DoubleFor(%s)", d.name())
}

func (d *Double) name() string {
	if d.displayName != "" {
		return d.displayName
	}
	if d.desc != nil {
		return d.desc.Name()
	}
	return "Double"
}

// T returns the test this double reports to.
func (d *Double) T() T {
	return d.t
}

func (d *Double) testT() T {
	return d.t
}

func (d *Double) signature(method string) *Signature {
	if d.desc == nil {
		return nil
	}
	if sig, ok := d.desc.Method(method); ok {
		return &sig
	}
	return nil
}

func (d *Double) verifyMethod(method string) error {
	if d.desc == nil {
		return nil
	}
	if _, ok := d.desc.Method(method); !ok {
		return &VerificationError{Target: d.name(), Method: method, Suggestion: d.desc.suggest(method)}
	}
	return nil
}

func (d *Double) recorded(method string) []InvocationRecord {
	return d.log.snapshot(method)
}

// A StubCall is one configured response for a method, optionally restricted
// to matching arguments.
type StubCall struct {
	d        *Double
	method   string
	matcher  ArgsMatcher
	response Response
}

func (c *StubCall) String() string {
	if c.matcher != nil {
		return fmt.Sprintf("%s.%s matching %v", c.d.name(), c.method, c.matcher)
	}
	return fmt.Sprintf("%s.%s", c.d.name(), c.method)
}

/*
Stub adds and returns a StubCall for method on Double d.

Configure the arguments it applies to with Matching and its response with
Returning or Respond. By default a StubCall matches any arguments and
responds with zero values. During exercise, the first stub matching the
invocation arguments provides the response.

On a verifying double, stubbing a method the reference does not have fails
the test immediately with a VerificationError.
*/
func (d *Double) Stub(method string) *StubCall {
	d.t.Helper()
	if err := d.verifyMethod(method); err != nil {
		d.t.Fatalf("%v", err)
		return &StubCall{d: d, method: method}
	}
	c := &StubCall{d: d, method: method}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stubs[method] = append(d.stubs[method], c)
	return c
}

// Matching restricts this stub to matching arguments. Matchers are used
// as-is, funcs become predicates, anything else an equality match.
func (c *StubCall) Matching(matchers ...interface{}) *StubCall {
	c.d.t.Helper()
	c.matcher = buildMatcher(c.d.t, c.d.signature(c.method), matchers...)
	return c
}

// Returning configures fixed return values (or, when given a single
// Response, that response) for this stub. On a verifying double the values
// are checked against the method's return types at setup time.
func (c *StubCall) Returning(values ...interface{}) *StubCall {
	c.d.t.Helper()
	if len(values) == 1 {
		if r, ok := values[0].(Response); ok {
			return c.Respond(r)
		}
	}
	return c.Respond(Returns(values...))
}

// Respond configures an explicit Response for this stub.
func (c *StubCall) Respond(r Response) *StubCall {
	c.d.t.Helper()
	if sig := c.d.signature(c.method); sig != nil {
		if vr, ok := r.(validatingResponse); ok {
			vr.forSignature(c.d.t, *sig)
		}
	}
	c.response = r
	return c
}

func (c *StubCall) matches(args []interface{}) bool {
	return c.matcher == nil || c.matcher.Matches(args...)
}

func (c *StubCall) respond(args []interface{}) ([]interface{}, error) {
	if c.response == nil {
		if sig := c.d.signature(c.method); sig != nil {
			return zeroFor(*sig).Respond(args)
		}
		return nil, nil
	}
	return c.response.Respond(args)
}

// Invoke dispatches a method call through the double, failing the test on
// any verification error. Hand-written double implementations call this
// from each method they forward.
//
// Variadic arguments may be supplied spread or as one trailing slice; on a
// verified double matchers, responses and the recorded call see the tail as
// a single slice either way.
func (d *Double) Invoke(method string, args ...interface{}) []interface{} {
	d.t.Helper()
	out, err := d.TryInvoke(method, args...)
	if err != nil {
		d.t.Fatalf("%v", err)
		return nil
	}
	return out
}

// TryInvoke is Invoke returning the verification failure instead of failing
// the test. Every invocation, including failing ones, is recorded; failed
// calls are flagged and excluded from CallsTo queries.
func (d *Double) TryInvoke(method string, args ...interface{}) ([]interface{}, error) {
	if d.desc != nil {
		sig, ok := d.desc.Method(method)
		if !ok {
			d.log.append(method, args, true)
			return nil, &VerificationError{Target: d.name(), Method: method, Suggestion: d.desc.suggest(method)}
		}
		if !sig.AcceptsArgCount(len(args)) {
			d.log.append(method, args, true)
			return nil, &ArgumentCountError{
				Target: d.name(), Method: method,
				Want: sig.MinArgs(), Variadic: sig.Variadic, Got: len(args),
			}
		}
		args = sig.collapse(args)
	}

	d.mu.Lock()
	var matched *StubCall
	for _, c := range d.stubs[method] {
		if c.matches(args) {
			matched = c
			break
		}
	}
	d.mu.Unlock()

	if matched == nil && !d.permissive {
		d.log.append(method, args, true)
		return nil, &UnconfiguredMethodError{Target: d.name(), Method: method, Stubbed: d.stubbedMethods()}
	}

	d.log.append(method, args, false)

	var out []interface{}
	var err error
	if matched == nil {
		// Permissive no-op: zero values when the signature is known.
		if sig := d.signature(method); sig != nil {
			out, err = zeroFor(*sig).Respond(args)
		}
	} else {
		out, err = matched.respond(args)
	}
	if err != nil {
		return nil, fmt.Errorf("no response available for %s.%s: %w", d.name(), method, err)
	}
	if d.trace {
		d.t.Helper()
		d.t.Logf("Called %s.%s(%v) => %v", d.name(), method, args, out)
	}
	return out, nil
}

func (d *Double) stubbedMethods() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.stubs))
	for name := range d.stubs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CallsTo returns the recorded calls to method, in call order. The view is
// restartable: querying again re-reads the same immutable history. On a
// verified double, querying a method the reference does not have fails the
// test, so a typo cannot pass as "no calls".
func (d *Double) CallsTo(method string) Calls {
	d.t.Helper()
	if err := d.verifyMethod(method); err != nil {
		d.t.Fatalf("%v", err)
	}
	return Calls{
		t:       d.t,
		target:  d.name(),
		method:  method,
		sig:     d.signature(method),
		records: d.log.snapshot(method),
		desc:    fmt.Sprintf("calls to %s.%s", d.name(), method),
	}
}

// Received is post-hoc sugar: the calls to method, optionally narrowed to
// matching arguments, ready for an immediate Expect.
//
//	d.Received("Place").Expect(doublecheck.Once())
//	d.Received("OrderBook", "Ruby 101", "Alice").Expect(doublecheck.Once())
func (d *Double) Received(method string, matchers ...interface{}) Calls {
	d.t.Helper()
	calls := d.CallsTo(method)
	if len(matchers) > 0 {
		calls = calls.Matching(matchers...)
	}
	return calls
}

// FailedCalls returns the invocations that did not pass verification,
// kept for diagnosis.
func (d *Double) FailedCalls() []InvocationRecord {
	d.log.mu.Lock()
	defer d.log.mu.Unlock()
	var out []InvocationRecord
	for _, rec := range d.log.records {
		if rec.Failed {
			out = append(out, rec)
		}
	}
	return out
}

/*
Expect pre-declares an expectation on method before the code under test
runs: by default exactly one call with any arguments. Refine with With and
Times, and order groups of expectations with InOrder.

Expectations resolve automatically at test teardown; failing loudly if
unmet. Call Verify to resolve them earlier.
*/
func (d *Double) Expect(method string) *Expectation {
	d.t.Helper()
	e := newExpectation(d.t, d, method)
	if e != nil {
		d.expectations.add(d.t, e, d.Verify)
	}
	return e
}

// Verify resolves all pre-declared expectations now. Usually deferred
// immediately after the double is created; also runs via t.Cleanup, and
// resolution is final so running both is safe.
func (d *Double) Verify() {
	d.t.Helper()
	d.expectations.verify(d.t)
}

// Verifiable is anything with pre-declared expectations to resolve.
type Verifiable interface {
	Verify()
}

// Verify is shorthand to verify a set of doubles and recorders.
func Verify(targets ...Verifiable) {
	for _, v := range targets {
		v.Verify()
	}
}
