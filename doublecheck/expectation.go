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
	"sync"
)

// A CountExpectation verifies an observed call count.
type CountExpectation interface {
	// Met reports whether the expectation is satisfied with count calls.
	Met(count int) bool
}

// A Completion is a CountExpectation that can indicate no further calls are
// needed. CountExpectations that are not Completions are never complete.
type Completion interface {
	CountExpectation
	Complete(count int) bool
}

// countRange covers every count constraint; atMost < 0 means unbounded.
type countRange struct {
	atLeast int
	atMost  int
}

func (c countRange) Met(count int) bool {
	return count >= c.atLeast && (c.atMost < 0 || count <= c.atMost)
}

func (c countRange) Complete(count int) bool {
	return c.atMost >= 0 && count >= c.atMost
}

func (c countRange) String() string {
	switch {
	case c.atLeast == 0 && c.atMost == 0:
		return "never"
	case c.atLeast == c.atMost:
		return fmt.Sprintf("exactly %d", c.atLeast)
	case c.atMost < 0:
		return fmt.Sprintf("at least %d", c.atLeast)
	case c.atLeast <= 0:
		return fmt.Sprintf("at most %d", c.atMost)
	default:
		return fmt.Sprintf("between %d and %d", c.atLeast, c.atMost)
	}
}

// Exactly expects exactly n calls; complete after n calls.
func Exactly(n int) Completion {
	return countRange{n, n}
}

// Once is shorthand for Exactly(1).
func Once() Completion {
	return Exactly(1)
}

// Twice is shorthand for Exactly(2).
func Twice() Completion {
	return Exactly(2)
}

// Never expects no calls at all.
func Never() Completion {
	return countRange{0, 0}
}

// AtLeast expects n or more calls; never complete.
func AtLeast(n int) CountExpectation {
	return countRange{n, -1}
}

// AtMost expects up to n calls; complete after n.
func AtMost(n int) Completion {
	return countRange{0, n}
}

// Between expects at least min and at most max calls; complete after max.
func Between(min, max int) Completion {
	return countRange{min, max}
}

// State is the lifecycle of an Expectation: Pending until verification,
// then Satisfied or Violated, with no further transitions.
type State int

const (
	Pending State = iota
	Satisfied
	Violated
)

func (s State) String() string {
	switch s {
	case Satisfied:
		return "satisfied"
	case Violated:
		return "violated"
	default:
		return "pending"
	}
}

// expectable is the facet of a Double or Recorder an Expectation verifies
// against.
type expectable interface {
	name() string
	signature(method string) *Signature
	recorded(method string) []InvocationRecord
	testT() T
}

// An Expectation is a pre-declared assertion on a double or recorder:
// method name, optional argument matcher, count constraint and optional
// ordering relative to other expectations on the same target. Declared
// during setup, resolved at teardown (or an explicit Verify).
type Expectation struct {
	t        T
	target   expectable
	method   string
	matcher  ArgsMatcher
	count    CountExpectation
	group    *orderedGroup
	state    State
	observed int
	firstSeq uint64
}

func newExpectation(t T, target expectable, method string) *Expectation {
	t.Helper()
	if sig := target.signature(method); sig == nil {
		// Only verified targets can reject the name; nil means unverifiable.
		if verifier, ok := target.(interface{ verifyMethod(string) error }); ok {
			if err := verifier.verifyMethod(method); err != nil {
				t.Fatalf("%v", err)
				return nil
			}
		}
	}
	return &Expectation{t: t, target: target, method: method, count: Once()}
}

// With constrains the expectation to calls whose arguments match.
func (e *Expectation) With(matchers ...interface{}) *Expectation {
	e.t.Helper()
	e.matcher = buildMatcher(e.t, e.target.signature(e.method), matchers...)
	return e
}

// Times replaces the default exactly-once count constraint.
func (e *Expectation) Times(count CountExpectation) *Expectation {
	e.count = count
	return e
}

// State reports the expectation's current lifecycle state.
func (e *Expectation) State() State {
	return e.state
}

// Observed reports how many matching calls verification found; meaningful
// once the expectation is resolved.
func (e *Expectation) Observed() int {
	return e.observed
}

func (e *Expectation) describe() string {
	desc := fmt.Sprintf("%s.%s", e.target.name(), e.method)
	if e.matcher != nil {
		desc = fmt.Sprintf("%s matching %v", desc, e.matcher)
	}
	return desc
}

// resolve transitions a pending expectation to its verdict. Resolution is
// final: verifying twice neither re-reports nor flips the state.
func (e *Expectation) resolve(t T) {
	t.Helper()
	if e.state != Pending {
		return
	}
	matches := e.matchingCalls()
	e.observed = len(matches)
	if len(matches) > 0 {
		e.firstSeq = matches[0].Seq
	}
	if e.count.Met(e.observed) {
		e.state = Satisfied
		return
	}
	e.state = Violated
	err := &ExpectationViolatedError{
		Target:   e.describe(),
		Expected: fmt.Sprint(e.count),
		Found:    e.observed,
	}
	t.Errorf("%v", err)
}

func (e *Expectation) matchingCalls() []InvocationRecord {
	records := e.target.recorded(e.method)
	if e.matcher == nil {
		return records
	}
	var out []InvocationRecord
	for _, rec := range records {
		if e.matcher.Matches(rec.Args...) {
			out = append(out, rec)
		}
	}
	return out
}

type orderedGroup struct {
	members []*Expectation
}

// InOrder declares that the expectations' matching calls must be observed in
// the given relative order. All expectations must verify against the same
// target, since sequence numbers are only comparable within one log.
func InOrder(expectations ...*Expectation) {
	if len(expectations) < 2 {
		return
	}
	t := expectations[0].t
	t.Helper()
	group := &orderedGroup{members: expectations}
	for _, e := range expectations {
		if e.target != expectations[0].target {
			t.Fatalf("InOrder requires expectations on the same target, have %s and %s",
				expectations[0].target.name(), e.target.name())
			return
		}
		e.group = group
	}
}

// verifyOrder checks the group's first-match sequence numbers are strictly
// increasing. Members with no matching calls are skipped; their count
// verdicts already report the miss.
func (g *orderedGroup) verifyOrder(t T) {
	t.Helper()
	var prev *Expectation
	for _, e := range g.members {
		if e.observed == 0 {
			continue
		}
		if prev != nil && e.firstSeq < prev.firstSeq {
			err := &OrderViolationError{
				Target:    e.target.name(),
				Before:    prev.describe(),
				After:     e.describe(),
				BeforeSeq: prev.firstSeq,
				AfterSeq:  e.firstSeq,
			}
			t.Errorf("%v", err)
		}
		prev = e
	}
}

// expectationSet holds a target's pre-declared expectations until teardown.
type expectationSet struct {
	mu      sync.Mutex
	pending []*Expectation
	hooked  bool
}

func (s *expectationSet) add(t T, e *Expectation, verify func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, e)
	if !s.hooked {
		s.hooked = true
		t.Cleanup(verify)
	}
}

func (s *expectationSet) verify(t T) {
	t.Helper()
	s.mu.Lock()
	pending := make([]*Expectation, len(s.pending))
	copy(pending, s.pending)
	s.mu.Unlock()

	groups := make(map[*orderedGroup]bool)
	for _, e := range pending {
		e.resolve(t)
		if e.group != nil {
			groups[e.group] = true
		}
	}
	for g := range groups {
		g.verifyOrder(t)
	}
}
