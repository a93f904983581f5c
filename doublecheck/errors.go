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
	"strings"

	"github.com/agnivade/levenshtein"
)

// UnknownReferenceError reports a name-based descriptor lookup that found
// no registered reference.
type UnknownReferenceError struct {
	Reference  string
	Suggestion string
}

func (e *UnknownReferenceError) Error() string {
	msg := fmt.Sprintf("unknown reference %q: no descriptor registered", e.Reference)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

// VerificationError reports a stubbed, expected or invoked method name that
// does not exist on the reference a verifying double or recorder was built from.
type VerificationError struct {
	Target     string
	Method     string
	Suggestion string
}

func (e *VerificationError) Error() string {
	msg := fmt.Sprintf("%s has no method %q", e.Target, e.Method)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

// ArgumentCountError reports a call whose argument count is incompatible
// with the real method's signature.
type ArgumentCountError struct {
	Target   string
	Method   string
	Want     int
	Variadic bool
	Got      int
}

func (e *ArgumentCountError) Error() string {
	if e.Variadic {
		return fmt.Sprintf("%s.%s expects at least %d argument(s), got %d", e.Target, e.Method, e.Want, e.Got)
	}
	return fmt.Sprintf("%s.%s expects %d argument(s), got %d", e.Target, e.Method, e.Want, e.Got)
}

// UnconfiguredMethodError reports a call to a method a non-permissive double
// was never told to handle.
type UnconfiguredMethodError struct {
	Target  string
	Method  string
	Stubbed []string
}

func (e *UnconfiguredMethodError) Error() string {
	if len(e.Stubbed) == 0 {
		return fmt.Sprintf("%s.%s invoked but nothing is stubbed", e.Target, e.Method)
	}
	return fmt.Sprintf("%s.%s invoked but never stubbed (stubbed: %s)",
		e.Target, e.Method, strings.Join(e.Stubbed, ", "))
}

// OrderViolationError reports ordered expectations whose matching calls were
// observed out of sequence.
type OrderViolationError struct {
	Target    string
	Before    string
	After     string
	BeforeSeq uint64
	AfterSeq  uint64
}

func (e *OrderViolationError) Error() string {
	return fmt.Sprintf("%s: expected %s before %s, observed seq %d after seq %d",
		e.Target, e.Before, e.After, e.BeforeSeq, e.AfterSeq)
}

// ExpectationViolatedError is the generic verdict for an expectation whose
// count or argument constraints were unmet.
type ExpectationViolatedError struct {
	Target   string
	Expected string
	Found    int
}

func (e *ExpectationViolatedError) Error() string {
	return fmt.Sprintf("%s expected %s, found %d calls", e.Target, e.Expected, e.Found)
}

// suggestion threshold: edits beyond this are noise, not typos.
const maxSuggestDistance = 3

// nearest returns the candidate closest to name by edit distance, or ""
// when nothing is close enough to be a plausible typo.
func nearest(name string, candidates []string) string {
	best, bestDist := "", maxSuggestDistance+1
	for _, c := range candidates {
		if d := levenshtein.ComputeDistance(name, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	if bestDist > maxSuggestDistance || bestDist >= len(name) {
		return ""
	}
	return best
}
