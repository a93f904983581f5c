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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountExpectations(t *testing.T) {
	tests := []struct {
		name       string
		count      CountExpectation
		met        []int
		unmet      []int
		complete   []int
		incomplete []int
		str        string
	}{
		{"Between", Between(5, 11), []int{5, 7, 11}, []int{0, 4, 12, 65434}, []int{11, 12}, []int{0, 5, 10}, "between 5 and 11"},
		{"Exactly", Exactly(5), []int{5}, []int{0, 4, 6, 65434}, []int{5, 6}, []int{0, 4}, "exactly 5"},
		{"Once", Once(), []int{1}, []int{0, 2}, []int{1, 2}, []int{0}, "exactly 1"},
		{"Twice", Twice(), []int{2}, []int{0, 1, 3}, []int{2, 3}, []int{0, 1}, "exactly 2"},
		{"Never", Never(), []int{0}, []int{1, 1124}, []int{0, 1}, nil, "never"},
		{"AtLeast", AtLeast(6), []int{6, 7, 125}, []int{0, 1, 5}, nil, []int{0, 6, 123}, "at least 6"},
		{"AtMost", AtMost(10), []int{0, 1, 9, 10}, []int{11, 1124}, []int{10, 11}, []int{0, 9}, "at most 10"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.str, fmt.Sprint(tt.count))
			for _, n := range tt.met {
				assert.True(t, tt.count.Met(n), "expected met for %d", n)
			}
			for _, n := range tt.unmet {
				assert.False(t, tt.count.Met(n), "expected unmet for %d", n)
			}
			completion, ok := tt.count.(Completion)
			require.True(t, ok)
			for _, n := range tt.complete {
				assert.True(t, completion.Complete(n), "expected complete for %d", n)
			}
			for _, n := range tt.incomplete {
				assert.False(t, completion.Complete(n), "expected incomplete for %d", n)
			}
		})
	}
}

func TestPreDeclaredExpectationSatisfied(t *testing.T) {
	rt := &recordT{}
	d := New(rt, Verified(orderDescriptor(t)))
	d.Stub("Place").Returning("placed")

	e := d.Expect("Place")
	assert.Equal(t, Pending, e.State())

	_, _ = d.TryInvoke("Place")
	rt.runCleanups()

	assert.Equal(t, Satisfied, e.State())
	assert.Equal(t, 1, e.Observed())
	assertNoFailures(t, rt)
}

func TestPreDeclaredExpectationViolatedAtTeardown(t *testing.T) {
	rt := &recordT{}
	d := New(rt, Verified(orderDescriptor(t)), Named("Bookstore"))

	e := d.Expect("NotifyCustomer").With("Ruby 101", "Alice")

	// The code under test never calls NotifyCustomer.
	rt.runCleanups()

	assert.Equal(t, Violated, e.State())
	assert.Equal(t, 0, e.Observed())
	require.Len(t, rt.errors, 1)
	assert.Contains(t, rt.errors[0], "Bookstore.NotifyCustomer")
	assert.Contains(t, rt.errors[0], "expected exactly 1, found 0 calls")
}

func TestExpectationCountsOnlyMatchingCalls(t *testing.T) {
	rt := &recordT{}
	d := New(rt, Verified(orderDescriptor(t)))
	d.Stub("NotifyCustomer").Returning("sent")

	e := d.Expect("NotifyCustomer").With(Args(Eql("Alice"))).Times(Twice())

	_, _ = d.TryInvoke("NotifyCustomer", "Alice", "Shipped")
	_, _ = d.TryInvoke("NotifyCustomer", "Bob", "Shipped")
	_, _ = d.TryInvoke("NotifyCustomer", "Alice", "Delayed")
	d.Verify()

	assert.Equal(t, Satisfied, e.State())
	assert.Equal(t, 2, e.Observed())
	assertNoFailures(t, rt)
}

func TestVariadicExpectationMatching(t *testing.T) {
	rt := &recordT{}
	d := New(rt, Verified(orderDescriptor(t)), Permissive())

	e := d.Expect("Tags").With(Eql("fiction"), Eql("hardback")).Times(Once())

	_, _ = d.TryInvoke("Tags", "fiction", "hardback")
	_, _ = d.TryInvoke("Tags", "romance", "paperback")
	d.Verify()

	assert.Equal(t, Satisfied, e.State())
	assert.Equal(t, 1, e.Observed())
	assertNoFailures(t, rt)
}

func TestExpectationTimesNever(t *testing.T) {
	rt := &recordT{}
	d := New(rt, Verified(orderDescriptor(t)))
	d.Stub("Place").Returning("placed")

	e := d.Expect("Place").Times(Never())
	_, _ = d.TryInvoke("Place")
	d.Verify()

	assert.Equal(t, Violated, e.State())
	require.Len(t, rt.errors, 1)
	assert.Contains(t, rt.errors[0], "expected never, found 1 calls")
}

func TestExpectUnknownMethodFailsImmediately(t *testing.T) {
	rt := &recordT{}
	d := New(rt, Verified(orderDescriptor(t)))

	msg := captureFatal(t, rt, func() {
		d.Expect("Plce")
	})
	assert.Contains(t, msg, `did you mean "Place"?`)
}

func TestOrderedExpectationsSatisfied(t *testing.T) {
	rt := &recordT{}
	d := New(rt, Verified(orderDescriptor(t)), Permissive())

	placed := d.Expect("Place")
	notified := d.Expect("NotifyCustomer")
	InOrder(placed, notified)

	_, _ = d.TryInvoke("Place")
	_, _ = d.TryInvoke("NotifyCustomer", "Alice", "Shipped")
	d.Verify()

	assert.Equal(t, Satisfied, placed.State())
	assert.Equal(t, Satisfied, notified.State())
	assertNoFailures(t, rt)
}

func TestOrderedExpectationsViolated(t *testing.T) {
	rt := &recordT{}
	d := New(rt, Verified(orderDescriptor(t)), Permissive())

	placed := d.Expect("Place")
	notified := d.Expect("NotifyCustomer")
	InOrder(placed, notified)

	// Notify first: counts are met, the order is not.
	_, _ = d.TryInvoke("NotifyCustomer", "Alice", "Shipped")
	_, _ = d.TryInvoke("Place")
	d.Verify()

	require.Len(t, rt.errors, 1)
	assert.Contains(t, rt.errors[0], "expected")
	assert.Contains(t, rt.errors[0], "before")
	assert.Contains(t, rt.errors[0], "observed seq 2 after seq 1")
}

func TestInOrderRequiresSameTarget(t *testing.T) {
	rt := &recordT{}
	d1 := New(rt, Verified(orderDescriptor(t)), Named("first"))
	d2 := New(rt, Verified(orderDescriptor(t)), Named("second"))

	e1 := d1.Expect("Place")
	e2 := d2.Expect("Place")
	msg := captureFatal(t, rt, func() {
		InOrder(e1, e2)
	})
	assert.Contains(t, msg, "same target")
}

func TestResolutionIsFinal(t *testing.T) {
	rt := &recordT{}
	d := New(rt, Verified(orderDescriptor(t)))

	e := d.Expect("Place")
	d.Verify()
	d.Verify()
	rt.runCleanups()

	assert.Equal(t, Violated, e.State())
	assert.Len(t, rt.errors, 1, "a resolved expectation does not re-report")
}

func TestRecorderPreDeclaredExpectation(t *testing.T) {
	rt := &recordT{}
	m := &mailer{}
	rec := Observe(rt, m)
	rec.Wrap("NotifyCustomer", Forward)

	e := rec.Expect("NotifyCustomer").With("Alice", "Shipped")
	rec.Call("NotifyCustomer", "Alice", "Shipped")
	rec.Verify()

	assert.Equal(t, Satisfied, e.State())
	assertNoFailures(t, rt)
}

func TestPostHocReceived(t *testing.T) {
	d := New(t, Verified(orderDescriptor(t)))
	d.Stub("NotifyCustomer").Returning("sent")

	_, _ = d.TryInvoke("NotifyCustomer", "Alice", "Shipped")

	d.Received("NotifyCustomer").Expect(Once())
	d.Received("NotifyCustomer", "Alice", "Shipped").Expect(Once())
	d.Received("NotifyCustomer", "Bob").Expect(Never())
}
