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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderDescriptor(t T) *Descriptor {
	return DescribeInterface(t, (*orderAPI)(nil))
}

func TestStubKnownMethodSucceeds(t *testing.T) {
	d := New(t, Verified(orderDescriptor(t)))

	d.Stub("Place").Returning("placed")

	out, err := d.TryInvoke("Place")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"placed"}, out)
}

func TestStubUnknownMethodFailsVerification(t *testing.T) {
	rt := &recordT{}
	d := New(rt, Verified(orderDescriptor(t)))

	msg := captureFatal(t, rt, func() {
		d.Stub("Plce")
	})
	assert.Contains(t, msg, `no method "Plce"`)
	assert.Contains(t, msg, `did you mean "Place"?`)
}

func TestStubAnythingOnUnverifiedDouble(t *testing.T) {
	d := New(t)

	d.Stub("Whatever").Returning(42)

	out, err := d.TryInvoke("Whatever")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{42}, out)
}

func TestInvokeArgumentCountChecked(t *testing.T) {
	d := New(t, Verified(orderDescriptor(t)))
	d.Stub("NotifyCustomer").Returning("sent")

	_, err := d.TryInvoke("NotifyCustomer", "Alice")
	var argErr *ArgumentCountError
	require.True(t, errors.As(err, &argErr))
	assert.Equal(t, 2, argErr.Want)
	assert.Equal(t, 1, argErr.Got)
}

func TestInvokeArgumentCountCheckedEvenWhenUnstubbed(t *testing.T) {
	d := New(t, Verified(orderDescriptor(t)))

	_, err := d.TryInvoke("NotifyCustomer", "Alice", "Shipped", "extra")
	var argErr *ArgumentCountError
	require.True(t, errors.As(err, &argErr))
}

func TestInvokeVariadicArity(t *testing.T) {
	d := New(t, Verified(orderDescriptor(t)))
	d.Stub("Tags").Returning([]string{"a"})

	_, err := d.TryInvoke("Tags")
	var argErr *ArgumentCountError
	require.True(t, errors.As(err, &argErr))
	assert.True(t, argErr.Variadic)

	out, err := d.TryInvoke("Tags", "fiction", "hardback", "gift")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{[]string{"a"}}, out)
}

func TestInvokeUnknownMethodFailsVerification(t *testing.T) {
	d := New(t, Verified(orderDescriptor(t)))

	_, err := d.TryInvoke("CancelX")
	var verErr *VerificationError
	require.True(t, errors.As(err, &verErr))
	assert.Equal(t, "CancelX", verErr.Method)
}

func TestInvokeUnconfiguredMethodFails(t *testing.T) {
	d := New(t, Verified(orderDescriptor(t)))
	d.Stub("Place").Returning("placed")

	_, err := d.TryInvoke("NotifyCustomer", "Alice", "Shipped")
	var unconfigured *UnconfiguredMethodError
	require.True(t, errors.As(err, &unconfigured))
	assert.Equal(t, []string{"Place"}, unconfigured.Stubbed)
}

func TestPermissiveDoubleNoOpsUnconfiguredCalls(t *testing.T) {
	d := New(t, Verified(orderDescriptor(t)), Permissive())

	out, err := d.TryInvoke("NotifyCustomer", "Alice", "Shipped")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{""}, out, "no-op responds with zero values for the signature")

	// Verification still applies: a permissive double is not an anonymous one.
	_, err = d.TryInvoke("CancelX")
	var verErr *VerificationError
	require.True(t, errors.As(err, &verErr))
}

func TestPermissiveUnverifiedDoubleRespondsWithNoValues(t *testing.T) {
	d := New(t, Permissive())

	out, err := d.TryInvoke("Anything", 1, 2, 3)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestWithStubsVerifiesInDeclarationOrder(t *testing.T) {
	rt := &recordT{}

	msg := captureFatal(t, rt, func() {
		New(rt, Verified(orderDescriptor(t)), WithStubs(
			Stub{Method: "Place", Response: Returns("placed")},
			Stub{Method: "Plce", Response: Returns("typo")},
			Stub{Method: "AlsoMissing", Response: Returns("never reached")},
		))
	})
	assert.Contains(t, msg, `"Plce"`, "first unknown stub in declaration order is reported")
}

func TestStubMatchingRoutesToFirstMatch(t *testing.T) {
	d := New(t, Verified(orderDescriptor(t)))

	d.Stub("NotifyCustomer").Matching(Args(Eql("Alice"))).Returning("for alice")
	d.Stub("NotifyCustomer").Returning("for everyone else")

	out, err := d.TryInvoke("NotifyCustomer", "Alice", "Shipped")
	require.NoError(t, err)
	assert.Equal(t, "for alice", out[0])

	out, err = d.TryInvoke("NotifyCustomer", "Bob", "Shipped")
	require.NoError(t, err)
	assert.Equal(t, "for everyone else", out[0])
}

func TestStubWithoutResponseReturnsZeroValues(t *testing.T) {
	d := New(t, Verified(orderDescriptor(t)))
	d.Stub("NotifyCustomer")

	out, err := d.TryInvoke("NotifyCustomer", "Alice", "Shipped")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{""}, out)
}

func TestReturningValidatesAgainstSignature(t *testing.T) {
	rt := &recordT{}
	d := New(rt, Verified(orderDescriptor(t)))

	msg := captureFatal(t, rt, func() {
		d.Stub("Place").Returning(42)
	})
	assert.Contains(t, msg, "assignable")
}

func TestComputedResponse(t *testing.T) {
	d := New(t, Verified(orderDescriptor(t)))
	d.Stub("NotifyCustomer").Respond(Computed(t, func(name, message string) string {
		return "Dear " + name + ": " + message
	}))

	out, err := d.TryInvoke("NotifyCustomer", "Alice", "Shipped")
	require.NoError(t, err)
	assert.Equal(t, "Dear Alice: Shipped", out[0])
}

func TestSequenceResponseExhaustion(t *testing.T) {
	d := New(t, Verified(orderDescriptor(t)))
	d.Stub("Place").Respond(Sequence(Returns("first"), Returns("second")))

	out, _ := d.TryInvoke("Place")
	assert.Equal(t, "first", out[0])
	out, _ = d.TryInvoke("Place")
	assert.Equal(t, "second", out[0])

	_, err := d.TryInvoke("Place")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exhausted")
}

func TestEveryInvocationIsRecorded(t *testing.T) {
	d := New(t, Verified(orderDescriptor(t)))
	d.Stub("Place").Returning("placed")

	_, _ = d.TryInvoke("Place")
	_, _ = d.TryInvoke("CancelX")               // unknown: recorded as failed
	_, _ = d.TryInvoke("NotifyCustomer", "one") // wrong arity: recorded as failed

	assert.Equal(t, 1, d.CallsTo("Place").Count())
	assert.Equal(t, 0, d.CallsTo("NotifyCustomer").Count(), "failed calls are excluded from spy queries")

	failed := d.FailedCalls()
	require.Len(t, failed, 2)
	assert.Equal(t, "CancelX", failed[0].Method)
	assert.Equal(t, "NotifyCustomer", failed[1].Method)
}

func TestVariadicStubMatchingThroughInvoke(t *testing.T) {
	d := New(t, Verified(orderDescriptor(t)))
	d.Stub("Tags").Matching("fiction", "hardback", "gift").Returning([]string{"matched"})
	d.Stub("Tags").Returning([]string{"fallback"})

	out, err := d.TryInvoke("Tags", "fiction", "hardback", "gift")
	require.NoError(t, err)
	assert.Equal(t, []string{"matched"}, out[0], "spread variadic arguments reach the matcher as a slice tail")

	out, err = d.TryInvoke("Tags", "fiction", []string{"hardback", "gift"})
	require.NoError(t, err)
	assert.Equal(t, []string{"matched"}, out[0], "the tail may also be supplied as one slice")

	out, err = d.TryInvoke("Tags", "fiction")
	require.NoError(t, err)
	assert.Equal(t, []string{"fallback"}, out[0])

	// Both calling conventions were recorded in the collapsed form.
	d.Received("Tags", Eql("fiction"), Eql("hardback"), Eql("gift")).Expect(Twice())
}

func TestVariadicComputedThroughInvoke(t *testing.T) {
	d := New(t, Verified(orderDescriptor(t)))
	d.Stub("Tags").Respond(Computed(t, func(first string, rest ...string) []string {
		return append([]string{first}, rest...)
	}))

	out, err := d.TryInvoke("Tags", "fiction", "hardback", "gift")
	require.NoError(t, err)
	assert.Equal(t, []string{"fiction", "hardback", "gift"}, out[0])

	out, err = d.TryInvoke("Tags", "fiction")
	require.NoError(t, err)
	assert.Equal(t, []string{"fiction"}, out[0])
}

func TestReceivedUnknownMethodFails(t *testing.T) {
	rt := &recordT{}
	d := New(rt, Verified(orderDescriptor(t)))

	msg := captureFatal(t, rt, func() {
		d.Received("Plce").Expect(Never())
	})
	assert.Contains(t, msg, `did you mean "Place"?`)
}

func TestCallsToIsRestartable(t *testing.T) {
	d := New(t, Verified(orderDescriptor(t)))
	d.Stub("Place").Returning("placed")
	_, _ = d.TryInvoke("Place")
	_, _ = d.TryInvoke("Place")

	first := d.CallsTo("Place").Records()
	second := d.CallsTo("Place").Records()
	assert.Equal(t, first, second, "re-querying re-reads the same immutable log")
	require.Len(t, first, 2)
	assert.Less(t, first[0].Seq, first[1].Seq)
}

func TestInvokeFailsTestOnVerificationError(t *testing.T) {
	rt := &recordT{}
	d := New(rt, Verified(orderDescriptor(t)))

	msg := captureFatal(t, rt, func() {
		d.Invoke("CancelX")
	})
	assert.Contains(t, msg, `no method "CancelX"`)
}

func TestVerifiedAgainstRegisteredReference(t *testing.T) {
	RegisterReference("double_test.orderAPI", orderDescriptor(t))

	d := New(t, VerifiedAgainst("double_test.orderAPI"))
	d.Stub("Place").Returning("placed")

	out, err := d.TryInvoke("Place")
	require.NoError(t, err)
	assert.Equal(t, "placed", out[0])
}

func TestVerifiedAgainstUnknownReference(t *testing.T) {
	rt := &recordT{}

	msg := captureFatal(t, rt, func() {
		New(rt, VerifiedAgainst("double_test.oderAPI"))
	})
	assert.Contains(t, msg, "unknown reference")
}

func TestTraceLogsInvocations(t *testing.T) {
	rt := &recordT{}
	d := New(rt, Verified(orderDescriptor(t)))
	d.EnableTrace()
	d.Stub("Place").Returning("placed")

	_, err := d.TryInvoke("Place")
	require.NoError(t, err)
	require.Len(t, rt.logs, 1)
	assert.True(t, strings.Contains(rt.logs[0], "Place"))
	assertNoFailures(t, rt)
}
