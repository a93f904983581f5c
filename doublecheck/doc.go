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

/*
Package doublecheck is a verifying test-double and call-spy library.

A double stands in for a real collaborator during a test. A verifying double
is restricted to the method names and arities that actually exist on a real
reference, so a typo in a stubbed name or a drifting signature fails the test
instead of silently passing. A spy records calls for later assertion,
optionally still invoking the real implementation.

See the canonical sources...

* http://xunitpatterns.com/Test%20Double.html

* https://martinfowler.com/articles/mocksArentStubs.html

Verifying doubles

Describe the real reference once, then create doubles against it. Stubbing a
method the reference does not have fails immediately, with a suggestion when
the name looks like a typo.

	func Test_Place(t *testing.T) {
		desc := doublecheck.DescribeInterface(t, (*OrderService)(nil))
		d := doublecheck.New(t, doublecheck.Verified(desc))

		d.Stub("Place").Returning("placed")

		// Exercise the system under test, dispatching through d.Invoke...

		got := d.Invoke("Place")[0]
	}

A permissive (null-object) double no-ops on unconfigured calls instead of
failing:

	d := doublecheck.New(t, doublecheck.Verified(desc), doublecheck.Permissive())

Spying on live objects

Observe wraps a live object in a recording proxy. A method wrapped in
Forward mode records each call and still invokes the real implementation;
Suppress mode records and returns zero values.

	func Test_Notify(t *testing.T) {
		store := NewBookstore()
		rec := doublecheck.Observe(t, store)
		rec.Wrap("NotifyCustomer", doublecheck.Forward)

		rec.Call("NotifyCustomer", "Alice", "Shipped")

		rec.Received("NotifyCustomer", "Alice", "Shipped").Expect(doublecheck.Once())
	}

Expectations

Pre-declared expectations are registered before the code under test runs and
resolve automatically at teardown:

	d.Expect("OrderBook").With("Ruby 101", "Alice").Times(doublecheck.Once())

Post-hoc assertions query the history accumulated so far:

	d.Received("OrderBook", "Ruby 101", "Alice").Expect(doublecheck.Once())

Relative ordering is declared across expectations on the same target:

	placed := d.Expect("Place")
	notified := d.Expect("NotifyCustomer")
	doublecheck.InOrder(placed, notified)
*/
package doublecheck
