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
	"reflect"
)

// assertReturnsFor fatally fails t unless values are compatible with sig's
// return types.
func assertReturnsFor(t T, sig Signature, values []interface{}) {
	t.Helper()
	if len(values) != len(sig.Out) {
		t.Fatalf("%v expects %d return value(s), got %d", sig, len(sig.Out), len(values))
		return
	}
	for i, v := range values {
		want := sig.Out[i]
		if v == nil {
			if !nilable(want) {
				t.Fatalf("%v return value %d of type %v cannot be nil", sig, i, want)
			}
			continue
		}
		if got := reflect.TypeOf(v); !got.AssignableTo(want) {
			t.Fatalf("%v expects return value %d assignable to %v, got %v", sig, i, want, got)
		}
	}
}

// assertComputedFor fatally fails t unless fnType can stand in for sig:
// same variadic shape, compatible inputs and outputs.
func assertComputedFor(t T, sig Signature, fnType reflect.Type) {
	t.Helper()
	if fnType.Kind() != reflect.Func {
		t.Fatalf("expected func, got %v", fnType)
		return
	}
	if fnType.IsVariadic() != sig.Variadic {
		t.Fatalf("%v expects %v to have variadic=%v", sig, fnType, sig.Variadic)
		return
	}
	if fnType.NumIn() != len(sig.In) {
		t.Fatalf("%v expects %v to take %d argument(s), found %d", sig, fnType, len(sig.In), fnType.NumIn())
		return
	}
	for i, in := range sig.In {
		if !in.AssignableTo(fnType.In(i)) {
			t.Fatalf("%v requires %v argument %d to be assignable from %v", sig, fnType, i, in)
		}
	}
	if fnType.NumOut() != len(sig.Out) {
		t.Fatalf("%v expects %v to return %d value(s), found %d", sig, fnType, len(sig.Out), fnType.NumOut())
		return
	}
	for i, out := range sig.Out {
		if !fnType.Out(i).AssignableTo(out) {
			t.Fatalf("%v expects %v return value %d to be assignable to %v, got %v", sig, fnType, i, out, fnType.Out(i))
		}
	}
}

func nilable(rt reflect.Type) bool {
	switch rt.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return true
	}
	return false
}
