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
	"strings"
)

// Matcher matches a full argument list or one argument at a time.
type Matcher interface {

	// Matches returns true if the arg (or args) matches this matcher
	Matches(args ...interface{}) bool
}

// An ArgsMatcher is a Matcher that can validate its usage against a method
// signature during setup.
type ArgsMatcher interface {
	Matcher

	// ForSignature uses t to assert suitability of this matcher for sig
	ForSignature(t T, sig Signature)
}

// An ArgMatcher is a Matcher that can validate its usage against the type of
// a single argument.
type ArgMatcher interface {
	Matcher

	// ForType uses t to assert suitability of this matcher for an argument of type ft
	ForType(t T, ft reflect.Type)
}

// A CombinationMatcher can validate its usage both as a full argument list
// matcher and as a single argument matcher.
type CombinationMatcher interface {
	Matcher
	ForSignature(t T, sig Signature)
	ForType(t T, ft reflect.Type)
}

func validateForSignature(t T, sig Signature, matcher Matcher) {
	t.Helper()
	if am, ok := matcher.(ArgsMatcher); ok {
		am.ForSignature(t, sig)
	} else {
		t.Fatalf("cannot use %v as ArgsMatcher", matcher)
	}
}

func validateForType(t T, ft reflect.Type, matcher Matcher) {
	t.Helper()
	if am, ok := matcher.(ArgMatcher); ok {
		am.ForType(t, ft)
	} else {
		t.Fatalf("cannot use %v as ArgMatcher", matcher)
	}
}

// asArgMatcher converts an arbitrary value to a single argument matcher:
// matchers pass through, funcs become Func, anything else becomes Eql.
func asArgMatcher(v interface{}) ArgMatcher {
	switch typed := v.(type) {
	case ArgMatcher:
		return typed
	case reflect.Type:
		return IsA(typed)
	default:
		if v != nil && reflect.TypeOf(v).Kind() == reflect.Func {
			return funcMatcher{reflect.ValueOf(v), fmt.Sprintf("%T", v)}
		}
		return Eql(v)
	}
}

// buildMatcher assembles the user supplied matchers into one ArgsMatcher and,
// when sig is known, validates it for the method being matched.
//
// A single Matcher is used as-is; a leading func is wrapped with Func();
// anything else is converted per asArgMatcher and combined with Args().
func buildMatcher(t T, sig *Signature, matchers ...interface{}) ArgsMatcher {
	t.Helper()

	var result ArgsMatcher
	switch {
	case len(matchers) == 0:
		result = All()
	case len(matchers) == 1:
		if am, ok := matchers[0].(ArgsMatcher); ok {
			result = am
		} else if matchers[0] != nil && reflect.TypeOf(matchers[0]).Kind() == reflect.Func {
			result = funcMatcher{reflect.ValueOf(matchers[0]), fmt.Sprintf("%T", matchers[0])}
		} else {
			result = Args(asArgMatcher(matchers[0]))
		}
	default:
		list := make([]Matcher, len(matchers))
		for i, m := range matchers {
			list[i] = asArgMatcher(m)
		}
		result = Args(list...)
	}

	if sig != nil {
		result.ForSignature(t, *sig)
	}
	return result
}

type funcMatcher struct {
	reflect.Value
	explanation string
}

func (f funcMatcher) String() string {
	return f.explanation
}

func (f funcMatcher) ForSignature(t T, sig Signature) {
	t.Helper()
	ft := f.Value.Type()
	if ft.Kind() != reflect.Func || ft.NumOut() != 1 || ft.Out(0).Kind() != reflect.Bool {
		t.Fatalf("expected Func(...) bool, have %v", ft)
		return
	}
	if ft.IsVariadic() != sig.Variadic || ft.NumIn() != len(sig.In) {
		t.Fatalf("%v cannot match %v", ft, sig)
		return
	}
	for i, in := range sig.In {
		if !in.AssignableTo(ft.In(i)) {
			t.Fatalf("%v requires %v argument %d to be assignable from %v", sig, ft, i, in)
		}
	}
}

func (f funcMatcher) ForType(t T, ft reflect.Type) {
	t.Helper()
	vt := f.Type()
	if f.Kind() != reflect.Func || vt.NumIn() != 1 || vt.NumOut() != 1 || vt.Out(0).Kind() != reflect.Bool {
		t.Fatalf("%v expected to be a function that accepts 1 argument and returns bool, got %v", f, vt)
		return
	}
	if !ft.AssignableTo(vt.In(0)) {
		t.Fatalf("argument to %v expected to be assignable from %v, got %v", f, ft, vt.In(0))
	}
}

func (f funcMatcher) Matches(args ...interface{}) bool {
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(f.Type().In(i))
		} else {
			in[i] = reflect.ValueOf(arg)
		}
	}
	if f.Type().IsVariadic() {
		return f.CallSlice(in)[0].Interface().(bool)
	}
	return f.Call(in)[0].Interface().(bool)
}

// Func returns a matcher from the arbitrary predicate f.
//
// When matching a full argument list, f(...) bool must have a signature
// compatible with the stubbed method. When matching a single argument, f
// must be a func(x T) bool with T assignable from the argument.
// An optional explanation describes what is being matched in diagnostics.
func Func(f interface{}, explanation ...interface{}) CombinationMatcher {
	fv := reflect.ValueOf(f)
	explain := fmt.Sprintf("%T", f)
	if len(explanation) > 0 {
		explain = fmt.Sprint(explanation...)
	}
	return funcMatcher{fv, explain}
}

type matcherList []Matcher

func (l matcherList) describe(prefix string, lRune, rRune rune) string {
	sb := strings.Builder{}
	sb.WriteString(prefix)
	if len(l) > 0 {
		sb.WriteRune(lRune)
		for i, m := range l {
			if i > 0 {
				sb.WriteRune(',')
			}
			sb.WriteString(fmt.Sprint(m))
		}
		sb.WriteRune(rRune)
	}
	return sb.String()
}

type argumentsMatcher struct {
	list matcherList
}

func (a *argumentsMatcher) Matches(args ...interface{}) bool {
	for i := 0; i < len(a.list) && i < len(args); i++ {
		if !a.list[i].Matches(args[i]) {
			return false
		}
	}
	return true
}

func (a *argumentsMatcher) ForSignature(t T, sig Signature) {
	t.Helper()
	if sig.Variadic {
		// Collapse the trailing matchers into a Slice() over the variadic arg.
		if len(a.list) > len(sig.In)-1 {
			fixed := len(sig.In) - 1
			collapsed := make([]Matcher, len(sig.In))
			copy(collapsed, a.list[:fixed])
			rest := make([]Matcher, len(a.list)-fixed)
			copy(rest, a.list[fixed:])
			collapsed[fixed] = Slice(rest...)
			a.list = collapsed
		}
	} else if len(a.list) > len(sig.In) {
		t.Fatalf("%v accepts at most %d argument matchers, have %d", sig, len(sig.In), len(a.list))
		return
	}
	for i, m := range a.list {
		validateForType(t, sig.In[i], m)
	}
}

func (a *argumentsMatcher) String() string {
	return a.list.describe("Args", '(', ')')
}

// Args builds a full argument list matcher from single argument matchers,
// position by position. Missing trailing matchers match anything.
func Args(matchers ...Matcher) ArgsMatcher {
	return &argumentsMatcher{matchers}
}

type sliceMatcher struct {
	list matcherList
}

// Slice returns an ArgMatcher for a slice or array argument: each member
// matcher must match the element in the corresponding position.
func Slice(matchers ...Matcher) ArgMatcher {
	return &sliceMatcher{matchers}
}

func (sm *sliceMatcher) String() string {
	return sm.list.describe("Slice", '[', ']')
}

func (sm *sliceMatcher) Matches(args ...interface{}) bool {
	v := reflect.ValueOf(args[0])
	switch v.Kind() {
	case reflect.Array, reflect.Slice:
		if v.Len() < len(sm.list) {
			return false
		}
		for i := 0; i < len(sm.list); i++ {
			if !sm.list[i].Matches(v.Index(i).Interface()) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (sm *sliceMatcher) ForType(t T, ft reflect.Type) {
	t.Helper()
	if ft.Kind() != reflect.Slice && ft.Kind() != reflect.Array {
		t.Fatalf("Slice() used to match non slice or array type %v", ft)
		return
	}
	for _, m := range sm.list {
		validateForType(t, ft.Elem(), m)
	}
}

type eqlMatcher struct {
	expected interface{}
}

func (e eqlMatcher) String() string {
	return fmt.Sprintf("Eql(%v)", e.expected)
}

func (e eqlMatcher) Matches(args ...interface{}) bool {
	return reflect.DeepEqual(args[0], e.expected)
}

func (e eqlMatcher) ForType(t T, ft reflect.Type) {
	t.Helper()
	if e.expected == nil {
		singletonNilMatcher.ForType(t, ft)
		return
	}
	if et := reflect.TypeOf(e.expected); !et.AssignableTo(ft) {
		t.Fatalf("Eql(%v) of type %v cannot match argument type %v", e.expected, et, ft)
	}
}

// Eql matches a single argument equal to v via reflect.DeepEqual.
func Eql(v interface{}) ArgMatcher {
	return eqlMatcher{v}
}

type nilMatcher struct{}

func (n nilMatcher) String() string {
	return "Nil"
}

func (n nilMatcher) Matches(args ...interface{}) bool {
	arg := args[0]
	if arg == nil {
		return true
	}
	v := reflect.ValueOf(arg)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return v.IsNil()
	}
	return false
}

func (n nilMatcher) ForType(t T, ft reflect.Type) {
	t.Helper()
	if !nilable(ft) {
		t.Fatalf("type %v cannot be nil", ft)
	}
}

var singletonNilMatcher = nilMatcher{}

// Nil matches a single argument of any nil-able type being nil.
func Nil() ArgMatcher {
	return singletonNilMatcher
}

type lenMatcher struct {
	ArgMatcher
}

func (l lenMatcher) String() string {
	return fmt.Sprintf("Len(%v)", l.ArgMatcher)
}

func (l lenMatcher) Matches(args ...interface{}) bool {
	v := reflect.ValueOf(args[0])
	switch v.Kind() {
	case reflect.Array, reflect.Chan, reflect.Map, reflect.Slice, reflect.String:
		return l.ArgMatcher.Matches(v.Len())
	default:
		return false
	}
}

func (l lenMatcher) ForType(t T, ft reflect.Type) {
	t.Helper()
	switch ft.Kind() {
	case reflect.Array, reflect.Chan, reflect.Map, reflect.Slice, reflect.String:
		l.ArgMatcher.ForType(t, reflect.TypeOf(0))
	default:
		t.Fatalf("cannot check length of type %v", ft)
	}
}

// Len matches a single argument of a length-able type whose length matches v.
// v may be anything that can match an int, eg
//
//	Len(0)
//	Len(func(l int) bool { return l <= 10 })
func Len(v interface{}) ArgMatcher {
	return lenMatcher{asArgMatcher(v)}
}

// IsA matches a single argument assignable to (or implementing) type t;
// t is converted with reflect.TypeOf unless it is already a reflect.Type.
func IsA(t interface{}) ArgMatcher {
	rt, isType := t.(reflect.Type)
	if !isType {
		rt = reflect.TypeOf(t)
	}
	return Func(func(x interface{}) bool {
		argT := reflect.TypeOf(x)
		if argT == nil {
			return false
		}
		if argT.Kind() == reflect.Interface {
			return argT.AssignableTo(rt) || argT.Implements(rt)
		}
		return argT.AssignableTo(rt)
	}, "IsA", "(", rt, ")")
}

type combination struct {
	list    matcherList
	explain string
}

func (c combination) String() string {
	return c.list.describe(c.explain, '{', '}')
}

func (c combination) ForSignature(t T, sig Signature) {
	t.Helper()
	for _, m := range c.list {
		validateForSignature(t, sig, m)
	}
}

func (c combination) ForType(t T, ft reflect.Type) {
	t.Helper()
	for _, m := range c.list {
		validateForType(t, ft, m)
	}
}

type andMatcher struct {
	combination
}

func (a andMatcher) Matches(args ...interface{}) bool {
	for _, m := range a.list {
		if !m.Matches(args...) {
			return false
		}
	}
	return true
}

// All matches if all of matchers match (true for no matchers).
func All(matchers ...Matcher) CombinationMatcher {
	return andMatcher{combination{matchers, "All"}}
}

// And matches if all of matchers match.
func And(matchers ...Matcher) CombinationMatcher {
	return All(matchers...)
}

type orMatcher struct {
	combination
}

func (o orMatcher) Matches(args ...interface{}) bool {
	for _, m := range o.list {
		if m.Matches(args...) {
			return true
		}
	}
	return false
}

// Any matches if any one of matchers match (false for no matchers).
func Any(matchers ...Matcher) CombinationMatcher {
	return orMatcher{combination{matchers, "Any"}}
}

// Or matches if any one of matchers match.
func Or(matchers ...Matcher) CombinationMatcher {
	return Any(matchers...)
}

type notMatcher struct {
	Matcher
}

func (nm notMatcher) String() string {
	return fmt.Sprintf("Not(%v)", nm.Matcher)
}

func (nm notMatcher) Matches(args ...interface{}) bool {
	return !nm.Matcher.Matches(args...)
}

func (nm notMatcher) ForSignature(t T, sig Signature) {
	t.Helper()
	validateForSignature(t, sig, nm.Matcher)
}

func (nm notMatcher) ForType(t T, ft reflect.Type) {
	t.Helper()
	validateForType(t, ft, nm.Matcher)
}

// Not negates matcher.
func Not(matcher Matcher) CombinationMatcher {
	return notMatcher{matcher}
}
