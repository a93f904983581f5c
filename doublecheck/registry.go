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
	"sort"
	"strings"
	"sync"
)

// Signature is the structural shape of one callable method on a reference:
// parameter and return types with the receiver excluded.
type Signature struct {
	Name     string
	In       []reflect.Type
	Out      []reflect.Type
	Variadic bool
}

// NumIn returns the declared parameter count. For variadic methods the final
// slice parameter counts as one.
func (s Signature) NumIn() int {
	return len(s.In)
}

// AcceptsArgCount reports whether a call supplying n arguments is compatible
// with this signature's arity.
func (s Signature) AcceptsArgCount(n int) bool {
	if s.Variadic {
		return n >= len(s.In)-1
	}
	return n == len(s.In)
}

// MinArgs is the smallest argument count AcceptsArgCount allows.
func (s Signature) MinArgs() int {
	if s.Variadic {
		return len(s.In) - 1
	}
	return len(s.In)
}

// collapse folds spread variadic arguments into the declared tail slice, so
// matchers, responses and recorded calls always see the tail as one slice.
// A call that already supplies the tail as a slice of the declared type
// passes through unchanged; both calling conventions are accepted. Arguments
// not assignable to the tail's element type are left as supplied.
func (s Signature) collapse(args []interface{}) []interface{} {
	if !s.Variadic {
		return args
	}
	fixed := len(s.In) - 1
	tailType := s.In[fixed]
	if len(args) == len(s.In) {
		if last := args[fixed]; last != nil && reflect.TypeOf(last).AssignableTo(tailType) {
			return args
		}
	}
	tail := reflect.MakeSlice(tailType, 0, len(args)-fixed)
	for _, arg := range args[fixed:] {
		if arg == nil {
			tail = reflect.Append(tail, reflect.Zero(tailType.Elem()))
			continue
		}
		if !reflect.TypeOf(arg).AssignableTo(tailType.Elem()) {
			return args
		}
		tail = reflect.Append(tail, reflect.ValueOf(arg))
	}
	out := make([]interface{}, fixed+1)
	copy(out, args[:fixed])
	out[fixed] = tail.Interface()
	return out
}

func (s Signature) String() string {
	in := make([]string, len(s.In))
	for i, t := range s.In {
		if s.Variadic && i == len(s.In)-1 {
			in[i] = "..." + t.Elem().String()
		} else {
			in[i] = t.String()
		}
	}
	out := make([]string, len(s.Out))
	for i, t := range s.Out {
		out[i] = t.String()
	}
	sig := fmt.Sprintf("%s(%s)", s.Name, strings.Join(in, ", "))
	switch len(out) {
	case 0:
		return sig
	case 1:
		return sig + " " + out[0]
	default:
		return sig + " (" + strings.Join(out, ", ") + ")"
	}
}

// A Descriptor identifies a reference being doubled and holds its method
// name to signature mapping. Built by introspection at creation time and
// immutable afterwards, so one Descriptor is safe to share across tests.
type Descriptor struct {
	name    string
	methods map[string]Signature
}

// Name is the display name of the described reference.
func (d *Descriptor) Name() string {
	return d.name
}

// Method returns the signature for name, if the reference has it.
func (d *Descriptor) Method(name string) (Signature, bool) {
	sig, ok := d.methods[name]
	return sig, ok
}

// MethodNames returns the reference's method names in sorted order.
func (d *Descriptor) MethodNames() []string {
	names := make([]string, 0, len(d.methods))
	for name := range d.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Descriptor) String() string {
	return d.name
}

// suggest proposes the nearest real method name for a likely typo.
func (d *Descriptor) suggest(name string) string {
	return nearest(name, d.MethodNames())
}

func signatureOf(m reflect.Method, hasReceiver bool) Signature {
	mt := m.Type
	first := 0
	if hasReceiver {
		first = 1
	}
	sig := Signature{Name: m.Name, Variadic: mt.IsVariadic()}
	for i := first; i < mt.NumIn(); i++ {
		sig.In = append(sig.In, mt.In(i))
	}
	for i := 0; i < mt.NumOut(); i++ {
		sig.Out = append(sig.Out, mt.Out(i))
	}
	return sig
}

func describeType(name string, rt reflect.Type, hasReceiver bool) *Descriptor {
	methods := make(map[string]Signature, rt.NumMethod())
	for i := 0; i < rt.NumMethod(); i++ {
		m := rt.Method(i)
		methods[m.Name] = signatureOf(m, hasReceiver)
	}
	return &Descriptor{name: name, methods: methods}
}

// DescribeInterface builds a Descriptor from the nil implementation of an
// interface - (*Iface)(nil) - mirroring how doubles are declared for it.
// Fails t fatally when iface is anything else.
func DescribeInterface(t T, iface interface{}) *Descriptor {
	t.Helper()
	rt := reflect.TypeOf(iface)
	if rt == nil || rt.Kind() != reflect.Ptr || rt.Elem().Kind() != reflect.Interface {
		t.Fatalf("expecting '%v' to be a pointer to nil interface", iface)
		return nil
	}
	rt = rt.Elem()
	return describeType(rt.String(), rt, false)
}

// DescribeObject builds a Descriptor from a live instance: the method set of
// the value exactly as supplied. Pass a pointer to see pointer-receiver
// methods, the reference-level equivalent of DescribeClass.
func DescribeObject(t T, instance interface{}) *Descriptor {
	t.Helper()
	rt := reflect.TypeOf(instance)
	if rt == nil {
		t.Fatalf("cannot describe a nil instance")
		return nil
	}
	return describeType(rt.String(), rt, true)
}

// DescribeClass builds a Descriptor from the full method set of *T for an
// instance of T, so methods declared with pointer receivers are included
// even when a value was supplied. This is the type-level counterpart to
// DescribeObject's instance-level view.
func DescribeClass(t T, instance interface{}) *Descriptor {
	t.Helper()
	rt := reflect.TypeOf(instance)
	if rt == nil {
		t.Fatalf("cannot describe a nil instance")
		return nil
	}
	name := rt.String()
	if rt.Kind() != reflect.Ptr {
		rt = reflect.PtrTo(rt)
	}
	return describeType(name, rt, true)
}

// referenceTable is the process-global name to Descriptor registry. Writes
// happen during test setup, reads from any test, hence the lock. Descriptors
// themselves are immutable so sharing them is safe.
var referenceTable = struct {
	sync.RWMutex
	refs map[string]*Descriptor
}{refs: make(map[string]*Descriptor)}

// RegisterReference records desc under name for later lookup by
// LookupReference. Re-registering a name replaces the prior descriptor.
func RegisterReference(name string, desc *Descriptor) {
	referenceTable.Lock()
	defer referenceTable.Unlock()
	referenceTable.refs[name] = desc
}

// LookupReference resolves a previously registered reference by name,
// returning an UnknownReferenceError (with a typo suggestion when one is
// plausible) if the name was never registered.
func LookupReference(name string) (*Descriptor, error) {
	referenceTable.RLock()
	defer referenceTable.RUnlock()
	if desc, ok := referenceTable.refs[name]; ok {
		return desc, nil
	}
	known := make([]string, 0, len(referenceTable.refs))
	for ref := range referenceTable.refs {
		known = append(known, ref)
	}
	sort.Strings(known)
	return nil, &UnknownReferenceError{Reference: name, Suggestion: nearest(name, known)}
}
