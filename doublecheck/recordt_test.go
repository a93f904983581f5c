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
	"testing"
)

// recordT captures the library's own failure reporting so tests can assert
// on it. Fatalf panics to stop the caller the way testing.T's runtime.Goexit
// would.
type recordT struct {
	errors   []string
	fatals   []string
	logs     []string
	cleanups []func()
}

type fatalStop struct{ msg string }

func (r *recordT) Errorf(format string, args ...interface{}) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func (r *recordT) Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.fatals = append(r.fatals, msg)
	panic(fatalStop{msg})
}

func (r *recordT) Logf(format string, args ...interface{}) {
	r.logs = append(r.logs, fmt.Sprintf(format, args...))
}

func (r *recordT) Helper() {}

func (r *recordT) Cleanup(f func()) {
	r.cleanups = append(r.cleanups, f)
}

// runCleanups runs registered cleanups last-in first-out, like testing.T.
func (r *recordT) runCleanups() {
	for i := len(r.cleanups) - 1; i >= 0; i-- {
		r.cleanups[i]()
	}
}

// captureFatal runs fn expecting it to fail fatally, returning the message.
func captureFatal(t *testing.T, rt *recordT, fn func()) (msg string) {
	t.Helper()
	defer func() {
		stop, ok := recover().(fatalStop)
		if !ok {
			t.Fatalf("expected a fatal failure, got none")
			return
		}
		msg = stop.msg
	}()
	fn()
	return
}

// assertNoFailures fails t when the recording T saw any failure.
func assertNoFailures(t *testing.T, rt *recordT) {
	t.Helper()
	if len(rt.errors) > 0 || len(rt.fatals) > 0 {
		t.Errorf("unexpected failures: %s", strings.Join(append(rt.errors, rt.fatals...), "; "))
	}
}
