// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package harness

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
	"gitlab.com/accumulatenetwork/chainsim/test/simulator"
)

// A Pattern matches a single event.
type Pattern interface {
	// Match returns true if the event matches. Otherwise it returns a reason
	// if the event is of the right type but a predicate failed.
	Match(messaging.Event) (bool, string)
	String() string
}

// A Predicate is a named condition on an event.
type Predicate struct {
	desc string
	fn   func(messaging.Event) (bool, string)
}

func (p Predicate) String() string { return p.desc }

// Where defines a predicate on events of type T. Events of any other type do
// not satisfy it.
func Where[T messaging.Event](desc string, fn func(T) bool) Predicate {
	return Predicate{desc, func(e messaging.Event) (bool, string) {
		v, ok := e.(T)
		if !ok {
			return false, fmt.Sprintf("%s: not a %T", desc, v)
		}
		if !fn(v) {
			return false, desc + " is false"
		}
		return true, ""
	}}
}

// Field defines a predicate that is satisfied if the named field of the event
// is equal to value.
func Field(name string, value interface{}) Predicate {
	desc := fmt.Sprintf("%s = %v", name, value)
	return Predicate{desc, func(e messaging.Event) (bool, string) {
		v := reflect.ValueOf(e)
		for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
			if v.IsNil() {
				return false, "event is nil"
			}
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct {
			return false, fmt.Sprintf("%T is not a struct", e)
		}
		f := v.FieldByName(name)
		if !f.IsValid() {
			return false, fmt.Sprintf("%T has no field %s", e, name)
		}
		if !reflect.DeepEqual(f.Interface(), value) {
			return false, fmt.Sprintf("want %s, got %v", desc, f.Interface())
		}
		return true, ""
	}}
}

// Event returns a pattern that matches events of type T that satisfy every
// predicate.
func Event[T messaging.Event](preds ...Predicate) Pattern {
	return eventPattern[T](preds)
}

type eventPattern[T messaging.Event] []Predicate

func (p eventPattern[T]) Match(e messaging.Event) (bool, string) {
	if _, ok := e.(T); !ok {
		return false, ""
	}
	for _, pred := range p {
		ok, reason := pred.fn(e)
		if !ok {
			return false, reason
		}
	}
	return true, ""
}

func (p eventPattern[T]) String() string {
	var z T
	name := "event"
	if any(z) != nil {
		name = messaging.NameOf(z)
	}
	if len(p) == 0 {
		return name
	}
	preds := make([]string, len(p))
	for i, pred := range p {
		preds[i] = pred.desc
	}
	return fmt.Sprintf("%s{%s}", name, strings.Join(preds, ", "))
}

// AssertionFailure is returned by [MatchEvents] when a pattern is not found.
type AssertionFailure struct {
	// Index is the index of the first pattern that was not matched.
	Index int

	Reason string

	// Observed is every event that was scanned.
	Observed []*simulator.EventLogEntry
}

var dump = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

func (f *AssertionFailure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pattern %d: %s\nobserved %d event(s):", f.Index, f.Reason, len(f.Observed))
	for _, e := range f.Observed {
		fmt.Fprintf(&b, "\n  #%d (round %d) %s", e.Index, e.Round, dump.Sdump(e.Event))
	}
	return b.String()
}

// Unwrap returns [errors.AssertionFailed].
func (f *AssertionFailure) Unwrap() error { return errors.AssertionFailed }

// MatchEvents checks that the log contains the patterns in order. Other events
// may appear before, between, and after the matches. MatchEvents does not
// modify the log.
func MatchEvents(log []*simulator.EventLogEntry, patterns ...Pattern) error {
	pos := 0
	for i, p := range patterns {
		var nearest string
		found := false
		for ; pos < len(log); pos++ {
			ok, reason := p.Match(log[pos].Event)
			if ok {
				found = true
				pos++
				break
			}
			if reason != "" && nearest == "" {
				nearest = fmt.Sprintf("#%d: %s", log[pos].Index, reason)
			}
		}
		if found {
			continue
		}

		reason := fmt.Sprintf("no %v", p)
		if i > 0 {
			reason += fmt.Sprintf(" after %v", patterns[i-1])
		}
		if nearest != "" {
			reason += fmt.Sprintf(" (nearest %s)", nearest)
		} else if earlier := findBefore(log, p); earlier >= 0 {
			reason += fmt.Sprintf(" (a match precedes it at #%d)", earlier)
		}
		return &AssertionFailure{Index: i, Reason: reason, Observed: log}
	}
	return nil
}

func findBefore(log []*simulator.EventLogEntry, p Pattern) int {
	for _, e := range log {
		if ok, _ := p.Match(e.Event); ok {
			return e.Index
		}
	}
	return -1
}
