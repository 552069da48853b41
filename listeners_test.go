// listeners_test.go: Change notification tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package tessera

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type valueLog struct {
	name  string
	calls *[]string
	onHit func(ValueChangeEvent)
}

func (l *valueLog) ValueChanged(e ValueChangeEvent) {
	*l.calls = append(*l.calls, fmt.Sprintf("%s:%s:%q->%q:existed=%v:removed=%v",
		l.name, e.Key, e.OldValue, e.NewValue, e.Existed, e.Removed))
	if l.onHit != nil {
		l.onHit(e)
	}
}

type structureLog struct {
	calls []string
}

func (l *structureLog) StructureChanged(e StructureChangeEvent) {
	l.calls = append(l.calls, fmt.Sprintf("%s:%s:%s", e.Kind, e.Parent.Path(), e.Child.Name()))
}

func TestValueListener_Events(t *testing.T) {
	var calls []string
	n := NewNode().Node("s")
	n.AddValueListener(&valueLog{name: "l", calls: &calls})

	n.Put("k", "a")
	n.Put("k", "a") // unchanged, no event
	n.Put("k", "b")
	n.Remove("k")
	n.Remove("k") // absent, no event

	want := []string{
		`l:k:""->"a":existed=false:removed=false`,
		`l:k:"a"->"b":existed=true:removed=false`,
		`l:k:"b"->"":existed=true:removed=true`,
	}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestValueListener_OrderAndDedup(t *testing.T) {
	var calls []string
	n := NewNode()
	first := &valueLog{name: "first", calls: &calls}
	second := &valueLog{name: "second", calls: &calls}

	n.AddValueListener(first)
	n.AddValueListener(second)
	n.AddValueListener(first)
	n.Put("k", "v")

	if len(calls) != 2 || calls[0][:5] != "first" || calls[1][:6] != "second" {
		t.Fatalf("expected first then second exactly once, got %v", calls)
	}

	calls = nil
	n.RemoveValueListener(first)
	n.RemoveValueListener(first)
	n.Put("k", "w")
	if len(calls) != 1 || calls[0][:6] != "second" {
		t.Errorf("expected only second after removal, got %v", calls)
	}
}

func TestValueListener_SnapshotDuringDelivery(t *testing.T) {
	var calls []string
	n := NewNode()
	late := &valueLog{name: "late", calls: &calls}
	early := &valueLog{name: "early", calls: &calls}
	early.onHit = func(ValueChangeEvent) { n.AddValueListener(late) }

	n.AddValueListener(early)
	n.Put("k", "1")
	if len(calls) != 1 {
		t.Fatalf("listener added during delivery must not see that change, got %v", calls)
	}

	n.Put("k", "2")
	if len(calls) != 3 {
		t.Errorf("both listeners expected on the next change, got %v", calls)
	}
}

func TestValueListener_MutationFromCallback(t *testing.T) {
	var calls []string
	n := NewNode()
	l := &valueLog{name: "l", calls: &calls}
	l.onHit = func(e ValueChangeEvent) {
		if e.Key == "trigger" {
			n.Put("derived", e.NewValue+"!")
		}
	}
	n.AddValueListener(l)

	n.Put("trigger", "x")
	if got := n.Get("derived", ""); got != "x!" {
		t.Errorf("callback mutation lost: derived = %q", got)
	}
}

func TestStructureListener_Events(t *testing.T) {
	root := NewNode()
	log := &structureLog{}
	root.AddStructureListener(log)
	root.AddStructureListener(log)

	root.Node("a/b") // b is announced on a, not on root
	root.Node("a")   // exists, no event
	root.RemoveChild("a")

	want := []string{"added:/:a", "removed:/:a"}
	if diff := cmp.Diff(want, log.calls); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	root.RemoveStructureListener(log)
	root.Node("c")
	if len(log.calls) != 2 {
		t.Errorf("removed listener still notified: %v", log.calls)
	}
}

func TestStructureChangeKind_String(t *testing.T) {
	if ChildAdded.String() != "added" || ChildRemoved.String() != "removed" {
		t.Error("unexpected kind names")
	}
	if StructureChangeKind(7).String() != "unknown" {
		t.Error("unknown kinds must print as unknown")
	}
}
