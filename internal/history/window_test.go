package history

import (
	"fmt"
	"reflect"
	"testing"
)

func TestTrailingExcludesNewestTurn(t *testing.T) {
	w := NewWindow()
	w.Append("u1", Turn{Role: RoleUser, Text: "first"})
	w.Append("u1", Turn{Role: RoleModel, Text: "second"})
	w.Append("u1", Turn{Role: RoleUser, Text: "current prompt"})

	got := w.Trailing("u1", 10)
	want := []Turn{
		{Role: RoleUser, Text: "first"},
		{Role: RoleModel, Text: "second"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Trailing() = %+v, want %+v", got, want)
	}
}

func TestTrailingTruncatesToMaxOldestFirst(t *testing.T) {
	w := NewWindow()
	for i := 0; i < 7; i++ {
		w.Append("u1", Turn{Role: RoleUser, Text: fmt.Sprintf("t%d", i)})
	}

	got := w.Trailing("u1", 3)
	if len(got) != 3 {
		t.Fatalf("Trailing() len = %d, want 3", len(got))
	}
	// Turns 0..6 stored; newest (t6) excluded; last 3 of the rest are t3..t5.
	for i, want := range []string{"t3", "t4", "t5"} {
		if got[i].Text != want {
			t.Fatalf("Trailing()[%d] = %q, want %q", i, got[i].Text, want)
		}
	}
}

func TestTrailingEmptyAndSingleTurn(t *testing.T) {
	w := NewWindow()
	if got := w.Trailing("missing", 5); got != nil {
		t.Fatalf("Trailing() on missing key = %+v, want nil", got)
	}

	w.Append("u1", Turn{Role: RoleUser, Text: "only"})
	if got := w.Trailing("u1", 5); got != nil {
		t.Fatalf("Trailing() with single turn = %+v, want nil", got)
	}
}

func TestAppendCreatesKeysLazily(t *testing.T) {
	w := NewWindow()
	if w.Len("u1") != 0 {
		t.Fatalf("Len() on fresh window = %d, want 0", w.Len("u1"))
	}
	w.Append("u1", Turn{Role: RoleUser, Text: "hello"})
	w.Append("u2", Turn{Role: RoleUser, Text: "ciao"})
	if w.Len("u1") != 1 || w.Len("u2") != 1 {
		t.Fatalf("Len() = %d/%d, want 1/1", w.Len("u1"), w.Len("u2"))
	}
}
