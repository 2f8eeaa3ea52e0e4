package prompt

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/gbrlmrll/mnemo/internal/facts"
	"github.com/gbrlmrll/mnemo/internal/history"
)

func newTestParts(t *testing.T) (facts.Store, *history.Window) {
	t.Helper()
	dir := t.TempDir()
	store := facts.NewFileStore(
		filepath.Join(dir, "user.json"),
		filepath.Join(dir, "bot.json"),
		nil,
	)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return store, history.NewWindow()
}

func TestBuildMinimalContext(t *testing.T) {
	store, window := newTestParts(t)
	a := NewAssembler("persona text", 10, store, window)

	window.Append("u1", history.Turn{Role: history.RoleUser, Text: "hello"})
	got := a.Build("u1", "Ada", "hello")

	if len(got) != 2 {
		t.Fatalf("Build() len = %d, want 2 (context block + prompt)", len(got))
	}
	if got[0].Role != "user" || got[1].Role != "user" {
		t.Fatalf("roles = %q/%q, want user/user", got[0].Role, got[1].Role)
	}
	block := got[0].Parts[0].Text
	if !strings.HasPrefix(block, "persona text\n\n") {
		t.Fatalf("context block should start with persona, got %q", block)
	}
	if !strings.Contains(block, "Display Name: Ada") || !strings.Contains(block, "User ID: u1") {
		t.Fatalf("context block missing user header: %q", block)
	}
	if strings.Contains(block, "MEMORIES") {
		t.Fatalf("context block should omit fact sections when empty: %q", block)
	}
	if got[1].Parts[0].Text != "hello" {
		t.Fatalf("final entry = %q, want prompt text", got[1].Parts[0].Text)
	}
}

func TestBuildRendersFactsAsBullets(t *testing.T) {
	ctx := context.Background()
	store, window := newTestParts(t)
	store.AddBotFact(ctx, "enjoys puns")
	store.AddUserFact(ctx, "u1", "Ada", "prefers green tea")
	store.AddUserFact(ctx, "u1", "Ada", "lives in Turin")
	store.AddUserFact(ctx, "u2", "Grace", "likes compilers")

	a := NewAssembler("p", 10, store, window)
	window.Append("u1", history.Turn{Role: history.RoleUser, Text: "hi"})
	block := a.Build("u1", "Ada", "hi")[0].Parts[0].Text

	if !strings.Contains(block, "- enjoys puns\n") {
		t.Fatalf("bot fact bullet missing: %q", block)
	}
	if !strings.Contains(block, "MEMORIES ABOUT Ada") {
		t.Fatalf("user fact header missing: %q", block)
	}
	if !strings.Contains(block, "- prefers green tea\n- lives in Turin\n") {
		t.Fatalf("user fact bullets missing or out of order: %q", block)
	}
	if strings.Contains(block, "likes compilers") {
		t.Fatalf("another user's facts leaked into the block: %q", block)
	}
}

func TestBuildHistoryTruncationAndRoleMapping(t *testing.T) {
	store, window := newTestParts(t)
	a := NewAssembler("p", 3, store, window)

	for i := 0; i < 5; i++ {
		window.Append("u1", history.Turn{Role: history.RoleUser, Text: fmt.Sprintf("q%d", i)})
		window.Append("u1", history.Turn{Role: history.RoleModel, Text: fmt.Sprintf("a%d", i)})
	}
	window.Append("u1", history.Turn{Role: history.RoleUser, Text: "current"})

	got := a.Build("u1", "Ada", "current")
	if len(got) != 5 {
		t.Fatalf("Build() len = %d, want 2+3", len(got))
	}
	// Last three prior turns are a3, q4, a4 — oldest first, roles mapped.
	wantTexts := []string{"a3", "q4", "a4"}
	wantRoles := []string{"model", "user", "model"}
	for i := 0; i < 3; i++ {
		entry := got[1+i]
		if entry.Parts[0].Text != wantTexts[i] || entry.Role != wantRoles[i] {
			t.Fatalf("history[%d] = %s/%q, want %s/%q",
				i, entry.Role, entry.Parts[0].Text, wantRoles[i], wantTexts[i])
		}
	}
	if got[4].Parts[0].Text != "current" {
		t.Fatalf("final entry = %q, want current prompt", got[4].Parts[0].Text)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	ctx := context.Background()
	store, window := newTestParts(t)
	store.AddBotFact(ctx, "fact")
	store.AddUserFact(ctx, "u1", "Ada", "another fact")

	a := NewAssembler("p", 4, store, window)
	window.Append("u1", history.Turn{Role: history.RoleUser, Text: "older"})
	window.Append("u1", history.Turn{Role: history.RoleModel, Text: "reply"})
	window.Append("u1", history.Turn{Role: history.RoleUser, Text: "prompt"})

	first := a.Build("u1", "Ada", "prompt")
	second := a.Build("u1", "Ada", "prompt")
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Build() is not deterministic:\n%+v\nvs\n%+v", first, second)
	}
}
