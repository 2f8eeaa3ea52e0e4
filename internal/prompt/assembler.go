// Package prompt builds the bounded context window sent to the model on each
// turn: persona and facts first, then trailing history, then the prompt.
package prompt

import (
	"fmt"
	"strings"

	"github.com/gbrlmrll/mnemo/internal/facts"
	"github.com/gbrlmrll/mnemo/internal/gemini"
	"github.com/gbrlmrll/mnemo/internal/history"
)

// Assembler produces the ordered role-tagged contents for one turn. Given
// identical store and window state the output is identical; nothing here is
// randomized or reordered.
type Assembler struct {
	persona    string
	maxHistory int
	store      facts.Store
	window     *history.Window
}

func NewAssembler(persona string, maxHistory int, store facts.Store, window *history.Window) *Assembler {
	return &Assembler{
		persona:    persona,
		maxHistory: maxHistory,
		store:      store,
		window:     window,
	}
}

// Build assembles the outbound contents. The conversation key is the user id;
// the window is expected to already hold the current prompt as its newest
// turn, which Trailing excludes. The result never exceeds 2+maxHistory
// entries: context block, history slice, current prompt.
func (a *Assembler) Build(userID, displayName, promptText string) []gemini.Content {
	out := make([]gemini.Content, 0, a.maxHistory+2)
	out = append(out, gemini.Text("user", a.contextBlock(userID, displayName)))

	for _, turn := range a.window.Trailing(userID, a.maxHistory) {
		role := "user"
		if turn.Role == history.RoleModel {
			role = "model"
		}
		out = append(out, gemini.Text(role, turn.Text))
	}

	out = append(out, gemini.Text("user", promptText))
	return out
}

// contextBlock renders persona, user header, and both fact sequences into the
// single grounding message. It rides the "user" role because the transport
// has no privileged system role.
func (a *Assembler) contextBlock(userID, displayName string) string {
	var b strings.Builder
	b.WriteString(a.persona)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "**CURRENT USER DETAILS:**\n- Display Name: %s\n- User ID: %s\n\n", displayName, userID)

	if botFacts := a.store.BotFacts(); len(botFacts) > 0 {
		b.WriteString("**YOUR GENERAL MEMORIES/INSIGHTS (FACTS FOR YOU TO USE):**\n")
		for _, f := range botFacts {
			fmt.Fprintf(&b, "- %s\n", f.Content)
		}
		b.WriteString("\n")
	}

	if userFacts := a.store.UserFacts(userID); len(userFacts) > 0 {
		fmt.Fprintf(&b, "**MEMORIES ABOUT %s (USE THESE FACTS WHEN RESPONDING):**\n", displayName)
		for _, f := range userFacts {
			fmt.Fprintf(&b, "- %s\n", f.Content)
		}
		b.WriteString("\n")
	}

	return b.String()
}
