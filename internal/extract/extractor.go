// Package extract derives durable facts from completed conversation turns.
// Extraction is best-effort background enrichment: every failure is contained
// here and surfaces only in logs and metrics, never to the user.
package extract

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gbrlmrll/mnemo/internal/facts"
	"github.com/gbrlmrll/mnemo/internal/gemini"
	"github.com/gbrlmrll/mnemo/internal/observability"
)

// Extractor runs the two secondary model calls that propose new facts from a
// (prompt, reply) pair. The user-fact and bot-fact runs are independent
// failure domains: one failing must not stop the other.
type Extractor struct {
	client gemini.Client
	store  facts.Store

	userInstruction string
	botInstruction  string
	timeout         time.Duration

	metrics *observability.Metrics
	wg      sync.WaitGroup
}

func NewExtractor(client gemini.Client, store facts.Store, userInstruction, botInstruction string, timeout time.Duration, metrics *observability.Metrics) *Extractor {
	return &Extractor{
		client:          client,
		store:           store,
		userInstruction: userInstruction,
		botInstruction:  botInstruction,
		timeout:         timeout,
		metrics:         metrics,
	}
}

// SpawnTurnExtraction schedules both extraction runs for a completed turn and
// returns immediately. Each run gets its own timeout context; neither result
// is awaited and no ordering holds between them.
func (e *Extractor) SpawnTurnExtraction(userID, displayName, userMessage, botReply string) {
	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()
		e.ExtractUserFacts(ctx, userID, displayName, userMessage, botReply)
	}()
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()
		e.ExtractBotFacts(ctx, userMessage, botReply)
	}()
}

// Wait blocks until all spawned runs finish. Used to drain on shutdown.
func (e *Extractor) Wait() {
	e.wg.Wait()
}

// ExtractUserFacts runs one user-fact extraction and commits every candidate.
func (e *Extractor) ExtractUserFacts(ctx context.Context, userID, displayName, userMessage, botReply string) {
	candidates, ok := e.runOne(ctx, "user", e.userInstruction, userMessage, botReply)
	if !ok {
		return
	}
	for _, c := range candidates {
		e.store.AddUserFact(ctx, userID, displayName, c)
	}
	e.countRun("user", outcomeOf(candidates))
}

// ExtractBotFacts runs one bot-fact extraction and commits every candidate.
func (e *Extractor) ExtractBotFacts(ctx context.Context, userMessage, botReply string) {
	candidates, ok := e.runOne(ctx, "bot", e.botInstruction, userMessage, botReply)
	if !ok {
		return
	}
	for _, c := range candidates {
		e.store.AddBotFact(ctx, c)
	}
	e.countRun("bot", outcomeOf(candidates))
}

func (e *Extractor) runOne(ctx context.Context, purpose, instruction, userMessage, botReply string) ([]string, bool) {
	prompt := buildExtractionPrompt(instruction, userMessage, botReply)
	text, err := e.client.GenerateContent(ctx, []gemini.Content{gemini.Text("user", prompt)})
	if err != nil {
		// No retry, no partial handling: a failed run means zero facts.
		log.Printf("%s fact extraction failed: %v", purpose, err)
		e.countRun(purpose, "failed")
		return nil, false
	}
	return ParseCandidates(text), true
}

func buildExtractionPrompt(instruction, userMessage, botReply string) string {
	return fmt.Sprintf(
		"%s\n\n**CONVERSATION TURN:**\nUser's message: %s\nBot's response: %s\n\n**EXTRACTED MEMORIES (or 'NONE'):**",
		instruction, userMessage, botReply,
	)
}

// ParseCandidates splits the raw model output into candidate facts: one per
// line, trimmed, with empty lines and the NONE sentinel discarded.
func ParseCandidates(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.EqualFold(line, "none") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func outcomeOf(candidates []string) string {
	if len(candidates) == 0 {
		return "empty"
	}
	return "stored"
}

func (e *Extractor) countRun(purpose, outcome string) {
	if e.metrics != nil {
		e.metrics.ExtractionRuns.WithLabelValues(purpose, outcome).Inc()
	}
}
