package services

import (
	"strings"

	"github.com/brightpath-ai/mathtutor/internal/core/domain"
	"github.com/brightpath-ai/mathtutor/internal/logger"
)

// persona is the fixed system framing for every prompt. It binds the model to
// the retrieved material and tells it to admit when that material is not
// enough, instead of inventing an answer.
const persona = `You are a friendly math tutor for students in grades 1 to 12. Answer clearly and concisely with clean formatting.

Answer ONLY from the textbook content provided below. If the content does not cover the question, say "I don't have enough information in the textbook to answer that."

FORMATTING RULES:
- Do not use markdown syntax like ** or * for bold or italic
- No numbered lists or bullet points; write in natural, flowing sentences
- Use plain text with clear spacing and simple mathematical notation
- Use clean ASCII diagrams for formulas and geometry when they help
- Be encouraging and friendly

Start with a brief, direct answer, then explain the concept naturally using the textbook content. End with brief encouragement.`

// charsPerToken is the approximation used for the prompt budget.
const charsPerToken = 4

// dedupePrefixLen is how many characters of a chunk identify a near-duplicate.
const dedupePrefixLen = 50

// Assembler builds a bounded grounded prompt from the question and the
// retrieved chunks.
type Assembler struct {
	tokenBudget int
}

// NewAssembler creates an assembler with the given total prompt token budget.
func NewAssembler(tokenBudget int) *Assembler {
	return &Assembler{tokenBudget: tokenBudget}
}

// Assemble concatenates the persona, the retrieved chunks each tagged with
// their source, and the question. When the result would exceed the token
// budget, chunks are dropped lowest-score-first until it fits; the persona
// and the question are never dropped, so assembly cannot fail. The chunks
// that made it into the prompt are returned alongside it, best first.
func (a *Assembler) Assemble(question string, chunks []domain.ScoredChunk) (string, []domain.ScoredChunk) {
	kept := dedupe(chunks)

	base := persona + "\n\nTEXTBOOK CONTENT:\n\n\nSTUDENT QUESTION: " + question
	budget := a.tokenBudget - estimateTokens(base)

	// Chunks arrive best-first; dropping from the tail drops the lowest
	// score first.
	for len(kept) > 0 && contextTokens(kept) > budget {
		logger.Debug("Prompt over budget, dropping chunk %s (score %.3f)",
			kept[len(kept)-1].Chunk.ID, kept[len(kept)-1].Score)
		kept = kept[:len(kept)-1]
	}

	var sb strings.Builder
	sb.WriteString(persona)
	sb.WriteString("\n\nTEXTBOOK CONTENT:\n")
	for _, sc := range kept {
		sb.WriteString("\n[Source: ")
		sb.WriteString(sc.Chunk.SourceID)
		sb.WriteString("]\n")
		sb.WriteString(sc.Chunk.Text)
		sb.WriteString("\n")
	}
	sb.WriteString("\nSTUDENT QUESTION: ")
	sb.WriteString(question)

	return sb.String(), kept
}

// dedupe drops chunks that repeat the first dedupePrefixLen characters of an
// earlier (better-scoring) chunk.
func dedupe(chunks []domain.ScoredChunk) []domain.ScoredChunk {
	seen := make(map[string]bool, len(chunks))
	kept := make([]domain.ScoredChunk, 0, len(chunks))
	for _, sc := range chunks {
		key := sc.Chunk.Text
		if len(key) > dedupePrefixLen {
			key = key[:dedupePrefixLen]
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, sc)
	}
	return kept
}

// contextTokens estimates the token cost of the context section.
func contextTokens(chunks []domain.ScoredChunk) int {
	total := 0
	for _, sc := range chunks {
		// Source tag plus chunk text.
		total += estimateTokens("[Source: "+sc.Chunk.SourceID+"]") + estimateTokens(sc.Chunk.Text)
	}
	return total
}

// estimateTokens approximates the generation model's token count.
func estimateTokens(s string) int {
	return (len(s) + charsPerToken - 1) / charsPerToken
}
