package rag

import (
	"context"
	"fmt"
	"strings"
)

// defaultMaxTokens bounds the generated answer length when the composer is
// constructed without an explicit limit.
const defaultMaxTokens = 128

// Composer builds a grounding prompt from retrieved context and calls the
// Generator. The generator's text is returned verbatim — no post-processing,
// truncation, or citation extraction.
type Composer struct {
	// generator completes the assembled prompt.
	generator Generator

	// maxTokens bounds the generated answer length.
	maxTokens int
}

// NewComposer constructs a Composer. maxTokens <= 0 selects the default (128).
func NewComposer(generator Generator, maxTokens int) (*Composer, error) {
	if generator == nil {
		return nil, fmt.Errorf("rag: generator must not be nil")
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Composer{generator: generator, maxTokens: maxTokens}, nil
}

// Answer assembles the grounding prompt from hits (in their given order,
// i.e. retrieval's descending-score order) and generates the answer.
//
// When hits is empty the context block is empty but the prompt is still
// sent: "no relevant context" degrades to an ungrounded answer rather than
// a refusal. That is a deliberate product choice, not a bug.
func (c *Composer) Answer(ctx context.Context, question string, hits []Hit) (string, error) {
	if question == "" {
		return "", fmt.Errorf("rag: question must not be empty: %w", ErrInvalidInput)
	}

	prompt := BuildPrompt(question, hits)

	answer, err := c.generator.Generate(ctx, prompt, c.maxTokens)
	if err != nil {
		return "", fmt.Errorf("rag: generation for %q: %w", prefix(question, 30), err)
	}

	return answer, nil
}

// BuildPrompt concatenates the hit texts with newline separators into a
// context block and wraps it in the fixed grounding template. The prompt
// ends with "Answer:" and no trailing content — the generation call is
// expected to complete the continuation.
func BuildPrompt(question string, hits []Hit) string {
	texts := make([]string, 0, len(hits))
	for _, h := range hits {
		texts = append(texts, h.Text)
	}
	contextBlock := strings.Join(texts, "\n")

	return fmt.Sprintf(
		"Answer the question based only on the context.\n\nContext: %s\nQuestion: %s\nAnswer:",
		contextBlock, question,
	)
}
