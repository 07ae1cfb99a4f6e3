package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeGenerator echoes a canned answer and records the prompt it received.
type fakeGenerator struct {
	answer       string
	err          error
	gotPrompt    string
	gotMaxTokens int
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, maxTokens int) (string, error) {
	f.gotPrompt = prompt
	f.gotMaxTokens = maxTokens
	return f.answer, f.err
}

func Test_BuildPrompt_Template(t *testing.T) {
	t.Parallel()

	hits := []Hit{
		{Text: "Paris is the capital of France."},
		{Text: "France is in Europe."},
	}

	prompt := BuildPrompt("What is the capital of France?", hits)

	want := "Answer the question based only on the context.\n\n" +
		"Context: Paris is the capital of France.\nFrance is in Europe.\n" +
		"Question: What is the capital of France?\nAnswer:"
	if prompt != want {
		t.Errorf("prompt mismatch:\nwant: %q\ngot:  %q", want, prompt)
	}
}

func Test_BuildPrompt_EmptyContext(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt("Anything?", nil)

	if !strings.Contains(prompt, "Context: \n") {
		t.Errorf("want empty context block, got %q", prompt)
	}
	if !strings.HasSuffix(prompt, "Answer:") {
		t.Errorf("prompt must end with the answer cue, got %q", prompt)
	}
}

func Test_Answer_ReturnsGeneratorTextVerbatim(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{answer: "  Paris.  \n"}
	c, err := NewComposer(gen, 64)
	if err != nil {
		t.Fatalf("new composer: %v", err)
	}

	answer, err := c.Answer(context.Background(), "capital of France?", []Hit{{Text: "Paris."}})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if answer != "  Paris.  \n" {
		t.Errorf("answer must be verbatim, got %q", answer)
	}
	if gen.gotMaxTokens != 64 {
		t.Errorf("want maxTokens 64 passed through, got %d", gen.gotMaxTokens)
	}
}

func Test_Answer_DefaultMaxTokens(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{answer: "ok"}
	c, err := NewComposer(gen, 0)
	if err != nil {
		t.Fatalf("new composer: %v", err)
	}

	if _, err := c.Answer(context.Background(), "q", nil); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if gen.gotMaxTokens != 128 {
		t.Errorf("want default maxTokens 128, got %d", gen.gotMaxTokens)
	}
}

func Test_Answer_EmptyQuestionRejected(t *testing.T) {
	t.Parallel()

	c, err := NewComposer(&fakeGenerator{}, 0)
	if err != nil {
		t.Fatalf("new composer: %v", err)
	}

	if _, err := c.Answer(context.Background(), "", nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("want ErrInvalidInput, got %v", err)
	}
}

func Test_Answer_GenerationFailurePropagates(t *testing.T) {
	t.Parallel()

	c, err := NewComposer(&fakeGenerator{err: ErrRemoteUnavailable}, 0)
	if err != nil {
		t.Fatalf("new composer: %v", err)
	}

	_, err = c.Answer(context.Background(), "q", nil)
	if !errors.Is(err, ErrRemoteUnavailable) {
		t.Errorf("want ErrRemoteUnavailable, got %v", err)
	}
}
