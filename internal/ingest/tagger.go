package ingest

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ragstack/ragserve/internal/rag"
)

// wordPattern matches maximal runs of word characters at least four long.
// The explicit Unicode classes cover accented and non-Latin words, which
// Go's ASCII-only \w would miss. Shorter words (articles, conjunctions)
// carry no tagging signal.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]{4,}`)

// Tag returns the topN most frequent words of length >= 4 in text,
// lowercased, ordered by descending frequency with ties broken by first
// occurrence. The result is deterministic and may be shorter than topN when
// the vocabulary is smaller. Tags are computed once per document and shared
// by all of its chunks.
func Tag(text string, topN int) ([]string, error) {
	if topN <= 0 {
		return nil, fmt.Errorf("ingest: topN %d must be positive: %w", topN, rag.ErrInvalidInput)
	}

	words := wordPattern.FindAllString(strings.ToLower(text), -1)

	counts := make(map[string]int, len(words))
	firstSeen := make(map[string]int, len(words))
	order := make([]string, 0, len(words))
	for i, w := range words {
		if _, ok := counts[w]; !ok {
			firstSeen[w] = i
			order = append(order, w)
		}
		counts[w]++
	}

	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := counts[order[a]], counts[order[b]]
		if ca != cb {
			return ca > cb
		}
		return firstSeen[order[a]] < firstSeen[order[b]]
	})

	if len(order) > topN {
		order = order[:topN]
	}
	return order, nil
}
