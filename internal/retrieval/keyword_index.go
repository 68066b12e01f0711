package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// KeywordIndex is the in-process Retriever: token-overlap scoring over the
// condition knowledge base. The embedding/vector backend stays an external
// collaborator behind the same interface.
type KeywordIndex struct {
	entries []indexedEntry
}

type indexedEntry struct {
	condition ConditionEntry
	document  string
	tokens    map[string]struct{}
}

func NewKeywordIndex(conditions []ConditionEntry) *KeywordIndex {
	entries := make([]indexedEntry, 0, len(conditions))
	for _, c := range conditions {
		doc := fmt.Sprintf("%s. %s. Symptoms: %s.", c.Name, c.Description, strings.Join(c.Symptoms, ", "))
		entries = append(entries, indexedEntry{
			condition: c,
			document:  doc,
			tokens:    tokenize(doc),
		})
	}
	return &KeywordIndex{entries: entries}
}

// Retrieve scores each condition by word overlap with the query, normalized
// by query length so scores stay in [0,1], and returns the topK best matches
// in descending score order.
func (idx *KeywordIndex) Retrieve(ctx context.Context, query string, topK int) ([]Snippet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 5
	}

	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	var results []Snippet
	for _, e := range idx.entries {
		overlap := 0
		for tok := range queryTokens {
			if _, ok := e.tokens[tok]; ok {
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}
		results = append(results, Snippet{
			Content: e.document,
			Metadata: map[string]string{
				"name":          e.condition.Name,
				"category":      e.condition.Category,
				"urgency_level": e.condition.UrgencyLevel,
			},
			Score: float64(overlap) / float64(len(queryTokens)),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func tokenize(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(s)) {
		word = strings.Trim(word, ".,;:!?()[]\"'")
		if word != "" {
			tokens[word] = struct{}{}
		}
	}
	return tokens
}
