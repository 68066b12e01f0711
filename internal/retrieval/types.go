package retrieval

import "context"

// Snippet is one retrieved knowledge fragment, scored by relevance.
type Snippet struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Score    float64           `json:"similarity_score"`
}

// Retriever ranks knowledge snippets for a symptom query. Results are ordered
// by descending score in [0,1] and capped at topK. Implementations backed by
// flaky dependencies should still return their error here; Safe wraps the
// degradation policy for pipeline use.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]Snippet, error)
}

// Safe wraps a retriever so failures degrade to an empty context set instead
// of propagating. The decision engine must keep functioning without retrieval.
type Safe struct {
	Inner  Retriever
	OnDrop func(err error)
}

func (s Safe) Retrieve(ctx context.Context, query string, topK int) ([]Snippet, error) {
	if s.Inner == nil {
		return nil, nil
	}
	snippets, err := s.Inner.Retrieve(ctx, query, topK)
	if err != nil {
		if s.OnDrop != nil {
			s.OnDrop(err)
		}
		return nil, nil
	}
	return snippets, nil
}
