package retrieval

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestKeywordIndexRanksByOverlap(t *testing.T) {
	idx := NewKeywordIndex(seedConditions())

	got, err := idx.Retrieve(context.Background(), "chest pain and shortness of breath", 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) == 0 {
		t.Fatalf("expected matches for cardiac symptoms")
	}
	if got[0].Metadata["name"] != "Acute Coronary Syndrome" {
		t.Fatalf("top match = %q, want Acute Coronary Syndrome", got[0].Metadata["name"])
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Fatalf("results not in descending score order: %v", got)
		}
	}
	for _, s := range got {
		if s.Score < 0 || s.Score > 1 {
			t.Fatalf("score out of range: %v", s.Score)
		}
	}
}

func TestKeywordIndexHonorsTopK(t *testing.T) {
	idx := NewKeywordIndex(seedConditions())
	got, err := idx.Retrieve(context.Background(), "fever cough fatigue nausea headache pain", 2)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) > 2 {
		t.Fatalf("len(results) = %d, want <= 2", len(got))
	}
}

func TestKeywordIndexNoMatches(t *testing.T) {
	idx := NewKeywordIndex(seedConditions())
	got, err := idx.Retrieve(context.Background(), "zzzz qqqq", 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no matches, got %v", got)
	}
}

type failingRetriever struct{}

func (failingRetriever) Retrieve(context.Context, string, int) ([]Snippet, error) {
	return nil, errors.New("index unavailable")
}

func TestSafeDegradesToEmpty(t *testing.T) {
	var dropped error
	safe := Safe{Inner: failingRetriever{}, OnDrop: func(err error) { dropped = err }}

	got, err := safe.Retrieve(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Safe.Retrieve() error = %v, want nil", err)
	}
	if got != nil {
		t.Fatalf("Safe.Retrieve() = %v, want empty", got)
	}
	if dropped == nil {
		t.Fatalf("OnDrop should observe the underlying error")
	}
}

func TestLoadKnowledgeBase(t *testing.T) {
	seeds, err := LoadKnowledgeBase("")
	if err != nil {
		t.Fatalf("LoadKnowledgeBase(\"\") error = %v", err)
	}
	if len(seeds) == 0 {
		t.Fatalf("seed knowledge base should not be empty")
	}

	path := filepath.Join(t.TempDir(), "kb.json")
	content := `{"conditions":[{"name":"Tension Headache","description":"Muscle tension headache","symptoms":["headache","neck pain"],"urgency_level":"low"}]}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp kb: %v", err)
	}
	loaded, err := LoadKnowledgeBase(path)
	if err != nil {
		t.Fatalf("LoadKnowledgeBase(file) error = %v", err)
	}
	if len(loaded) != 1 || loaded[0].Name != "Tension Headache" {
		t.Fatalf("loaded = %+v, want the single file entry", loaded)
	}

	if _, err := LoadKnowledgeBase(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("missing file should error")
	}
}
