// Package rag provides retrieval augmentation for chat prompts.
package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

const collectionName = "wine_knowledge"

// SearchResult is a single semantic-search hit from the knowledge base.
type SearchResult struct {
	ID      string
	Content string
	Label   string
	Score   float32
}

// VectorStore wraps chromem-go with disk persistence for the wine knowledge
// collection.
type VectorStore struct {
	mu      sync.RWMutex
	db      *chromem.DB
	embedFn chromem.EmbeddingFunc
}

// NewVectorStore creates (or opens) the persistent vector store at
// dataDir/vectorstore/. embedFn is typically
// chromem.NewEmbeddingFuncOpenAICompat pointed at the configured endpoint.
func NewVectorStore(dataDir string, embedFn chromem.EmbeddingFunc) (*VectorStore, error) {
	dir := filepath.Join(dataDir, "vectorstore")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create vectorstore dir: %w", err)
	}
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open vectorstore: %w", err)
	}
	return &VectorStore{db: db, embedFn: embedFn}, nil
}

func (s *VectorStore) collection() (*chromem.Collection, error) {
	col := s.db.GetCollection(collectionName, s.embedFn)
	if col == nil {
		var err error
		col, err = s.db.CreateCollection(collectionName, nil, s.embedFn)
		if err != nil {
			return nil, fmt.Errorf("create collection: %w", err)
		}
	}
	return col, nil
}

// Upsert indexes (or re-indexes) one knowledge snippet. label is the
// human-readable source shown in citations.
func (s *VectorStore) Upsert(ctx context.Context, id, content, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.collection()
	if err != nil {
		return err
	}
	return col.AddDocument(ctx, chromem.Document{
		ID:      id,
		Content: content,
		Metadata: map[string]string{
			"source": label,
		},
	})
}

// SearchSimilar returns the top-k snippets most similar to the query.
func (s *VectorStore) SearchSimilar(ctx context.Context, query string, k int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, err := s.collection()
	if err != nil {
		return nil, err
	}

	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	// chromem-go occasionally rejects k despite the Count check above.
	// Step down until a query succeeds.
	var results []chromem.Result
	for attemptK := k; attemptK > 0; attemptK-- {
		results, err = col.Query(ctx, query, attemptK, nil, nil)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		label := r.Metadata["source"]
		if label == "" {
			label = r.ID
		}
		out = append(out, SearchResult{
			ID:      r.ID,
			Content: r.Content,
			Label:   label,
			Score:   r.Similarity,
		})
	}
	return out, nil
}
