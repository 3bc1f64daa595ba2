package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/justsum66/cheersin-gateway/internal/model"
	"github.com/justsum66/cheersin-gateway/pkg/logger"
)

const (
	augmentTopK   = 5
	followUpTopK  = 3
	excerptLength = 400
	questionLen   = 80
)

// Retriever is the similarity-search dependency of the enricher.
type Retriever interface {
	SearchSimilar(ctx context.Context, query string, k int) ([]SearchResult, error)
}

// Augmentation is the prompt context after (attempted) enrichment. When
// retrieval is unavailable or fails, Knowledge and Sources stay empty and the
// caller proceeds with the original context.
type Augmentation struct {
	User      *model.UserContext
	Knowledge string
	Sources   []model.Source
}

// Enricher performs best-effort retrieval augmentation. Every operation
// degrades silently: a retrieval failure must never block text generation.
type Enricher struct {
	retriever Retriever
	logger    *logger.Logger
}

// NewEnricher creates an enricher. retriever may be nil, in which case every
// call is a no-op.
func NewEnricher(retriever Retriever, log *logger.Logger) *Enricher {
	return &Enricher{retriever: retriever, logger: log}
}

// Augment retrieves knowledge snippets similar to the last user turn and
// folds them into a line-numbered block plus citation list. On any failure
// the original context is returned unchanged.
func (e *Enricher) Augment(ctx context.Context, req *model.ChatRequest) Augmentation {
	aug := Augmentation{User: req.UserContext}

	if e == nil || e.retriever == nil {
		return aug
	}

	query := strings.TrimSpace(req.LastUserText())
	if query == "" {
		return aug
	}

	results, err := e.retriever.SearchSimilar(ctx, query, augmentTopK)
	if err != nil {
		e.logger.Debug("retrieval failed, continuing without augmentation", zap.Error(err))
		return aug
	}
	if len(results) == 0 {
		return aug
	}

	var block strings.Builder
	sources := make([]model.Source, 0, len(results))
	for i, r := range results {
		excerpt := truncate(r.Content, excerptLength)
		fmt.Fprintf(&block, "[%d] %s\n", i+1, excerpt)
		sources = append(sources, model.Source{
			Index:   i + 1,
			Source:  r.Label,
			Excerpt: excerpt,
		})
	}

	aug.Knowledge = block.String()
	aug.Sources = sources
	return aug
}

// SimilarQuestions surfaces short follow-up topic suggestions for a finished
// reply. Same fail-silent contract as Augment; never returns nil.
func (e *Enricher) SimilarQuestions(ctx context.Context, answer, question string) []string {
	if e == nil || e.retriever == nil || strings.TrimSpace(question) == "" {
		return []string{}
	}

	results, err := e.retriever.SearchSimilar(ctx, question, followUpTopK)
	if err != nil {
		e.logger.Debug("follow-up retrieval failed", zap.Error(err))
		return []string{}
	}

	questions := make([]string, 0, len(results))
	for _, r := range results {
		topic := firstLine(r.Content)
		if topic == "" {
			continue
		}
		questions = append(questions, "Tell me more about "+truncate(topic, questionLen))
	}
	return questions
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
