// Package handler implements the gateway's HTTP surface.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/justsum66/cheersin-gateway/internal/cache"
	"github.com/justsum66/cheersin-gateway/internal/dispatch"
	"github.com/justsum66/cheersin-gateway/internal/llm"
	"github.com/justsum66/cheersin-gateway/internal/middleware"
	"github.com/justsum66/cheersin-gateway/internal/model"
	"github.com/justsum66/cheersin-gateway/internal/rag"
	"github.com/justsum66/cheersin-gateway/internal/ratelimit"
	"github.com/justsum66/cheersin-gateway/internal/telemetry"
	"github.com/justsum66/cheersin-gateway/pkg/logger"
	"github.com/justsum66/cheersin-gateway/pkg/metrics"
)

// CodeRateLimited is the rejection code for admission failures.
const CodeRateLimited = "RATE_LIMITED"

// Dispatcher is the provider fallback engine consumed by the handler.
type Dispatcher interface {
	Dispatch(ctx context.Context, messages []llm.ChatMessage) *dispatch.Result
	DispatchVision(ctx context.Context, messages []llm.ChatMessage, image []byte) *dispatch.Result
	DispatchStream(ctx context.Context, messages []llm.ChatMessage, onDelta func(string) error) (*dispatch.Result, error)
}

// Enricher is the retrieval-augmentation dependency.
type Enricher interface {
	Augment(ctx context.Context, req *model.ChatRequest) rag.Augmentation
	SimilarQuestions(ctx context.Context, answer, question string) []string
}

// Options tunes the chat handler.
type Options struct {
	Limits Limits
	// BaseLimit is the per-window request quota for the base tier.
	BaseLimit int
	// PremiumMultiplier scales BaseLimit for premium callers.
	PremiumMultiplier int
	// DispatchTimeout bounds the non-streaming path end to end.
	DispatchTimeout time.Duration
}

// ChatHandler handles POST /api/v1/chat.
type ChatHandler struct {
	dispatcher Dispatcher
	enricher   Enricher
	cache      *cache.Cache
	limiter    *ratelimit.Limiter
	history    telemetry.HistoryWriter
	logger     *logger.Logger
	opts       Options
}

// NewChatHandler creates a chat handler.
func NewChatHandler(
	dispatcher Dispatcher,
	enricher Enricher,
	respCache *cache.Cache,
	limiter *ratelimit.Limiter,
	history telemetry.HistoryWriter,
	log *logger.Logger,
	opts Options,
) *ChatHandler {
	if opts.BaseLimit <= 0 {
		opts.BaseLimit = 10
	}
	if opts.PremiumMultiplier <= 0 {
		opts.PremiumMultiplier = 6
	}
	if opts.DispatchTimeout <= 0 {
		opts.DispatchTimeout = 30 * time.Second
	}
	if opts.Limits.MaxTurns == 0 {
		opts.Limits = DefaultLimits()
	}

	return &ChatHandler{
		dispatcher: dispatcher,
		enricher:   enricher,
		cache:      respCache,
		limiter:    limiter,
		history:    history,
		logger:     log,
		opts:       opts,
	}
}

// Chat handles POST /api/v1/chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidPayload, "invalid request body")
		return
	}

	norm, image, err := ValidateAndNormalize(&req, h.opts.Limits)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidPayload, err.Error())
		return
	}

	clientID := middleware.GetClientID(ctx)
	if clientID == "" {
		clientID = r.RemoteAddr
	}

	tier := middleware.GetTier(ctx)
	if tier == "" {
		tier = norm.SubscriptionTier
	}
	tier = model.CanonicalTier(tier)

	if !h.admit(w, clientID, tier) {
		return
	}

	aug := h.enricher.Augment(ctx, norm)
	question := norm.LastUserText()

	if norm.Stream && image == nil {
		h.stream(w, r, norm, aug, clientID, question)
		return
	}

	// Cached replies only serve the plain text path; image and streaming
	// requests always compute fresh.
	if image == nil {
		if resp, ok := h.cache.Lookup(question, tier); ok {
			metrics.RecordCacheLookup(true)
			writeJSON(w, http.StatusOK, resp)
			return
		}
		metrics.RecordCacheLookup(false)
	}

	messages := dispatch.BuildMessages(norm, aug)

	dctx, cancel := context.WithTimeout(ctx, h.opts.DispatchTimeout)
	defer cancel()

	var result *dispatch.Result
	if image != nil {
		result = h.dispatcher.DispatchVision(dctx, messages, image)
	} else {
		result = h.dispatcher.Dispatch(dctx, messages)
	}

	resp := model.ChatResponse{
		Message:          result.Message,
		Wines:            result.Wines,
		Sources:          sourcesOrEmpty(aug.Sources),
		SimilarQuestions: h.enricher.SimilarQuestions(ctx, result.Message, question),
	}

	if image == nil && !result.Offline {
		h.cache.Store(question, tier, resp)
	}
	if !result.Offline {
		h.saveExchange(clientID, question, result)
	}

	writeJSON(w, http.StatusOK, resp)
}

// admit runs the tiered limiter and writes the 429 rejection when the quota
// is spent. Premium callers get a materially larger window quota.
func (h *ChatHandler) admit(w http.ResponseWriter, clientID, tier string) bool {
	limit := h.opts.BaseLimit
	if tier == model.TierPremium {
		limit *= h.opts.PremiumMultiplier
	}

	decision := h.limiter.Admit("chat:"+clientID, limit)

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

	if decision.Allowed {
		return true
	}

	metrics.RecordRateLimited(tier)
	retryAfter := int(time.Until(decision.ResetAt).Seconds()) + 1
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	writeJSON(w, http.StatusTooManyRequests, model.ErrorResponse{
		Error:      CodeRateLimited,
		Message:    "too many requests, slow down",
		RetryAfter: retryAfter,
		Upgrade:    tier != model.TierPremium,
	})
	return false
}

// saveExchange persists the finished exchange without ever blocking the
// response. The request context is long gone by the time this runs, so it
// gets its own bounded one.
func (h *ChatHandler) saveExchange(clientID, question string, result *dispatch.Result) {
	rec := model.HistoryRecord{
		ClientID:  clientID,
		Question:  question,
		Answer:    result.Message,
		ModelUsed: result.Model,
		CreatedAt: time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.history.SaveExchange(ctx, rec)
	}()
}

func sourcesOrEmpty(sources []model.Source) []model.Source {
	if sources == nil {
		return []model.Source{}
	}
	return sources
}
