// Package dispatch routes chat requests across an ordered chain of upstream
// providers with bounded retries and graceful degradation. The dispatcher
// holds no shared mutable state; it is a function of its inputs plus calls to
// the provider adapters and the telemetry recorder.
package dispatch

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/justsum66/cheersin-gateway/internal/llm"
	"github.com/justsum66/cheersin-gateway/internal/model"
	"github.com/justsum66/cheersin-gateway/internal/telemetry"
	"github.com/justsum66/cheersin-gateway/pkg/logger"
	"github.com/justsum66/cheersin-gateway/pkg/metrics"
)

// OfflineModel labels the synthetic attempt recorded when every provider in
// the chain has been exhausted.
const OfflineModel = "offline-fallback"

// OfflineReplies are returned verbatim when no provider can answer. The
// caller of a non-streaming dispatch always receives literal text.
var OfflineReplies = []string{
	"I'm having trouble reaching my cellar notes right now. A safe bet in the meantime: a chilled Albariño with seafood, a Pinot Noir with almost anything else. Ask me again in a moment!",
	"My tasting library seems to be offline. While I reconnect, remember the golden rule: if it grows together, it goes together. Try me again shortly!",
	"Apologies — I can't consult my references at the moment. When in doubt, a dry sparkling wine rescues nearly any pairing. Give me another try in a bit!",
}

// Result is the outcome of a dispatch. Dispatch never fails outright: on
// total exhaustion Offline is true and Message holds a fallback reply.
type Result struct {
	Message string
	Wines   []model.Wine
	Model   string
	Offline bool
}

// Options tunes the dispatcher.
type Options struct {
	// PrimaryRetries is the number of retries for the first provider in the
	// chain (attempts = retries + 1). Providers after the first get exactly
	// one attempt each.
	PrimaryRetries int
	MaxTokens      int
	Temperature    float64
}

// Dispatcher runs the ordered fallback chain.
type Dispatcher struct {
	chain    []llm.Client
	vision   llm.Client
	retries  int
	maxTok   int
	temp     float64
	recorder telemetry.Recorder
	logger   *logger.Logger

	intn func(n int) int
}

// New creates a dispatcher over chain, in fallback order. The first
// vision-capable provider in the chain handles image requests.
func New(chain []llm.Client, recorder telemetry.Recorder, log *logger.Logger, opts Options) *Dispatcher {
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 2048
	}
	if opts.PrimaryRetries < 0 {
		opts.PrimaryRetries = 0
	}

	var vision llm.Client
	for _, p := range chain {
		if p.Capabilities().Vision {
			vision = p
			break
		}
	}

	return &Dispatcher{
		chain:    chain,
		vision:   vision,
		retries:  opts.PrimaryRetries,
		maxTok:   opts.MaxTokens,
		temp:     opts.Temperature,
		recorder: recorder,
		logger:   log,
		intn:     rand.Intn,
	}
}

// Dispatch runs the non-streaming chain: up to retries+1 attempts on the
// primary provider, one attempt on each provider after it, first success
// wins. On total exhaustion it returns an offline fallback reply instead of
// an error.
func (d *Dispatcher) Dispatch(ctx context.Context, messages []llm.ChatMessage) *Result {
	for i, provider := range d.chain {
		attempts := 1
		if i == 0 {
			attempts = d.retries + 1
		}

		for attempt := 0; attempt < attempts; attempt++ {
			resp, err := provider.Complete(ctx, d.completionRequest(messages))
			d.record(ctx, "chat", provider.Name(), resp, err)
			if err != nil {
				d.logger.Warn("provider attempt failed",
					zap.String("provider", provider.Name()),
					zap.Int("attempt", attempt+1),
					zap.Error(err),
				)
				continue
			}
			return d.success(resp)
		}
	}

	return d.offline(ctx, "chat")
}

// DispatchVision routes an image-attached request to the vision provider in
// blocking mode. On failure the image is dropped and the ordinary text chain
// takes over, so the request still resolves to literal text.
func (d *Dispatcher) DispatchVision(ctx context.Context, messages []llm.ChatMessage, image []byte) *Result {
	if d.vision != nil && len(image) > 0 {
		resp, err := d.vision.Complete(ctx, d.completionRequest(withImage(messages, image)))
		d.record(ctx, "chat-vision", d.vision.Name(), resp, err)
		if err == nil {
			return d.success(resp)
		}
		d.logger.Warn("vision dispatch failed, retrying without image",
			zap.String("provider", d.vision.Name()),
			zap.Error(err),
		)
	}

	return d.Dispatch(ctx, messages)
}

// DispatchStream runs the streaming chain: one pass per provider, no local
// retries. Streaming-capable providers forward token deltas through onDelta;
// a non-streaming provider's whole reply is forwarded as a single delta so
// the client protocol stays uniform. Deltas already sent are never retracted.
// The returned error is non-nil only when every tier failed.
func (d *Dispatcher) DispatchStream(ctx context.Context, messages []llm.ChatMessage, onDelta func(content string) error) (*Result, error) {
	var lastErr error

	for _, provider := range d.chain {
		resp, err := d.streamOne(ctx, provider, messages, onDelta)
		d.record(ctx, "chat-stream", provider.Name(), resp, err)
		if err == nil {
			return d.success(resp), nil
		}

		lastErr = err
		// A dead client ends the whole stream; trying the next tier would
		// only leak upstream consumption.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		d.logger.Warn("stream tier failed, falling back",
			zap.String("provider", provider.Name()),
			zap.Error(err),
		)
	}

	return nil, lastErr
}

func (d *Dispatcher) streamOne(ctx context.Context, provider llm.Client, messages []llm.ChatMessage, onDelta func(string) error) (*llm.CompletionResponse, error) {
	if provider.Capabilities().Streaming {
		return provider.CompleteStream(ctx, d.completionRequest(messages), func(token string, _ int) error {
			return onDelta(token)
		})
	}

	resp, err := provider.Complete(ctx, d.completionRequest(messages))
	if err != nil {
		return nil, err
	}
	if err := onDelta(resp.Content); err != nil {
		return nil, err
	}
	return resp, nil
}

func (d *Dispatcher) completionRequest(messages []llm.ChatMessage) *llm.CompletionRequest {
	return &llm.CompletionRequest{
		Messages:    messages,
		MaxTokens:   d.maxTok,
		Temperature: d.temp,
	}
}

func (d *Dispatcher) success(resp *llm.CompletionResponse) *Result {
	display, wines := SplitWineList(resp.Content)
	return &Result{
		Message: display,
		Wines:   wines,
		Model:   resp.Model,
	}
}

func (d *Dispatcher) offline(ctx context.Context, endpoint string) *Result {
	reply := OfflineReplies[d.intn(len(OfflineReplies))]

	// Synthetic success record so exhaustion stays visible downstream.
	d.recorder.Record(ctx, model.AttemptRecord{
		Endpoint:  endpoint,
		Provider:  OfflineModel,
		Model:     OfflineModel,
		Success:   true,
		CreatedAt: time.Now(),
	})
	metrics.RecordAttempt(OfflineModel, true)

	return &Result{
		Message: reply,
		Model:   OfflineModel,
		Offline: true,
	}
}

func (d *Dispatcher) record(ctx context.Context, endpoint, provider string, resp *llm.CompletionResponse, err error) {
	rec := model.AttemptRecord{
		Endpoint:  endpoint,
		Provider:  provider,
		Success:   err == nil,
		CreatedAt: time.Now(),
	}
	if resp != nil {
		rec.Model = resp.Model
		rec.LatencyMs = resp.LatencyMs
		rec.TokensIn = resp.TokensIn
		rec.TokensOut = resp.TokensOut
	}
	if err != nil {
		rec.Error = err.Error()
	}

	d.recorder.Record(ctx, rec)
	metrics.RecordAttempt(provider, err == nil)
	if err == nil && resp != nil {
		metrics.RecordTokens(rec.Model, rec.TokensIn, rec.TokensOut)
	}
}

func withImage(messages []llm.ChatMessage, image []byte) []llm.ChatMessage {
	out := make([]llm.ChatMessage, len(messages))
	copy(out, messages)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Role == string(model.RoleUser) {
			out[i].Image = image
			break
		}
	}
	return out
}
