package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justsum66/cheersin-gateway/internal/llm"
	"github.com/justsum66/cheersin-gateway/internal/model"
	"github.com/justsum66/cheersin-gateway/pkg/logger"
)

type fakeProvider struct {
	name   string
	caps   llm.Capabilities
	reply  string
	model  string
	err    error
	tokens []string

	mu          sync.Mutex
	calls       int
	streamCalls int
	lastReq     *llm.CompletionRequest
	onStream    func(ctx context.Context) error
}

func (f *fakeProvider) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.mu.Lock()
	f.calls++
	f.lastReq = req
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.reply, Model: f.model}, nil
}

func (f *fakeProvider) CompleteStream(ctx context.Context, req *llm.CompletionRequest, callback llm.StreamCallback) (*llm.CompletionResponse, error) {
	f.mu.Lock()
	f.streamCalls++
	f.lastReq = req
	f.mu.Unlock()

	if !f.caps.Streaming {
		return nil, llm.ErrStreamingUnsupported
	}
	if f.onStream != nil {
		if err := f.onStream(ctx); err != nil {
			return nil, err
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	for i, tok := range f.tokens {
		if err := callback(tok, i); err != nil {
			return nil, err
		}
	}
	return &llm.CompletionResponse{Content: f.reply, Model: f.model}, nil
}

func (f *fakeProvider) Name() string                { return f.name }
func (f *fakeProvider) Capabilities() llm.Capabilities { return f.caps }

type captureRecorder struct {
	mu      sync.Mutex
	records []model.AttemptRecord
}

func (c *captureRecorder) Record(_ context.Context, rec model.AttemptRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
}

func userMessages(text string) []llm.ChatMessage {
	return []llm.ChatMessage{
		{Role: "system", Content: "persona"},
		{Role: "user", Content: text},
	}
}

func TestDispatchPrimarySucceeds(t *testing.T) {
	primary := &fakeProvider{name: "openai", model: "gpt-4o", reply: "Try a Chablis."}
	secondary := &fakeProvider{name: "anthropic", model: "claude-3-5-haiku", reply: "unused"}
	rec := &captureRecorder{}

	d := New([]llm.Client{primary, secondary}, rec, logger.NewNop(), Options{PrimaryRetries: 2})

	res := d.Dispatch(context.Background(), userMessages("white for oysters?"))

	assert.Equal(t, "Try a Chablis.", res.Message)
	assert.Equal(t, "gpt-4o", res.Model)
	assert.False(t, res.Offline)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, secondary.calls)
	require.Len(t, rec.records, 1)
	assert.True(t, rec.records[0].Success)
}

func TestDispatchRetriesPrimaryThenFallsBack(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: errors.New("503 service unavailable")}
	secondary := &fakeProvider{name: "anthropic", model: "claude-3-5-haiku", reply: "A Beaujolais."}
	rec := &captureRecorder{}

	d := New([]llm.Client{primary, secondary}, rec, logger.NewNop(), Options{PrimaryRetries: 2})

	res := d.Dispatch(context.Background(), userMessages("red for pizza?"))

	assert.Equal(t, "A Beaujolais.", res.Message)
	assert.Equal(t, "claude-3-5-haiku", res.Model)
	assert.Equal(t, 3, primary.calls, "primary gets retries+1 attempts")
	assert.Equal(t, 1, secondary.calls, "fallback providers get one attempt")

	require.Len(t, rec.records, 4)
	for i := 0; i < 3; i++ {
		assert.False(t, rec.records[i].Success)
		assert.Equal(t, "openai", rec.records[i].Provider)
	}
	assert.True(t, rec.records[3].Success)
	assert.Equal(t, "anthropic", rec.records[3].Provider)
}

func TestDispatchExhaustionReturnsOfflineReply(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: errors.New("boom")}
	secondary := &fakeProvider{name: "anthropic", err: errors.New("boom")}
	rec := &captureRecorder{}

	d := New([]llm.Client{primary, secondary}, rec, logger.NewNop(), Options{PrimaryRetries: 1})
	d.intn = func(int) int { return 1 }

	res := d.Dispatch(context.Background(), userMessages("anything"))

	assert.True(t, res.Offline)
	assert.Equal(t, OfflineModel, res.Model)
	assert.Equal(t, OfflineReplies[1], res.Message)

	// 2 primary attempts + 1 secondary + the synthetic offline record.
	require.Len(t, rec.records, 4)
	last := rec.records[len(rec.records)-1]
	assert.Equal(t, OfflineModel, last.Provider)
	assert.True(t, last.Success, "exhaustion is recorded as a successful offline attempt")
}

func TestDispatchEmptyChainGoesOffline(t *testing.T) {
	rec := &captureRecorder{}
	d := New(nil, rec, logger.NewNop(), Options{})
	d.intn = func(int) int { return 0 }

	res := d.Dispatch(context.Background(), userMessages("hello"))

	assert.True(t, res.Offline)
	assert.Equal(t, OfflineReplies[0], res.Message)
}

func TestDispatchVisionAttachesImage(t *testing.T) {
	vision := &fakeProvider{
		name:  "openai",
		model: "gpt-4o",
		reply: "That label is a Barolo.",
		caps:  llm.Capabilities{Vision: true, Streaming: true},
	}
	rec := &captureRecorder{}

	d := New([]llm.Client{vision}, rec, logger.NewNop(), Options{})

	image := []byte{0xff, 0xd8, 0xff}
	res := d.DispatchVision(context.Background(), userMessages("what is this bottle?"), image)

	assert.Equal(t, "That label is a Barolo.", res.Message)
	require.NotNil(t, vision.lastReq)
	msgs := vision.lastReq.Messages
	assert.Equal(t, image, msgs[len(msgs)-1].Image, "image rides on the last user message")
	require.Len(t, rec.records, 1)
	assert.Equal(t, "chat-vision", rec.records[0].Endpoint)
}

func TestDispatchVisionFailureFallsBackWithoutImage(t *testing.T) {
	vision := &fakeProvider{
		name: "openai",
		err:  errors.New("400 image too large"),
		caps: llm.Capabilities{Vision: true, Streaming: true},
	}
	text := &fakeProvider{name: "anthropic", model: "claude-3-5-haiku", reply: "Sounds like a Rioja."}
	rec := &captureRecorder{}

	d := New([]llm.Client{vision, text}, rec, logger.NewNop(), Options{PrimaryRetries: 0})

	res := d.DispatchVision(context.Background(), userMessages("what is this bottle?"), []byte{1, 2, 3})

	assert.Equal(t, "Sounds like a Rioja.", res.Message)
	assert.False(t, res.Offline)

	require.NotNil(t, text.lastReq)
	for _, m := range text.lastReq.Messages {
		assert.Nil(t, m.Image, "fallback to the text chain drops the image")
	}
}

func TestDispatchStreamForwardsDeltas(t *testing.T) {
	primary := &fakeProvider{
		name:   "openai",
		model:  "gpt-4o",
		reply:  "Pinot Noir.",
		tokens: []string{"Pinot ", "Noir."},
		caps:   llm.Capabilities{Vision: true, Streaming: true},
	}
	rec := &captureRecorder{}

	d := New([]llm.Client{primary}, rec, logger.NewNop(), Options{})

	var deltas []string
	res, err := d.DispatchStream(context.Background(), userMessages("red for duck?"), func(content string) error {
		deltas = append(deltas, content)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Pinot ", "Noir."}, deltas)
	assert.Equal(t, "gpt-4o", res.Model)
}

func TestDispatchStreamFallsBackToBlockingTier(t *testing.T) {
	first := &fakeProvider{
		name: "openai",
		err:  errors.New("connection reset"),
		caps: llm.Capabilities{Vision: true, Streaming: true},
	}
	second := &fakeProvider{
		name: "anthropic",
		err:  errors.New("overloaded"),
		caps: llm.Capabilities{Streaming: true},
	}
	// The last tier cannot stream; its whole reply arrives as one delta.
	third := &fakeProvider{name: "groq", model: "llama-3.1-8b-instant", reply: "A Gamay works well."}
	rec := &captureRecorder{}

	d := New([]llm.Client{first, second, third}, rec, logger.NewNop(), Options{})

	var deltas []string
	res, err := d.DispatchStream(context.Background(), userMessages("light red?"), func(content string) error {
		deltas = append(deltas, content)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"A Gamay works well."}, deltas)
	assert.Equal(t, "llama-3.1-8b-instant", res.Model)
	require.Len(t, rec.records, 3)
	assert.False(t, rec.records[0].Success)
	assert.False(t, rec.records[1].Success)
	assert.True(t, rec.records[2].Success)
}

func TestDispatchStreamAllTiersFail(t *testing.T) {
	first := &fakeProvider{name: "openai", err: errors.New("503"), caps: llm.Capabilities{Streaming: true}}
	second := &fakeProvider{name: "groq", err: errors.New("connection refused")}
	rec := &captureRecorder{}

	d := New([]llm.Client{first, second}, rec, logger.NewNop(), Options{})

	res, err := d.DispatchStream(context.Background(), userMessages("hello"), func(string) error { return nil })

	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "connection refused", "the last tier's error surfaces")
}

func TestDispatchStreamStopsOnClientDisconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	first := &fakeProvider{
		name: "openai",
		caps: llm.Capabilities{Streaming: true},
		onStream: func(ctx context.Context) error {
			// Client goes away mid-stream.
			cancel()
			return ctx.Err()
		},
	}
	second := &fakeProvider{name: "anthropic", reply: "unused", caps: llm.Capabilities{Streaming: true}}
	rec := &captureRecorder{}

	d := New([]llm.Client{first, second}, rec, logger.NewNop(), Options{})

	_, err := d.DispatchStream(ctx, userMessages("hello"), func(string) error { return nil })

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, second.streamCalls, "no tier fallback after the client disconnects")
	assert.Equal(t, 0, second.calls)
}
