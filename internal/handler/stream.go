package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/justsum66/cheersin-gateway/internal/dispatch"
	"github.com/justsum66/cheersin-gateway/internal/model"
	"github.com/justsum66/cheersin-gateway/internal/rag"
	"github.com/justsum66/cheersin-gateway/pkg/metrics"
)

// ndjsonWriter emits one JSON object per line and flushes after each event so
// deltas reach the client as they arrive.
type ndjsonWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (nw *ndjsonWriter) writeEvent(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := nw.w.Write(append(data, '\n')); err != nil {
		return err
	}
	nw.flusher.Flush()
	return nil
}

// stream delivers the reply over the NDJSON protocol: exactly one meta event,
// zero or more deltas, then one done or one error.
func (h *ChatHandler) stream(w http.ResponseWriter, r *http.Request, req *model.ChatRequest, aug rag.Augmentation, clientID, question string) {
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "STREAMING_UNSUPPORTED", "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	metrics.IncrementStreamConnections()
	defer metrics.DecrementStreamConnections()

	nw := &ndjsonWriter{w: w, flusher: flusher}

	// Citations go out first, before any provider has answered.
	if err := nw.writeEvent(model.MetaEvent{
		Type:    model.EventMeta,
		Sources: sourcesOrEmpty(aug.Sources),
	}); err != nil {
		return
	}

	messages := dispatch.BuildMessages(req, aug)

	result, err := h.dispatcher.DispatchStream(ctx, messages, func(content string) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		return nw.writeEvent(model.DeltaEvent{
			Type:    model.EventDelta,
			Content: content,
		})
	})

	if err != nil {
		if ctx.Err() != nil {
			h.logger.Info("stream client disconnected", zap.String("client_id", clientID))
			return
		}
		code, retryable := dispatch.Classify(err)
		nw.writeEvent(model.StreamErrorEvent{
			Type:      model.EventError,
			Message:   "all providers failed",
			Code:      code,
			Retryable: retryable,
		})
		return
	}

	nw.writeEvent(model.DoneEvent{
		Type:             model.EventDone,
		SimilarQuestions: h.enricher.SimilarQuestions(ctx, result.Message, question),
	})

	h.saveExchange(clientID, question, result)
}
