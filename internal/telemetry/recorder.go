// Package telemetry is the write-only sink for attempt records and history
// persistence. It holds no query logic; failures are logged and dropped so
// observability never affects a chat response.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/justsum66/cheersin-gateway/internal/model"
	natsclient "github.com/justsum66/cheersin-gateway/internal/nats"
	"github.com/justsum66/cheersin-gateway/pkg/logger"
)

// Recorder receives one AttemptRecord per provider call attempt.
type Recorder interface {
	Record(ctx context.Context, rec model.AttemptRecord)
}

// NopRecorder drops every record. Used when NATS is not configured.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(context.Context, model.AttemptRecord) {}

// StreamRecorder publishes attempt records and history records to JetStream.
type StreamRecorder struct {
	client *natsclient.Client
	logger *logger.Logger
}

// NewStreamRecorder creates a recorder backed by the given NATS client.
func NewStreamRecorder(client *natsclient.Client, log *logger.Logger) *StreamRecorder {
	return &StreamRecorder{client: client, logger: log}
}

// Record publishes an attempt record. Publish errors are logged, never
// surfaced.
func (r *StreamRecorder) Record(ctx context.Context, rec model.AttemptRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		r.logger.Warn("failed to marshal attempt record", zap.Error(err))
		return
	}

	subject := fmt.Sprintf("%s.telemetry.%s", natsclient.SubjectPrefix, rec.Provider)
	if _, err := r.client.JetStream().PublishAsync(subject, data); err != nil {
		r.logger.Warn("failed to publish attempt record", zap.Error(err))
	}
}

// SaveExchange persists a completed exchange best-effort. It must never block
// or fail the response; callers run it in its own goroutine.
func (r *StreamRecorder) SaveExchange(ctx context.Context, rec model.HistoryRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		r.logger.Warn("failed to marshal history record", zap.Error(err))
		return
	}

	subject := fmt.Sprintf("%s.history.%s", natsclient.SubjectPrefix, rec.ClientID)
	if _, err := r.client.JetStream().PublishAsync(subject, data); err != nil {
		r.logger.Warn("failed to persist exchange", zap.Error(err))
	}
}

// HistoryWriter is the fire-and-forget persistence collaborator.
type HistoryWriter interface {
	SaveExchange(ctx context.Context, rec model.HistoryRecord)
}

// NopHistory drops every exchange.
type NopHistory struct{}

// SaveExchange implements HistoryWriter.
func (NopHistory) SaveExchange(context.Context, model.HistoryRecord) {}
