package model

import "time"

// AttemptRecord describes one provider call attempt. Records are created per
// attempt and handed straight to the telemetry recorder; nothing retains them.
type AttemptRecord struct {
	Endpoint  string    `json:"endpoint"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Success   bool      `json:"success"`
	LatencyMs int64     `json:"latency_ms"`
	TokensIn  int       `json:"tokens_in,omitempty"`
	TokensOut int       `json:"tokens_out,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryRecord is a completed exchange persisted best-effort after a reply.
type HistoryRecord struct {
	ClientID  string    `json:"client_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	ModelUsed string    `json:"model_used"`
	CreatedAt time.Time `json:"created_at"`
}
