package model

// Stream event types for the NDJSON protocol. Every streamed response is
// exactly one meta, zero or more delta, then one done or one error.
const (
	EventMeta  = "meta"
	EventDelta = "delta"
	EventDone  = "done"
	EventError = "error"
)

// Failure codes carried by the terminal error event.
const (
	CodeRateLimit     = "RATE_LIMIT"
	CodeTimeout       = "TIMEOUT"
	CodeUpstreamError = "UPSTREAM_ERROR"
)

// MetaEvent opens a stream and carries the citations gathered during
// enrichment, before any provider output is available.
type MetaEvent struct {
	Type    string   `json:"type"`
	Sources []Source `json:"sources"`
}

// DeltaEvent carries one incremental chunk of assistant text.
type DeltaEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// DoneEvent terminates a successful stream.
type DoneEvent struct {
	Type             string   `json:"type"`
	SimilarQuestions []string `json:"similarQuestions"`
}

// StreamErrorEvent terminates a stream after every fallback is exhausted.
type StreamErrorEvent struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
}
