// Package model defines data structures for the chat gateway.
package model

// Role represents the role of a turn's author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is a single message in a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserContext carries optional profile information supplied by the caller.
type UserContext struct {
	Name        string   `json:"name,omitempty"`
	Level       string   `json:"level,omitempty"`
	Preferences []string `json:"preferences,omitempty"`
}

// ChatRequest is the inbound body for POST /api/v1/chat.
type ChatRequest struct {
	Messages         []Turn       `json:"messages"`
	UserContext      *UserContext `json:"userContext,omitempty"`
	Last5Turns       []Turn       `json:"last5Turns,omitempty"`
	Stream           bool         `json:"stream,omitempty"`
	ImageBase64      string       `json:"imageBase64,omitempty"`
	SubscriptionTier string       `json:"subscriptionTier,omitempty"`
}

// Source is a citation for a retrieved knowledge snippet.
type Source struct {
	Index   int    `json:"index"`
	Source  string `json:"source"`
	Excerpt string `json:"excerpt,omitempty"`
}

// Wine is one entry of the structured wine list embedded in a reply.
type Wine struct {
	Name   string `json:"name"`
	Region string `json:"region,omitempty"`
	Year   string `json:"year,omitempty"`
	Price  string `json:"price,omitempty"`
	Note   string `json:"note,omitempty"`
}

// ChatResponse is the non-streaming success body.
type ChatResponse struct {
	Message          string   `json:"message"`
	Wines            []Wine   `json:"wines,omitempty"`
	Sources          []Source `json:"sources"`
	SimilarQuestions []string `json:"similarQuestions"`
}

// ErrorResponse is the rejection body for validation and admission errors.
type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter,omitempty"`
	Upgrade    bool   `json:"upgrade,omitempty"`
}

// LastUserText returns the content of the most recent user turn, or "".
func (r *ChatRequest) LastUserText() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}
