package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/justsum66/cheersin-gateway/internal/model"
)

// CodeInvalidPayload is the rejection code for malformed or oversized input.
const CodeInvalidPayload = "INVALID_PAYLOAD"

// Limits bounds the inbound request shape.
type Limits struct {
	MaxTurns          int
	MaxTurnChars      int
	MaxImageBytes     int
	MaxSanitizedChars int
}

// DefaultLimits matches the gateway's production configuration.
func DefaultLimits() Limits {
	return Limits{
		MaxTurns:          20,
		MaxTurnChars:      4000,
		MaxImageBytes:     4 << 20,
		MaxSanitizedChars: 2000,
	}
}

// spoofPrefixes are stripped from the start of the last user turn. Best-effort
// mitigation against role spoofing, not a security boundary.
var spoofPrefixes = []string{"ignore:", "system:", "assistant:", "user:"}

// ValidationError is a structured rejection. Message is safe to return to the
// caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateAndNormalize checks structural and size constraints and returns a
// normalized copy of the request plus the decoded inline image, if any. The
// caller's request is never mutated.
func ValidateAndNormalize(req *model.ChatRequest, limits Limits) (*model.ChatRequest, []byte, error) {
	if len(req.Messages) == 0 {
		return nil, nil, &ValidationError{Message: "messages must not be empty"}
	}
	if len(req.Messages) > limits.MaxTurns {
		return nil, nil, &ValidationError{Message: fmt.Sprintf("too many turns: %d > %d", len(req.Messages), limits.MaxTurns)}
	}
	for i, t := range req.Messages {
		if len(t.Content) > limits.MaxTurnChars {
			return nil, nil, &ValidationError{Message: fmt.Sprintf("turn %d exceeds %d characters", i, limits.MaxTurnChars)}
		}
		switch t.Role {
		case model.RoleUser, model.RoleAssistant, model.RoleSystem:
		default:
			return nil, nil, &ValidationError{Message: fmt.Sprintf("turn %d has unknown role %q", i, t.Role)}
		}
	}

	var image []byte
	if req.ImageBase64 != "" {
		decoded, err := decodeImage(req.ImageBase64)
		if err != nil {
			return nil, nil, &ValidationError{Message: "imageBase64 is not valid base64"}
		}
		if len(decoded) > limits.MaxImageBytes {
			return nil, nil, &ValidationError{Message: fmt.Sprintf("image exceeds %d bytes", limits.MaxImageBytes)}
		}
		image = decoded
	}

	norm := *req
	norm.Messages = make([]model.Turn, len(req.Messages))
	copy(norm.Messages, req.Messages)

	for i := len(norm.Messages) - 1; i >= 0; i-- {
		if norm.Messages[i].Role == model.RoleUser {
			norm.Messages[i].Content = SanitizeUserText(norm.Messages[i].Content, limits.MaxSanitizedChars)
			break
		}
	}

	return &norm, image, nil
}

// SanitizeUserText trims, strips role-spoofing prefixes, and truncates the
// most recent user turn's text.
func SanitizeUserText(text string, maxChars int) string {
	text = strings.TrimSpace(text)

	lower := strings.ToLower(text)
	for _, prefix := range spoofPrefixes {
		if strings.HasPrefix(lower, prefix) {
			text = strings.TrimSpace(text[len(prefix):])
			break
		}
	}

	if len(text) > maxChars {
		text = text[:maxChars]
	}
	return text
}

func decodeImage(s string) ([]byte, error) {
	// Strip a data-URI prefix like "data:image/png;base64,".
	if strings.HasPrefix(s, "data:") {
		i := strings.IndexByte(s, ',')
		if i < 0 {
			return nil, errors.New("malformed data URI")
		}
		s = s[i+1:]
	}
	return base64.StdEncoding.DecodeString(s)
}
