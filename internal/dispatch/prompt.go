package dispatch

import (
	"strings"

	"github.com/justsum66/cheersin-gateway/internal/llm"
	"github.com/justsum66/cheersin-gateway/internal/model"
	"github.com/justsum66/cheersin-gateway/internal/rag"
)

const systemPersona = `You are Cheersin's sommelier: a warm, knowledgeable wine expert.
Answer questions about wine, pairings, regions, and tasting. Keep answers
concise and conversational. When you recommend specific bottles, append a
fenced code block opened with ` + "```wines" + ` containing a JSON array of
objects with keys name, region, year, price, note.`

// defaultPrompt is substituted when the last user turn is empty, so no
// provider ever receives blank content.
const defaultPrompt = "Recommend a wine I should try tonight."

// BuildMessages assembles the provider message list from the normalized
// request and the (possibly empty) enrichment result.
func BuildMessages(req *model.ChatRequest, aug rag.Augmentation) []llm.ChatMessage {
	var system strings.Builder
	system.WriteString(systemPersona)

	if aug.User != nil {
		system.WriteString("\n\nAbout this guest:")
		if aug.User.Name != "" {
			system.WriteString("\n- name: " + aug.User.Name)
		}
		if aug.User.Level != "" {
			system.WriteString("\n- experience: " + aug.User.Level)
		}
		if len(aug.User.Preferences) > 0 {
			system.WriteString("\n- preferences: " + strings.Join(aug.User.Preferences, ", "))
		}
	}

	if len(req.Last5Turns) > 0 {
		system.WriteString("\n\nRecent conversation context:")
		for _, t := range req.Last5Turns {
			system.WriteString("\n" + string(t.Role) + ": " + t.Content)
		}
	}

	if aug.Knowledge != "" {
		system.WriteString("\n\nReference notes (cite as [n] when used):\n")
		system.WriteString(aug.Knowledge)
	}

	messages := make([]llm.ChatMessage, 0, len(req.Messages)+1)
	messages = append(messages, llm.ChatMessage{
		Role:    string(model.RoleSystem),
		Content: system.String(),
	})

	lastUser := -1
	for _, t := range req.Messages {
		messages = append(messages, llm.ChatMessage{
			Role:    string(t.Role),
			Content: t.Content,
		})
		if t.Role == model.RoleUser {
			lastUser = len(messages) - 1
		}
	}

	if lastUser < 0 {
		messages = append(messages, llm.ChatMessage{
			Role:    string(model.RoleUser),
			Content: defaultPrompt,
		})
	} else if strings.TrimSpace(messages[lastUser].Content) == "" {
		messages[lastUser].Content = defaultPrompt
	}

	return messages
}
