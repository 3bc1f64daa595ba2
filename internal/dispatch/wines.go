package dispatch

import (
	"encoding/json"
	"strings"

	"github.com/justsum66/cheersin-gateway/internal/model"
)

const (
	wineBlockOpen  = "```wines"
	wineBlockClose = "```"
)

// SplitWineList extracts the structured wine list a reply may embed as a
// fenced ```wines block holding a JSON array. The block is stripped from the
// display text. A malformed block is left in place rather than dropped, so
// the user still sees whatever the model produced.
func SplitWineList(reply string) (displayText string, wines []model.Wine) {
	start := strings.Index(reply, wineBlockOpen)
	if start < 0 {
		return strings.TrimSpace(reply), nil
	}

	rest := reply[start+len(wineBlockOpen):]
	end := strings.Index(rest, wineBlockClose)
	if end < 0 {
		return strings.TrimSpace(reply), nil
	}

	payload := strings.TrimSpace(rest[:end])
	if err := json.Unmarshal([]byte(payload), &wines); err != nil {
		return strings.TrimSpace(reply), nil
	}
	if len(wines) == 0 {
		wines = nil
	}

	displayText = reply[:start] + rest[end+len(wineBlockClose):]
	return strings.TrimSpace(displayText), wines
}
