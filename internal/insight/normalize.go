package insight

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// ErrNoValidInsights marks a soft failure: the reply produced no parseable
// insights and the previous list must be kept.
var ErrNoValidInsights = errors.New("a IA não retornou insights válidos")

type replyPayload struct {
	Insights []Insight `json:"insights"`
}

// ParseReply converts the raw chat reply into validated insight records. The
// parse is two-stage: strict JSON first, then the leftmost-"{" to
// rightmost-"}" substring for replies that wrap the object in prose. Missing
// IDs are assigned from the 1-based position.
func ParseReply(reply string) ([]Insight, error) {
	trimmed := strings.TrimSpace(reply)
	payload, ok := decodePayload(trimmed)
	if !ok {
		start := strings.Index(trimmed, "{")
		end := strings.LastIndex(trimmed, "}")
		if start < 0 || end <= start {
			return nil, ErrNoValidInsights
		}
		payload, ok = decodePayload(trimmed[start : end+1])
		if !ok {
			return nil, ErrNoValidInsights
		}
	}
	if len(payload.Insights) == 0 {
		return nil, ErrNoValidInsights
	}
	items := make([]Insight, 0, len(payload.Insights))
	for idx, item := range payload.Insights {
		if strings.TrimSpace(item.ID) == "" {
			item.ID = strconv.Itoa(idx + 1)
		}
		items = append(items, item)
	}
	return items, nil
}

func decodePayload(raw string) (replyPayload, bool) {
	var payload replyPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return replyPayload{}, false
	}
	return payload, true
}
