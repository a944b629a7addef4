package reader

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/cclens/cclens/internal/model"
)

// rawRecord mirrors the shapes seen in Claude Code project logs. Usage may
// live at the top level or nested under message; token fields absent from a
// record default to zero.
type rawRecord struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	SessionID string          `json:"sessionId"`
	SessionV2 string          `json:"session_id"`
	RequestID string          `json:"requestId"`
	RequestV2 string          `json:"request_id"`
	Cwd       string          `json:"cwd"`
	Model     string          `json:"model"`
	Usage     *rawUsage       `json:"usage"`
	Message   *rawMessageBody `json:"message"`
}

type rawMessageBody struct {
	ID    string    `json:"id"`
	Model string    `json:"model"`
	Usage *rawUsage `json:"usage"`
}

type rawUsage struct {
	InputTokens         int64 `json:"input_tokens"`
	OutputTokens        int64 `json:"output_tokens"`
	CacheCreationTokens int64 `json:"cache_creation_input_tokens"`
	CacheReadTokens     int64 `json:"cache_read_input_tokens"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05", // no zone, treated as UTC
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil && secs > 1e9 && secs < 1e11 {
		return time.Unix(int64(secs), 0).UTC()
	}
	return time.Time{}
}

// normalize turns one raw log line into a usage event. ok is false for lines
// that parse fine but carry no billable usage.
func normalize(line []byte, projectPath string) (model.UsageEvent, bool, error) {
	var raw rawRecord
	if err := json.Unmarshal(line, &raw); err != nil {
		return model.UsageEvent{}, false, err
	}

	switch raw.Type {
	case "user", "summary", "system":
		return model.UsageEvent{}, false, nil
	}

	usage := raw.Usage
	modelName := raw.Model
	messageID := ""
	if raw.Message != nil {
		messageID = raw.Message.ID
		if raw.Message.Usage != nil {
			usage = raw.Message.Usage
		}
		if raw.Message.Model != "" {
			modelName = raw.Message.Model
		}
	}
	if usage == nil || model.IsSynthetic(modelName) {
		return model.UsageEvent{}, false, nil
	}

	tokens := model.TokenCounts{
		InputTokens:         usage.InputTokens,
		OutputTokens:        usage.OutputTokens,
		CacheCreationTokens: usage.CacheCreationTokens,
		CacheReadTokens:     usage.CacheReadTokens,
	}
	if tokens.IsZero() {
		return model.UsageEvent{}, false, nil
	}

	sessionID := raw.SessionID
	if sessionID == "" {
		sessionID = raw.SessionV2
	}
	requestID := raw.RequestID
	if requestID == "" {
		requestID = raw.RequestV2
	}
	project := raw.Cwd
	if project == "" {
		project = projectPath
	}

	return model.UsageEvent{
		Timestamp:   parseTimestamp(raw.Timestamp),
		SessionID:   sessionID,
		ProjectPath: project,
		Model:       modelName,
		MessageID:   messageID,
		RequestID:   requestID,
		Tokens:      tokens,
	}, true, nil
}
