package widget

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NotificationItem is one sidebar entry. Both fields are trusted markup.
type NotificationItem struct {
	Username string
	Message  string
}

type wireNotification struct {
	Username text `json:"username"`
	Message  text `json:"message"`
}

// NormalizeNotifications turns a get_notifications payload into a list. An
// array is taken as-is, a single object becomes a one-element list and any
// other value yields an empty list. Only malformed JSON is an error.
func NormalizeNotifications(raw json.RawMessage) ([]NotificationItem, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	switch raw[0] {
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return nil, fmt.Errorf("failed to decode notifications: %w", err)
		}
		items := make([]NotificationItem, 0, len(elems))
		for _, elem := range elems {
			items = append(items, decodeNotification(elem))
		}
		return items, nil
	case '{':
		if !json.Valid(raw) {
			return nil, fmt.Errorf("failed to decode notification: invalid JSON")
		}
		return []NotificationItem{decodeNotification(raw)}, nil
	default:
		if !json.Valid(raw) {
			return nil, fmt.Errorf("failed to decode notifications: invalid JSON")
		}
		return nil, nil
	}
}

func decodeNotification(raw json.RawMessage) NotificationItem {
	var w wireNotification
	_ = json.Unmarshal(raw, &w)
	return NotificationItem{Username: string(w.Username), Message: string(w.Message)}
}
