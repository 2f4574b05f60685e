package widget

import (
	"bytes"
	"encoding/json"
)

// Tool names used by the backend to tag chain_start replies.
const (
	ToolVideo = "youtubeagent"
	ToolChat  = "chatcompanion"
)

// Reply is a decoded chain_start reply. The set of variants is closed:
// VideoReply, ChatReply and UnknownReply.
type Reply interface {
	isReply()
}

// VideoReply carries the results of the video tool, one card per entry.
type VideoReply struct {
	Videos []VideoResult
}

// ChatReply carries a markdown-subset text from the chat tool.
type ChatReply struct {
	Text string
}

// UnknownReply covers every other shape. Text is already the fallback text
// to display: the content coerced to text, or the whole reply when the
// content is absent or null.
type UnknownReply struct {
	Tool string
	Text string
}

func (VideoReply) isReply()   {}
func (ChatReply) isReply()    {}
func (UnknownReply) isReply() {}

// VideoResult is one entry in a video reply.
type VideoResult struct {
	Title       string
	Description string
	EmbedURL    string
}

// text decodes any JSON value into display text. Strings yield their value,
// null yields "" and anything else its compact JSON form.
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	*t = text(coerceText(data))
	return nil
}

func coerceText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if raw[0] == '"' && json.Unmarshal(raw, &s) == nil {
		return s
	}
	var compact bytes.Buffer
	if json.Compact(&compact, raw) != nil {
		return string(raw)
	}
	return compact.String()
}

type wireReply struct {
	Tool    json.RawMessage `json:"tool"`
	Content json.RawMessage `json:"content"`
}

type wireVideo struct {
	Title       text `json:"title"`
	Description text `json:"description"`
	EmbedURL    text `json:"embed_url"`
}

// DecodeReply classifies a raw chain_start reply. It never fails: shapes it
// cannot interpret become an UnknownReply whose Text is shown verbatim.
func DecodeReply(raw json.RawMessage) Reply {
	var wire wireReply
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		_ = json.Unmarshal(trimmed, &wire)
	}

	var tool string
	if len(wire.Tool) > 0 && wire.Tool[0] == '"' {
		_ = json.Unmarshal(wire.Tool, &tool)
	}

	switch tool {
	case ToolVideo:
		if videos, ok := decodeVideos(wire.Content); ok {
			return VideoReply{Videos: videos}
		}
	case ToolChat:
		return ChatReply{Text: coerceText(wire.Content)}
	}

	return UnknownReply{Tool: tool, Text: fallbackText(wire.Content, trimmed)}
}

func decodeVideos(content json.RawMessage) ([]VideoResult, bool) {
	content = bytes.TrimSpace(content)
	if len(content) == 0 || content[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(content, &items); err != nil {
		return nil, false
	}

	videos := make([]VideoResult, 0, len(items))
	for _, item := range items {
		var w wireVideo
		// Non-object entries still get a card, with empty fields.
		_ = json.Unmarshal(item, &w)
		videos = append(videos, VideoResult{
			Title:       string(w.Title),
			Description: string(w.Description),
			EmbedURL:    string(w.EmbedURL),
		})
	}
	return videos, true
}

func fallbackText(content, whole json.RawMessage) string {
	content = bytes.TrimSpace(content)
	if len(content) > 0 && !bytes.Equal(content, []byte("null")) {
		if s := coerceText(content); s != "" {
			return s
		}
	}
	if s := coerceText(whole); s != "" {
		return s
	}
	return "null"
}
