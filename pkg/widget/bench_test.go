package widget

import (
	"encoding/json"
	"strings"
	"testing"
)

// BenchmarkFormat benchmarks markdown formatting for various reply lengths
func BenchmarkFormat(b *testing.B) {
	benchmarks := []struct {
		name string
		text string
	}{
		{"Short", "Hello, **world**!"},
		{"Medium", "Here is `code`, some *emphasis* and a link https://go.dev.\nSecond line."},
		{"Long", strings.Repeat("A **bold** claim with a source https://example.com and `x := 1`.\n", 50)},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = Format(bm.text)
			}
		})
	}
}

// BenchmarkDecodeReply benchmarks reply routing for each reply shape
func BenchmarkDecodeReply(b *testing.B) {
	benchmarks := []struct {
		name string
		raw  json.RawMessage
	}{
		{"Chat", json.RawMessage(`{"tool":"chatcompanion","content":"hello there"}`)},
		{"Video", json.RawMessage(`{"tool":"youtubeagent","content":[{"title":"A","description":"d","embed_url":"https://www.youtube.com/embed/a"},{"title":"B","description":"d","embed_url":"https://www.youtube.com/embed/b"}]}`)},
		{"Unknown", json.RawMessage(`{"tool":"other","content":{"k":[1,2,3]}}`)},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = DecodeReply(bm.raw)
			}
		})
	}
}

// BenchmarkNotificationPanels benchmarks sidebar rebuilds
func BenchmarkNotificationPanels(b *testing.B) {
	items := make([]NotificationItem, 100)
	for i := range items {
		items[i] = NotificationItem{Username: "user", Message: "a notification body"}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		page := NewPage()
		page.ReplaceNotifications(NotificationPanels(items, Trusted{}))
	}
}
